// Package dataset загружает датасет RIVM "groenpercentage per buurt" по WFS.
//
// Пакет — тонкий HTTP клиент:
//   - BuildURL собирает GetFeature запрос из конфигурации
//   - Fetcher.Fetch делает ровно один GET без retry
//   - Document хранит тело ответа как есть и даёт типизированный взгляд
//     на GeoJSON и маппинг "район → процент зелени"
//
// Кэширования между запусками и офлайн-режима нет.
package dataset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ilkoid/greenery-agent/pkg/config"
	"github.com/ilkoid/greenery-agent/pkg/utils"
	"github.com/tidwall/gjson"
)

// maxErrorBody — сколько байт тела ошибки сохраняется в FetchError.
const maxErrorBody = 512

// HTTPClient интерфейс для выполнения HTTP запросов.
//
// Стандартный *http.Client реализует этот интерфейс; в тестах
// подменяется (Rule 9).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher загружает датасет по URL из конфигурации.
type Fetcher struct {
	url        string
	httpClient HTTPClient
	now        func() time.Time
}

// NewFetcher создаёт Fetcher из секции dataset.
func NewFetcher(cfg config.DatasetConfig) (*Fetcher, error) {
	cfg = cfg.GetDefaults()

	u, err := BuildURL(cfg)
	if err != nil {
		return nil, err
	}

	return &Fetcher{
		url:        u,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		now:        time.Now,
	}, nil
}

// WithHTTPClient подменяет HTTP клиент.
func (f *Fetcher) WithHTTPClient(c HTTPClient) *Fetcher {
	f.httpClient = c
	return f
}

// URL возвращает итоговый URL запроса.
func (f *Fetcher) URL() string {
	return f.url
}

// BuildURL собирает WFS GetFeature URL.
//
// Если URL уже содержит query string, он используется без изменений.
// Иначе добавляются service=WFS, request=GetFeature, typeName,
// propertyName (через запятую) и outputFormat.
func BuildURL(cfg config.DatasetConfig) (string, error) {
	if cfg.URL == "" {
		return "", fmt.Errorf("dataset url is empty")
	}

	u, err := url.Parse(cfg.URL)
	if err != nil {
		return "", fmt.Errorf("invalid dataset url %q: %w", cfg.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid dataset url %q: scheme must be http or https", cfg.URL)
	}

	if u.RawQuery != "" || cfg.TypeName == "" {
		return cfg.URL, nil
	}

	// Порядок параметров как в публичной ссылке RIVM;
	// url.Values.Encode сортирует ключи, поэтому собираем вручную
	parts := []string{
		"service=WFS",
		"request=GetFeature",
		"typeName=" + url.QueryEscape(cfg.TypeName),
	}
	if len(cfg.Properties) > 0 {
		parts = append(parts, "propertyName="+url.QueryEscape(strings.Join(cfg.Properties, ",")))
	}
	if cfg.OutputFormat != "" {
		parts = append(parts, "outputFormat="+url.QueryEscape(cfg.OutputFormat))
	}

	u.RawQuery = strings.Join(parts, "&")
	return u.String(), nil
}

// Fetch выполняет один GET и возвращает документ.
//
// Ошибки:
//   - сеть / таймаут / отмена ctx — как есть, обёрнутые с контекстом
//   - статус вне 2xx — *FetchError
//   - тело не JSON — ErrInvalidJSON
//
// Rule 11: запрос привязан к ctx.
func (f *Fetcher) Fetch(ctx context.Context) (*Document, error) {
	startTime := time.Now()
	utils.Info("Fetching dataset", "url", f.url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build dataset request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		utils.Error("Dataset request failed", "error", err, "type", ClassifyError(err).String())
		return nil, fmt.Errorf("fetch dataset: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read dataset body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		fetchErr := &FetchError{
			URL:        f.url,
			StatusCode: resp.StatusCode,
			Body:       utils.Truncate(strings.TrimSpace(string(body)), maxErrorBody),
		}
		utils.Error("Dataset request returned error status", "status", resp.StatusCode)
		return nil, fetchErr
	}

	if !gjson.ValidBytes(body) {
		utils.Error("Dataset body is not valid JSON", "bytes", len(body))
		return nil, fmt.Errorf("fetch dataset from %s: %w", f.url, ErrInvalidJSON)
	}

	doc := &Document{
		Raw:       body,
		Source:    f.url,
		FetchedAt: f.now(),
	}

	utils.Info("Dataset fetched",
		"bytes", len(body),
		"features", doc.FeatureCount(),
		"duration_ms", time.Since(startTime).Milliseconds())

	return doc, nil
}
