// Package app собирает компоненты greenery-agent для CLI и интерактивного
// режима: конфиг, датасет, JSON toolkit, модели, ReAct цикл, debug и экспорт.
//
// Пакет следует правилам из dev_manifest.md:
//   - Работает через llm.Provider интерфейс (Правило 4)
//   - Использует tools.Registry (Правило 3)
//   - Все ошибки возвращаются, никаких panic (Правило 7)
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ilkoid/greenery-agent/pkg/chain"
	"github.com/ilkoid/greenery-agent/pkg/config"
	"github.com/ilkoid/greenery-agent/pkg/dataset"
	"github.com/ilkoid/greenery-agent/pkg/debug"
	"github.com/ilkoid/greenery-agent/pkg/events"
	"github.com/ilkoid/greenery-agent/pkg/export"
	"github.com/ilkoid/greenery-agent/pkg/jsonspec"
	"github.com/ilkoid/greenery-agent/pkg/llm"
	"github.com/ilkoid/greenery-agent/pkg/models"
	"github.com/ilkoid/greenery-agent/pkg/s3storage"
	"github.com/ilkoid/greenery-agent/pkg/tools"
	"github.com/ilkoid/greenery-agent/pkg/utils"
)

// ErrDatasetFetch помечает ошибки загрузки датасета: для них CLI
// показывает подсказку dataset.ClassifyError.
var ErrDatasetFetch = errors.New("dataset fetch failed")

// Options — переопределения поверх config.yaml из флагов CLI.
type Options struct {
	// Model — алиас модели вместо models.default_chat
	Model string

	// Verbose печатает рассуждения и вызовы инструментов в Output
	Verbose bool
	Output  io.Writer

	// Debug включает debug дамп независимо от debug.enabled
	Debug bool

	// Models подменяет реестр моделей (тесты, свои провайдеры)
	Models *models.Registry
}

// Components содержит все компоненты приложения для переиспользования
// между CLI и интерактивным режимом.
type Components struct {
	Config    *config.AppConfig
	ModelName string

	Document *dataset.Document
	Spec     *jsonspec.Spec

	Models *models.Registry
	Tools  *tools.Registry
	Chain  *chain.ReActCycle
	Debug  *chain.ChainDebugRecorder

	// S3 — nil, если хранилище не настроено
	S3 *s3storage.Client
}

// ExecutionResult содержит результаты выполнения запроса.
//
// Используется для отделения логики вывода от логики выполнения,
// что позволяет переиспользовать код в TUI с собственным рендерингом.
type ExecutionResult struct {
	Response   string
	StopReason chain.StopReason
	Iterations int
	History    []llm.Message
	Duration   time.Duration
	DebugPath  string
}

// Initialize загружает датасет и собирает компоненты.
//
//  1. Выбор модели (флаг -model или default_chat)
//  2. Загрузка датасета (один GET)
//  3. Сборка через InitializeWithDocument
func Initialize(ctx context.Context, cfg *config.AppConfig, opts Options) (*Components, error) {
	modelName, err := ResolveModel(cfg, opts.Model)
	if err != nil {
		return nil, err
	}

	fetcher, err := dataset.NewFetcher(cfg.Dataset)
	if err != nil {
		return nil, fmt.Errorf("dataset config: %w", err)
	}

	utils.Info("Fetching dataset", "url", fetcher.URL())
	doc, err := fetcher.Fetch(ctx)
	if err != nil {
		utils.Error("Dataset fetch failed", "error", err, "type", dataset.ClassifyError(err))
		return nil, fmt.Errorf("%w: %w", ErrDatasetFetch, err)
	}

	opts.Model = modelName
	return InitializeWithDocument(cfg, doc, opts)
}

// InitializeWithDocument собирает компоненты вокруг уже загруженного документа.
func InitializeWithDocument(cfg *config.AppConfig, doc *dataset.Document, opts Options) (*Components, error) {
	modelName, err := ResolveModel(cfg, opts.Model)
	if err != nil {
		return nil, err
	}

	// 1. S3 (опционально)
	var s3Client *s3storage.Client
	if cfg.S3.Configured() {
		s3Client, err = s3storage.New(cfg.S3)
		if err != nil {
			utils.Error("S3 client creation failed", "error", err)
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		utils.Info("S3 client initialized", "bucket", cfg.S3.Bucket)
	}

	// 2. JSON spec поверх документа
	spec, err := jsonspec.New(doc.Raw, cfg.Agent.MaxValueLength)
	if err != nil {
		return nil, fmt.Errorf("failed to build json spec: %w", err)
	}

	// 3. Инструменты
	toolsRegistry := tools.NewRegistry()
	if err := SetupTools(toolsRegistry, spec, cfg.Agent); err != nil {
		utils.Error("Tools registration failed", "error", err)
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	// 4. Модели
	modelRegistry := opts.Models
	if modelRegistry == nil {
		modelRegistry, err = models.NewRegistryFromConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create model registry: %w", err)
		}
	}
	utils.Info("Model registry ready", "models", modelRegistry.ListNames(), "default", modelName)

	// 5. ReAct цикл
	cycle := chain.NewReActCycle(chain.ConfigFromAgent(cfg.Agent))
	cycle.SetModelRegistry(modelRegistry, modelName)
	cycle.SetRegistry(toolsRegistry)
	cycle.SetSource(doc.Source)

	// 6. Debug
	debugCfg := cfg.Debug
	if opts.Debug {
		debugCfg.Enabled = true
	}
	var uploader debug.Uploader
	if s3Client != nil {
		uploader = s3Client
	}
	recorder, err := chain.NewChainDebugRecorder(debugCfg, uploader)
	if err != nil {
		return nil, fmt.Errorf("failed to create debug recorder: %w", err)
	}
	cycle.AttachDebug(recorder)

	// 7. Verbose вывод
	if opts.Verbose || cfg.Agent.Verbose {
		out := opts.Output
		if out == nil {
			out = os.Stderr
		}
		cycle.SetEmitter(events.NewWriterEmitter(out))
	}

	return &Components{
		Config:    cfg,
		ModelName: modelName,
		Document:  doc,
		Spec:      spec,
		Models:    modelRegistry,
		Tools:     toolsRegistry,
		Chain:     cycle,
		Debug:     recorder,
		S3:        s3Client,
	}, nil
}

// ResolveModel возвращает имя модели для запуска и проверяет её ключ.
//
// Config.validate проверяет ключ только у default_chat, поэтому модель
// из флага проверяется здесь.
func ResolveModel(cfg *config.AppConfig, override string) (string, error) {
	name := override
	if name == "" {
		name = cfg.Models.DefaultChat
	}

	def, ok := cfg.GetChatModel(name)
	if !ok {
		return "", fmt.Errorf("model '%s' is not defined in models.definitions", name)
	}
	if def.NeedsAPIKey() && def.ResolvedAPIKey() == "" {
		if def.APIKeyEnv != "" {
			return "", fmt.Errorf("model '%s': api key is empty (set %s)", name, def.APIKeyEnv)
		}
		return "", fmt.Errorf("model '%s': api_key is empty", name)
	}
	return name, nil
}

// Execute выполняет запрос через ReAct цикл.
//
// Эта функция является переиспользуемой: её вызывают и CLI, и TUI.
func Execute(ctx context.Context, c *Components, query string) (*ExecutionResult, error) {
	startTime := time.Now()
	utils.Info("Executing query", "query", query)

	output, err := c.Chain.Execute(ctx, chain.ChainInput{
		UserQuery: query,
		Source:    c.Document.Source,
		Model:     c.ModelName,
	})
	if err != nil {
		utils.Error("Agent execution failed", "error", err, "query", query)
		return nil, fmt.Errorf("agent error: %w", err)
	}

	utils.Info("Query executed",
		"stop_reason", output.StopReason,
		"iterations", output.Iterations,
		"response_length", len(output.Result),
		"duration_ms", time.Since(startTime).Milliseconds())

	return &ExecutionResult{
		Response:   output.Result,
		StopReason: output.StopReason,
		Iterations: output.Iterations,
		History:    output.FinalState,
		Duration:   time.Since(startTime),
		DebugPath:  output.DebugPath,
	}, nil
}

// Greenery извлекает маппинг "район → значение" по ключам из dataset.
func (c *Components) Greenery() (*dataset.Greenery, error) {
	g, err := c.Document.Greenery(c.Config.Dataset.NameProperty, c.Config.Dataset.ValueProperty)
	if err != nil {
		return nil, fmt.Errorf("extract greenery: %w", err)
	}
	if g.Skipped > 0 {
		utils.Warn("Features skipped during extraction", "skipped", g.Skipped)
	}
	return g, nil
}

// Lookup отвечает на вопрос о районе напрямую из маппинга, без модели.
func (c *Components) Lookup(name string) (string, error) {
	g, err := c.Greenery()
	if err != nil {
		return "", err
	}
	value, ok := g.Lookup(name)
	if !ok {
		return "", fmt.Errorf("neighbourhood %q not found in dataset (%d known)", name, len(g.Values))
	}
	return fmt.Sprintf("%s: %s = %v", name, c.Config.Dataset.ValueProperty, value), nil
}

// Export пишет маппинг в файл. Пустые path/format берутся из секции export.
//
// При export.upload_to_s3 файл дополнительно загружается в S3.
func (c *Components) Export(ctx context.Context, path, format string) (export.Result, error) {
	if path == "" {
		path = c.Config.Export.Path
	}
	if format == "" {
		format = c.Config.Export.Format
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		return export.Result{}, err
	}

	g, err := c.Greenery()
	if err != nil {
		return export.Result{}, err
	}

	opts := export.Options{Path: path, Format: f}
	if c.Config.Export.UploadToS3 && c.S3 != nil {
		opts.Uploader = c.S3
	}
	return export.Dump(ctx, g, opts)
}
