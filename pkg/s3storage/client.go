// Package s3storage загружает артефакты запуска (debug трейсы, экспорт
// маппинга) в S3-совместимое хранилище.
package s3storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ilkoid/greenery-agent/pkg/config"
)

// ClientInterface определяет интерфейс для S3 клиента.
// Используется для мокания в тестах и внедрения зависимостей.
type ClientInterface interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	UploadFile(ctx context.Context, key, localPath string) (string, error)
}

type Client struct {
	api    *minio.Client
	bucket string
	prefix string
}

// Проверка что Client реализует ClientInterface
var _ ClientInterface = (*Client)(nil)

// New создает клиент, используя наш конфиг
func New(cfg config.S3Config) (*Client, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("s3 is not configured: endpoint and bucket are required")
	}

	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	return &Client{
		api:    minioClient,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// ObjectKey добавляет к ключу общий префикс из конфига.
func (c *Client) ObjectKey(key string) string {
	key = strings.TrimPrefix(key, "/")
	if c.prefix == "" {
		return key
	}
	return path.Join(strings.Trim(c.prefix, "/"), key)
}

// Upload кладёт данные в bucket по ключу (с префиксом).
//
// Rule 11: context.Context propagation for cancellation support.
func (c *Client) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return fmt.Errorf("object key is empty")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	objectKey := c.ObjectKey(key)
	_, err := c.api.PutObject(ctx, c.bucket, objectKey, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectKey, err)
	}
	return nil
}

// UploadFile загружает локальный файл и возвращает итоговый ключ объекта.
//
// Пустой key означает имя файла. Content-Type выводится из расширения.
func (c *Client) UploadFile(ctx context.Context, key, localPath string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", localPath, err)
	}
	if key == "" {
		key = filepath.Base(localPath)
	}

	if err := c.Upload(ctx, key, data, ContentTypeFor(localPath)); err != nil {
		return "", err
	}
	return c.ObjectKey(key), nil
}

// ContentTypeFor подбирает Content-Type по расширению файла.
func ContentTypeFor(localPath string) string {
	switch strings.ToLower(filepath.Ext(localPath)) {
	case ".json":
		return "application/json"
	case ".db", ".sqlite", ".sqlite3":
		return "application/vnd.sqlite3"
	case ".log", ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
