// Package export сохраняет маппинг "район → процент зелени" в файл:
// JSON объект или SQLite таблицу. Файл можно дополнительно загрузить в S3.
package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ilkoid/greenery-agent/pkg/dataset"
	"github.com/ilkoid/greenery-agent/pkg/utils"
)

// Format — формат файла экспорта.
type Format string

const (
	FormatJSON   Format = "json"
	FormatSQLite Format = "sqlite"
)

// ParseFormat проверяет строку формата ("" = json).
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatSQLite:
		return FormatSQLite, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want json or sqlite)", s)
	}
}

// FileUploader загружает готовый файл; реализуется s3storage.Client.
type FileUploader interface {
	UploadFile(ctx context.Context, key, localPath string) (string, error)
}

// Options — куда и как писать дамп.
type Options struct {
	Path   string
	Format Format

	// Uploader — опциональная загрузка файла после записи
	Uploader  FileUploader
	UploadKey string // "" = имя файла
}

// Result — итог экспорта.
type Result struct {
	Path      string
	Format    Format
	Count     int
	UploadKey string
}

// Dump пишет маппинг в файл и, если задан Uploader, загружает его.
//
// Файл перезаписывается целиком. Ошибка загрузки возвращается вместе
// с Result: локальный файл к этому моменту уже записан.
func Dump(ctx context.Context, g *dataset.Greenery, opts Options) (Result, error) {
	if g == nil {
		return Result{}, fmt.Errorf("greenery mapping is nil")
	}
	if opts.Path == "" {
		return Result{}, fmt.Errorf("export path is empty")
	}

	format := opts.Format
	if format == "" {
		format = FormatJSON
	}

	if dir := filepath.Dir(opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return Result{}, fmt.Errorf("failed to create export dir: %w", err)
		}
	}

	var err error
	switch format {
	case FormatJSON:
		err = writeJSON(opts.Path, g.Values)
	case FormatSQLite:
		err = writeSQLite(ctx, opts.Path, g.Values)
	default:
		err = fmt.Errorf("unknown export format %q", format)
	}
	if err != nil {
		return Result{}, err
	}

	result := Result{Path: opts.Path, Format: format, Count: len(g.Values)}
	utils.Info("Greenery mapping exported", "path", opts.Path, "format", format, "count", result.Count)

	if opts.Uploader == nil {
		return result, nil
	}

	key, err := opts.Uploader.UploadFile(ctx, opts.UploadKey, opts.Path)
	if err != nil {
		return result, fmt.Errorf("export upload: %w", err)
	}
	result.UploadKey = key
	utils.Info("Export uploaded", "key", key)

	return result, nil
}

func writeJSON(path string, values map[string]float64) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal greenery: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS greenery (
	name TEXT PRIMARY KEY,
	mean REAL NOT NULL
);`

func writeSQLite(ctx context.Context, path string, values map[string]float64) error {
	// Старый файл удаляется: в нём могли остаться районы прошлого запуска
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove old export: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO greenery (name, mean) VALUES (?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, err := stmt.ExecContext(ctx, name, values[name]); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Load читает ранее записанный дамп обратно в маппинг.
func Load(ctx context.Context, path string, format Format) (map[string]float64, error) {
	switch format {
	case "", FormatJSON:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		values := make(map[string]float64)
		if err := json.Unmarshal(data, &values); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return values, nil

	case FormatSQLite:
		return loadSQLite(ctx, path)

	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

func loadSQLite(ctx context.Context, path string) (map[string]float64, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT name, mean FROM greenery`)
	if err != nil {
		return nil, fmt.Errorf("failed to query greenery: %w", err)
	}
	defer rows.Close()

	values := make(map[string]float64)
	for rows.Next() {
		var (
			name string
			mean float64
		)
		if err := rows.Scan(&name, &mean); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		values[name] = mean
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return values, nil
}
