package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ilkoid/greenery-agent/pkg/config"
	"github.com/ilkoid/greenery-agent/pkg/utils"
)

// ConfigPathFinder определяет стратегию поиска пути к config.yaml.
//
// По умолчанию используется DefaultConfigPathFinder, но можно
// реализовать свою стратегию для тестов или специальных случаев.
type ConfigPathFinder interface {
	FindConfigPath() string
}

// DefaultConfigPathFinder реализует стандартную стратегию поиска config.yaml.
//
// Порядок поиска:
//  1. Флаг -config (если указан)
//  2. config.FindConfigPath: текущая директория, директория бинарника, родители
//
// Пустой результат означает "работать на config.Default()".
type DefaultConfigPathFinder struct {
	// ConfigFlag - значение флага -config, если указан
	ConfigFlag string
}

// FindConfigPath находит путь к config.yaml.
func (f *DefaultConfigPathFinder) FindConfigPath() string {
	if f.ConfigFlag != "" {
		return resolveAbsPath(f.ConfigFlag)
	}
	return config.FindConfigPath()
}

// StrictConfigPathFinder ищет config.yaml только по флагу или рядом с бинарником.
//
// Используется, когда конфиг распространяется вместе с бинарником и
// случайный config.yaml из текущей директории подхватываться не должен.
type StrictConfigPathFinder struct {
	ConfigFlag string
}

// FindConfigPath находит путь к config.yaml.
func (f *StrictConfigPathFinder) FindConfigPath() string {
	if f.ConfigFlag != "" {
		return resolveAbsPath(f.ConfigFlag)
	}

	if execPath, err := os.Executable(); err == nil {
		cfgPath := filepath.Join(filepath.Dir(execPath), "config.yaml")
		if _, err := os.Stat(cfgPath); err == nil {
			return cfgPath
		}
	}
	return ""
}

// InitializeConfig загружает .env файлы и конфигурацию.
//
// Порядок важен: ключи из .env должны попасть в окружение до подстановки
// ${VAR} и проверки api key.
//
// Правило 2: все настройки в YAML с поддержкой ENV-переменных.
// Возвращает путь к загруженному файлу ("" для config.Default()).
func InitializeConfig(finder ConfigPathFinder, envFiles ...string) (*config.AppConfig, string, error) {
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return nil, "", err
	}

	cfgPath := finder.FindConfigPath()
	if cfgPath == "" {
		cfg, err := config.LoadDefault()
		if err != nil {
			return nil, "", err
		}
		utils.Info("config.yaml not found, using built-in defaults")
		return cfg, "", nil
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("failed to load config from %s: %w", cfgPath, err)
	}

	utils.Info("Config loaded", "path", cfgPath)
	return cfg, cfgPath, nil
}

// resolveAbsPath преобразует путь в абсолютный (если это не уже абсолютный путь).
func resolveAbsPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}
