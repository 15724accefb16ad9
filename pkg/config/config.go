// Package config загружает конфигурацию greenery-agent.
//
// Источники (в порядке применения):
//  1. .env файлы (godotenv) — только заполняют окружение процесса
//  2. config.yaml с подстановкой ${VAR} из окружения
//  3. Дефолты для незаполненных полей (GetDefaults-методы секций)
//
// Если config.yaml не найден, используется Default(): Azure o3-mini + RIVM WFS.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig — корневая структура конфигурации.
// Зеркалит структуру config.yaml.
type AppConfig struct {
	Models  ModelsConfig  `yaml:"models"`
	Dataset DatasetConfig `yaml:"dataset"`
	Agent   AgentConfig   `yaml:"agent"`
	Debug   DebugConfig   `yaml:"debug"`
	Export  ExportConfig  `yaml:"export"`
	S3      S3Config      `yaml:"s3"`
	App     AppSpecific   `yaml:"app"`
}

// ModelsConfig — настройки LLM моделей.
type ModelsConfig struct {
	DefaultChat string              `yaml:"default_chat"` // Алиас модели по умолчанию (например, "o3-mini")
	Definitions map[string]ModelDef `yaml:"definitions"`  // Словарь определений моделей
}

// ModelDef — параметры конкретной модели.
type ModelDef struct {
	Provider   string `yaml:"provider"`    // "azure", "openai", "ollama"
	ModelName  string `yaml:"model_name"`  // Имя модели, для Azure — имя deployment
	APIKey     string `yaml:"api_key"`     // Поддерживает ${VAR}
	APIKeyEnv  string `yaml:"api_key_env"` // Переменная окружения, если api_key пуст
	BaseURL    string `yaml:"base_url"`    // Для Azure — endpoint ресурса
	APIVersion string `yaml:"api_version"` // Только для Azure

	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"` // "60s", "2m"

	// Reasoning — o-series модели: max_completion_tokens вместо max_tokens,
	// temperature не отправляется.
	Reasoning bool `yaml:"reasoning"`

	// RateLimit — запросов в минуту к модели (0 = без ограничения).
	RateLimit int `yaml:"rate_limit"`

	ParallelToolCalls *bool `yaml:"parallel_tool_calls"`
}

// ResolvedAPIKey возвращает api_key или значение переменной api_key_env.
func (m ModelDef) ResolvedAPIKey() string {
	if m.APIKey != "" {
		return m.APIKey
	}
	if m.APIKeyEnv != "" {
		return os.Getenv(m.APIKeyEnv)
	}
	return ""
}

// NeedsAPIKey сообщает, требует ли провайдер ключ.
// Ollama работает локально без авторизации.
func (m ModelDef) NeedsAPIKey() bool {
	return m.Provider != ProviderOllama
}

// Провайдеры, которые умеет собирать factory.
const (
	ProviderAzure  = "azure"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// DatasetConfig — откуда и как забирать датасет.
type DatasetConfig struct {
	URL          string        `yaml:"url"`           // Базовый WFS endpoint (или готовый URL с query)
	TypeName     string        `yaml:"type_name"`     // WFS typeName
	Properties   []string      `yaml:"properties"`    // WFS propertyName
	OutputFormat string        `yaml:"output_format"` // "json"
	Timeout      time.Duration `yaml:"timeout"`

	// NameProperty / ValueProperty — ключи внутри feature.properties
	// для извлечения маппинга "район → значение".
	NameProperty  string `yaml:"name_property"`
	ValueProperty string `yaml:"value_property"`
}

// GetDefaults возвращает копию с дефолтами для незаполненных полей.
func (c *DatasetConfig) GetDefaults() DatasetConfig {
	result := *c

	if result.URL == "" {
		result.URL = DefaultDatasetURL
	}
	if result.TypeName == "" && len(result.Properties) == 0 && result.URL == DefaultDatasetURL {
		result.TypeName = DefaultDatasetTypeName
		result.Properties = []string{DefaultNameProperty, DefaultValueProperty}
	}
	if result.OutputFormat == "" {
		result.OutputFormat = "json"
	}
	if result.Timeout == 0 {
		result.Timeout = 60 * time.Second
	}
	if result.NameProperty == "" {
		result.NameProperty = DefaultNameProperty
	}
	if result.ValueProperty == "" {
		result.ValueProperty = DefaultValueProperty
	}

	return result
}

// AgentConfig — параметры JSON агента.
type AgentConfig struct {
	Question       string        `yaml:"question"`      // Вопрос по умолчанию
	SystemPrompt   string        `yaml:"system_prompt"` // Пусто = встроенный промпт JSON агента
	MaxIterations  int           `yaml:"max_iterations"`
	MaxValueLength int           `yaml:"max_value_length"`
	Timeout        time.Duration `yaml:"timeout"`
	ToolTimeout    time.Duration `yaml:"tool_timeout"`
	Verbose        bool          `yaml:"verbose"`

	// EnableQueryTool — регистрировать json_spec_query (gjson запросы).
	// nil = включено.
	EnableQueryTool *bool `yaml:"enable_query_tool"`
}

// GetDefaults возвращает копию с дефолтами для незаполненных полей.
func (c *AgentConfig) GetDefaults() AgentConfig {
	result := *c

	if result.Question == "" {
		result.Question = DefaultQuestion
	}
	if result.MaxIterations == 0 {
		result.MaxIterations = 10
	}
	if result.MaxValueLength == 0 {
		result.MaxValueLength = 4000
	}
	if result.Timeout == 0 {
		result.Timeout = 5 * time.Minute
	}
	if result.ToolTimeout == 0 {
		result.ToolTimeout = 30 * time.Second
	}

	return result
}

// QueryToolEnabled возвращает true, если json_spec_query включён.
func (c *AgentConfig) QueryToolEnabled() bool {
	return c.EnableQueryTool == nil || *c.EnableQueryTool
}

// DebugConfig — debug дамп выполнения агента.
type DebugConfig struct {
	Enabled            bool   `yaml:"enabled"`
	LogsDir            string `yaml:"logs_dir"`
	IncludeToolArgs    bool   `yaml:"include_tool_args"`
	IncludeToolResults bool   `yaml:"include_tool_results"`
	MaxResultSize      int    `yaml:"max_result_size"`
	UploadToS3         bool   `yaml:"upload_to_s3"`
}

// ExportConfig — дамп маппинга "район → процент зелени".
type ExportConfig struct {
	Path       string `yaml:"path"`
	Format     string `yaml:"format"` // "json" | "sqlite"
	UploadToS3 bool   `yaml:"upload_to_s3"`
}

// S3Config — настройки объектного хранилища (опционально).
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"access_key"` // Поддерживает ${VAR}
	SecretKey string `yaml:"secret_key"` // Поддерживает ${VAR}
	UseSSL    bool   `yaml:"use_ssl"`
}

// Configured возвращает true, если S3 настроен.
func (c S3Config) Configured() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

// AppSpecific — общие настройки приложения.
type AppSpecific struct {
	Debug   bool   `yaml:"debug"`    // Пишет DEBUG строки в лог
	LogsDir string `yaml:"logs_dir"` // Директория для .log файла ("" = текущая)
}

// LoadDotEnv загружает .env файлы в окружение процесса.
//
// Отсутствующий файл не считается ошибкой: ключ может прийти
// из обычного окружения.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}

	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env files %v: %w", existing, err)
	}
	return nil
}

// Load читает YAML файл, подставляет ENV переменные и возвращает готовую структуру.
func Load(path string) (*AppConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found at: %s", path)
	}

	rawBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(rawBytes)
}

// Parse разбирает YAML (с подстановкой ${VAR}) поверх Default().
//
// Секции, не указанные в файле, остаются дефолтными.
func Parse(data []byte) (*AppConfig, error) {
	contentWithEnv := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(contentWithEnv), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault загружает config по пути или, если path пуст и файл не
// найден стандартным поиском, возвращает Default().
//
// Возвращает также путь, откуда был загружен конфиг ("" для Default()).
func LoadOrDefault(path string) (*AppConfig, string, error) {
	if path == "" {
		path = FindConfigPath()
	}
	if path == "" {
		cfg, err := LoadDefault()
		return cfg, "", err
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// LoadDefault возвращает проверенный Default() без чтения файлов.
func LoadDefault() (*AppConfig, error) {
	cfg := Default()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// applyDefaults заполняет незаданные поля секций.
func (c *AppConfig) applyDefaults() {
	c.Dataset = c.Dataset.GetDefaults()
	c.Agent = c.Agent.GetDefaults()

	if c.Export.Format == "" {
		c.Export.Format = "json"
	}
	if c.Debug.LogsDir == "" {
		c.Debug.LogsDir = "debug_logs"
	}

	for name, def := range c.Models.Definitions {
		if def.Timeout == 0 {
			def.Timeout = 2 * time.Minute
		}
		if def.Provider == ProviderOllama && def.BaseURL == "" {
			def.BaseURL = DefaultOllamaBaseURL
		}
		if def.Provider == ProviderAzure && def.APIVersion == "" {
			def.APIVersion = DefaultAzureAPIVersion
		}
		c.Models.Definitions[name] = def
	}
}

// validate проверяет обязательные поля.
func (c *AppConfig) validate() error {
	if c.Models.DefaultChat == "" {
		return fmt.Errorf("models.default_chat is required")
	}

	for name, def := range c.Models.Definitions {
		switch def.Provider {
		case ProviderAzure, ProviderOpenAI, ProviderOllama:
		default:
			return fmt.Errorf("model '%s': unknown provider '%s'", name, def.Provider)
		}
		if def.ModelName == "" {
			return fmt.Errorf("model '%s': model_name is required", name)
		}
		if def.Provider == ProviderAzure && def.BaseURL == "" {
			return fmt.Errorf("model '%s': base_url (Azure endpoint) is required", name)
		}
	}

	def, ok := c.Models.Definitions[c.Models.DefaultChat]
	if !ok {
		return fmt.Errorf("default_chat model '%s' is not defined in definitions", c.Models.DefaultChat)
	}
	if def.NeedsAPIKey() && def.ResolvedAPIKey() == "" {
		if def.APIKeyEnv != "" {
			return fmt.Errorf("model '%s': api key is empty (set %s)", c.Models.DefaultChat, def.APIKeyEnv)
		}
		return fmt.Errorf("model '%s': api_key is empty", c.Models.DefaultChat)
	}

	if c.Dataset.URL == "" {
		return fmt.Errorf("dataset.url is required")
	}
	if c.Agent.MaxIterations < 0 {
		return fmt.Errorf("agent.max_iterations must be positive, got %d", c.Agent.MaxIterations)
	}
	if c.Agent.MaxValueLength < 0 {
		return fmt.Errorf("agent.max_value_length must be positive, got %d", c.Agent.MaxValueLength)
	}

	switch c.Export.Format {
	case "json", "sqlite":
	default:
		return fmt.Errorf("export.format must be 'json' or 'sqlite', got '%s'", c.Export.Format)
	}

	if (c.Debug.UploadToS3 || c.Export.UploadToS3) && !c.S3.Configured() {
		return fmt.Errorf("s3.endpoint and s3.bucket are required when upload_to_s3 is set")
	}

	return nil
}

// GetChatModel возвращает конфигурацию модели по имени или модели по умолчанию.
func (c *AppConfig) GetChatModel(name string) (ModelDef, bool) {
	if name == "" {
		name = c.Models.DefaultChat
	}
	m, ok := c.Models.Definitions[name]
	return m, ok
}
