package config

import (
	"os"
	"path/filepath"
	"time"
)

// Константы, с которыми работает агент без config.yaml.
const (
	DefaultDatasetURL      = "https://data.rivm.nl/geo/ank/ows"
	DefaultDatasetTypeName = "rivm_2022_groenpercentage_kaart_per_buurt"
	DefaultNameProperty    = "bu_naam"
	DefaultValueProperty   = "_mean"

	DefaultQuestion = "Can you find out what the neighborhood Binnenstad-Noord has as _mean?"

	DefaultAzureEndpoint   = "https://56948-m9bdjgpg-eastus2.cognitiveservices.azure.com/"
	DefaultAzureAPIVersion = "2025-01-01-preview"
	DefaultAzureKeyEnv     = "AZURE_OPENAI_API_KEY"
	DefaultOllamaBaseURL   = "http://localhost:11434/v1"

	DefaultExportPath = "groenPercentagePerBuurt.json"
)

// Default возвращает полную конфигурацию для запуска без config.yaml:
// Azure deployment o3-mini, RIVM WFS, 10 итераций, 4000 символов на значение.
//
// Ключ Azure берётся из AZURE_OPENAI_API_KEY в момент валидации,
// поэтому LoadDotEnv нужно вызвать до Default()/Load().
func Default() *AppConfig {
	return &AppConfig{
		Models: ModelsConfig{
			DefaultChat: "o3-mini",
			Definitions: map[string]ModelDef{
				"o3-mini": {
					Provider:   ProviderAzure,
					ModelName:  "o3-mini",
					APIKeyEnv:  DefaultAzureKeyEnv,
					BaseURL:    DefaultAzureEndpoint,
					APIVersion: DefaultAzureAPIVersion,
					Reasoning:  true,
					Timeout:    2 * time.Minute,
				},
				"llama3": {
					Provider:    ProviderOllama,
					ModelName:   "llama3",
					BaseURL:     DefaultOllamaBaseURL,
					Temperature: 0,
					Timeout:     5 * time.Minute,
				},
			},
		},
		Dataset: DatasetConfig{
			URL:           DefaultDatasetURL,
			TypeName:      DefaultDatasetTypeName,
			Properties:    []string{DefaultNameProperty, DefaultValueProperty},
			OutputFormat:  "json",
			Timeout:       60 * time.Second,
			NameProperty:  DefaultNameProperty,
			ValueProperty: DefaultValueProperty,
		},
		Agent: AgentConfig{
			Question:       DefaultQuestion,
			MaxIterations:  10,
			MaxValueLength: 4000,
			Timeout:        5 * time.Minute,
			ToolTimeout:    30 * time.Second,
		},
		Debug: DebugConfig{
			LogsDir:            "debug_logs",
			IncludeToolArgs:    true,
			IncludeToolResults: true,
			MaxResultSize:      5000,
		},
		Export: ExportConfig{
			Path:   DefaultExportPath,
			Format: "json",
		},
	}
}

// FindConfigPath ищет config.yaml.
//
// Порядок поиска:
//  1. Текущая директория (./config.yaml)
//  2. Директория бинарника
//  3. Родительские директории (для запуска из cmd/greenery/)
//
// Возвращает "" если файл не найден: вызывающий код использует Default().
func FindConfigPath() string {
	candidates := []string{"config.yaml"}

	if execPath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(execPath), "config.yaml"))
	}

	candidates = append(candidates,
		filepath.Join("..", "..", "config.yaml"),
		filepath.Join("..", "config.yaml"),
	)

	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
