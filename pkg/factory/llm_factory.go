// Package factory создаёт LLM провайдеров по определению модели.
package factory

import (
	"fmt"

	"github.com/ilkoid/greenery-agent/pkg/config"
	"github.com/ilkoid/greenery-agent/pkg/llm"
	"github.com/ilkoid/greenery-agent/pkg/llm/openai"
)

// NewLLMProvider создает провайдера на основе конфигурации модели.
//
// Azure OpenAI, OpenAI и Ollama обслуживаются одним go-openai адаптером.
func NewLLMProvider(modelDef config.ModelDef) (llm.Provider, error) {
	switch modelDef.Provider {
	case config.ProviderAzure, config.ProviderOpenAI, config.ProviderOllama:
		client, err := openai.NewClient(modelDef)
		if err != nil {
			return nil, fmt.Errorf("%s provider: %w", modelDef.Provider, err)
		}
		return client, nil

	default:
		return nil, fmt.Errorf("unknown provider type: %s", modelDef.Provider)
	}
}
