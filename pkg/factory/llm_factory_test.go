package factory

import (
	"testing"

	"github.com/ilkoid/greenery-agent/pkg/config"
	"github.com/stretchr/testify/assert"
)

func TestNewLLMProvider(t *testing.T) {
	tests := []struct {
		name    string
		def     config.ModelDef
		wantErr string
	}{
		{name: "azure", def: config.ModelDef{Provider: "azure", ModelName: "o3-mini", BaseURL: "https://x.test/"}},
		{name: "openai", def: config.ModelDef{Provider: "openai", ModelName: "gpt-4o-mini"}},
		{name: "ollama", def: config.ModelDef{Provider: "ollama", ModelName: "llama3"}},
		{name: "azure without endpoint", def: config.ModelDef{Provider: "azure", ModelName: "o3-mini"}, wantErr: "azure provider"},
		{name: "unknown", def: config.ModelDef{Provider: "zai"}, wantErr: "unknown provider type: zai"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewLLMProvider(tt.def)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				assert.Nil(t, p)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, p)
		})
	}
}
