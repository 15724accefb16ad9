// Package openai реализует адаптер LLM провайдера поверх go-openai.
//
// Один адаптер обслуживает три провайдера:
//   - azure  — Azure OpenAI (endpoint ресурса + api-version + deployment)
//   - openai — OpenAI или любой совместимый endpoint (base_url)
//   - ollama — локальный Ollama через OpenAI-совместимый /v1
//
// Поддерживает Function Calling (tools). Соблюдает правило 4: работает
// только через интерфейс llm.Provider.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ilkoid/greenery-agent/pkg/config"
	"github.com/ilkoid/greenery-agent/pkg/llm"
	"github.com/ilkoid/greenery-agent/pkg/tools"
	"github.com/ilkoid/greenery-agent/pkg/utils"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// Client реализует интерфейс llm.Provider.
type Client struct {
	api       *openai.Client
	provider  string
	defaults  llm.GenerateOptions
	reasoning bool

	// limiter ограничивает частоту вызовов модели (nil = без ограничения).
	limiter *rate.Limiter
}

// NewClient создает клиент на основе определения модели.
//
// Правило 2: все настройки из конфигурации, никакого хардкода.
func NewClient(modelDef config.ModelDef) (*Client, error) {
	apiKey := modelDef.ResolvedAPIKey()

	var cfg openai.ClientConfig
	switch modelDef.Provider {
	case config.ProviderAzure:
		if modelDef.BaseURL == "" {
			return nil, fmt.Errorf("azure provider requires base_url")
		}
		cfg = openai.DefaultAzureConfig(apiKey, modelDef.BaseURL)
		if modelDef.APIVersion != "" {
			cfg.APIVersion = modelDef.APIVersion
		}
		// Имя модели == имя deployment, без преобразований
		cfg.AzureModelMapperFunc = func(model string) string { return model }

	case config.ProviderOllama:
		// Ollama игнорирует ключ, но SDK требует непустой заголовок
		if apiKey == "" {
			apiKey = "ollama"
		}
		cfg = openai.DefaultConfig(apiKey)
		cfg.BaseURL = modelDef.BaseURL
		if cfg.BaseURL == "" {
			cfg.BaseURL = config.DefaultOllamaBaseURL
		}

	case config.ProviderOpenAI, "":
		cfg = openai.DefaultConfig(apiKey)
		if modelDef.BaseURL != "" {
			cfg.BaseURL = modelDef.BaseURL
		}

	default:
		return nil, fmt.Errorf("unsupported provider '%s'", modelDef.Provider)
	}

	if modelDef.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: modelDef.Timeout}
	}

	c := &Client{
		api:       openai.NewClientWithConfig(cfg),
		provider:  modelDef.Provider,
		reasoning: modelDef.Reasoning,
		defaults: llm.GenerateOptions{
			Model:             modelDef.ModelName,
			Temperature:       modelDef.Temperature,
			MaxTokens:         modelDef.MaxTokens,
			ParallelToolCalls: modelDef.ParallelToolCalls,
		},
	}

	if modelDef.RateLimit > 0 {
		// rate_limit в запросах/минуту → rate.Limit в запросах/секунду
		c.limiter = rate.NewLimiter(rate.Limit(float64(modelDef.RateLimit)/60.0), 1)
	}

	return c, nil
}

// Generate выполняет запрос к API и возвращает ответ модели.
//
// opts может содержать []tools.ToolDefinition и llm.GenerateOption.
//
// Алгоритм:
//  1. Ждёт rate limiter (с учётом ctx)
//  2. Конвертирует сообщения в формат SDK
//  3. Добавляет tools и параметры генерации
//  4. Вызывает API и конвертирует ответ обратно
//
// Правило 7: все ошибки возвращаются, никаких panic.
func (c *Client) Generate(ctx context.Context, messages []llm.Message, opts ...any) (llm.Message, error) {
	startTime := time.Now()

	var toolDefs []tools.ToolDefinition
	for _, opt := range opts {
		switch v := opt.(type) {
		case []tools.ToolDefinition:
			toolDefs = v
		case llm.GenerateOption:
		default:
			return llm.Message{}, fmt.Errorf("invalid option type: expected []tools.ToolDefinition or llm.GenerateOption, got %T", opt)
		}
	}
	params := c.defaults.Apply(opts...)

	// 1. Rate limit
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return llm.Message{}, fmt.Errorf("rate limiter wait: %w", err)
		}
	}

	utils.Debug("LLM request started",
		"provider", c.provider,
		"model", params.Model,
		"messages_count", len(messages),
		"tools_count", len(toolDefs))

	// 2-3. Собираем запрос
	req := c.buildRequest(messages, toolDefs, params)

	// 4. Вызываем API
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		utils.Error("LLM API request failed",
			"error", err,
			"model", params.Model,
			"duration_ms", time.Since(startTime).Milliseconds())
		return llm.Message{}, fmt.Errorf("%s api error: %w", c.provider, err)
	}

	if len(resp.Choices) == 0 {
		return llm.Message{}, fmt.Errorf("no choices in response")
	}

	result := mapFromOpenAI(resp.Choices[0].Message)

	utils.Info("LLM response received",
		"model", params.Model,
		"tool_calls_count", len(result.ToolCalls),
		"content_length", len(result.Content),
		"total_tokens", resp.Usage.TotalTokens,
		"duration_ms", time.Since(startTime).Milliseconds())

	return result, nil
}

// buildRequest собирает ChatCompletionRequest.
//
// Reasoning модели (o-series) принимают только max_completion_tokens
// и отклоняют temperature != 1, поэтому temperature не отправляется.
func (c *Client) buildRequest(messages []llm.Message, toolDefs []tools.ToolDefinition, params llm.GenerateOptions) openai.ChatCompletionRequest {
	openaiMsgs := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		openaiMsgs[i] = mapToOpenAI(m)
	}

	req := openai.ChatCompletionRequest{
		Model:    params.Model,
		Messages: openaiMsgs,
	}

	if c.reasoning {
		req.MaxCompletionTokens = params.MaxTokens
	} else {
		req.MaxTokens = params.MaxTokens
		req.Temperature = float32(params.Temperature)
	}

	if params.Format == "json_object" {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	if len(toolDefs) > 0 {
		req.Tools = convertToolsToOpenAI(toolDefs)
		// LLM сама решает когда вызывать tools
		req.ToolChoice = "auto"
		if params.ParallelToolCalls != nil {
			req.ParallelToolCalls = *params.ParallelToolCalls
		}
	}

	return req
}

// mapToOpenAI конвертирует внутреннее сообщение в формат SDK.
func mapToOpenAI(m llm.Message) openai.ChatCompletionMessage {
	msg := openai.ChatCompletionMessage{
		Role:       string(m.Role),
		Content:    m.Content,
		ToolCallID: m.ToolCallID,
	}

	if len(m.ToolCalls) > 0 {
		msg.ToolCalls = make([]openai.ToolCall, len(m.ToolCalls))
		for i, tc := range m.ToolCalls {
			msg.ToolCalls[i] = openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Args,
				},
			}
		}
	}

	return msg
}

// mapFromOpenAI конвертирует ответ SDK во внутреннее сообщение.
func mapFromOpenAI(choice openai.ChatCompletionMessage) llm.Message {
	result := llm.Message{
		Role:    llm.Role(choice.Role),
		Content: choice.Content,
	}
	if result.Role == "" {
		result.Role = llm.RoleAssistant
	}

	if len(choice.ToolCalls) > 0 {
		result.ToolCalls = make([]llm.ToolCall, len(choice.ToolCalls))
		for i, tc := range choice.ToolCalls {
			result.ToolCalls[i] = llm.ToolCall{
				ID:   tc.ID,
				Name: tc.Function.Name,
				Args: tc.Function.Arguments,
			}
		}
	}

	return result
}

// convertToolsToOpenAI конвертирует определения инструментов в формат
// OpenAI Function Calling.
//
// ToolDefinition.Parameters уже является JSON Schema объектом и
// передаётся в SDK напрямую.
func convertToolsToOpenAI(defs []tools.ToolDefinition) []openai.Tool {
	result := make([]openai.Tool, len(defs))

	for i, def := range defs {
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		}
	}

	return result
}
