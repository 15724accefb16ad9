package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/ilkoid/greenery-agent/pkg/config"
	"github.com/ilkoid/greenery-agent/pkg/llm"
	"github.com/ilkoid/greenery-agent/pkg/models"
	"github.com/ilkoid/greenery-agent/pkg/tools"
	"github.com/ilkoid/greenery-agent/pkg/utils"
)

// LLMInvocationStep — Step для вызова модели.
//
// Отправляет системный промпт, историю и определения инструментов,
// добавляет ответ ассистента в историю.
//
// Rule 4: Работает через llm.Provider интерфейс.
// Rule 5: Thread-safe через ChainContext.
// Rule 7: Возвращает ошибку вместо panic.
type LLMInvocationStep struct {
	// modelRegistry — реестр LLM провайдеров (Rule 3)
	modelRegistry *models.Registry

	// defaultModel — имя модели из config (models.default_chat или -model)
	defaultModel string

	// registry — реестр инструментов для получения определений (Rule 3)
	registry *tools.Registry

	systemPrompt string

	debugRecorder *ChainDebugRecorder

	startTime time.Time
}

// Name возвращает имя Step (для логирования).
func (s *LLMInvocationStep) Name() string {
	return "llm_invocation"
}

// Execute выполняет вызов модели.
//
// Возвращает:
//   - {ActionContinue, SignalNone} — в ответе есть tool calls
//   - {ActionBreak, SignalFinalAnswer} — финальный ответ без tool calls
//   - StepResult с ошибкой — провайдер не найден или вызов упал
func (s *LLMInvocationStep) Execute(ctx context.Context, chainCtx *ChainContext) StepResult {
	s.startTime = time.Now()

	// 1. Провайдер и конфигурация модели
	provider, modelDef, actualModel, err := s.modelRegistry.GetWithFallback(chainCtx.Input.Model, s.defaultModel)
	if err != nil {
		return StepResult{}.WithError(fmt.Errorf("failed to get model provider: %w", err))
	}

	// 2. Параметры вызова
	opts := s.determineLLMOptions(modelDef)

	// 3. Сообщения и инструменты
	messages := chainCtx.BuildContextMessages(s.systemPrompt)
	toolDefs := s.registry.GetDefinitions()

	s.debugRecorder.RecordLLMRequest(actualModel, opts, len(messages), toolDefs)

	generateOpts := []any{toolDefs}
	if opts.Model != "" {
		generateOpts = append(generateOpts, llm.WithModel(opts.Model))
	}
	if opts.Temperature != 0 {
		generateOpts = append(generateOpts, llm.WithTemperature(opts.Temperature))
	}
	if opts.MaxTokens != 0 {
		generateOpts = append(generateOpts, llm.WithMaxTokens(opts.MaxTokens))
	}
	if opts.ParallelToolCalls != nil {
		generateOpts = append(generateOpts, llm.WithParallelToolCalls(*opts.ParallelToolCalls))
	}

	// 4. Вызов модели (Rule 4)
	llmStart := time.Now()
	response, err := provider.Generate(ctx, messages, generateOpts...)
	llmDuration := time.Since(llmStart)

	s.debugRecorder.RecordLLMResponse(response, llmDuration, err)

	if err != nil {
		return StepResult{}.WithError(fmt.Errorf("LLM generation failed: %w", err))
	}

	utils.Debug("LLM response",
		"model", actualModel,
		"iteration", chainCtx.GetCurrentIteration(),
		"tool_calls", len(response.ToolCalls),
		"content_length", len(response.Content),
		"duration_ms", llmDuration.Milliseconds())

	// Без ID tool сообщение не связать с вызовом: некоторые
	// OpenAI-совместимые серверы его не присылают.
	for i := range response.ToolCalls {
		if response.ToolCalls[i].ID == "" {
			response.ToolCalls[i].ID = fmt.Sprintf("call_%d_%d", chainCtx.GetCurrentIteration(), i)
		}
	}

	// 5. Ответ ассистента в историю
	if err := chainCtx.AppendMessage(llm.Message{
		Role:      llm.RoleAssistant,
		Content:   response.Content,
		ToolCalls: response.ToolCalls,
	}); err != nil {
		return StepResult{}.WithError(fmt.Errorf("failed to append assistant message: %w", err))
	}
	chainCtx.SetActualModel(actualModel)

	// 6. Сигнал по ответу
	if len(response.ToolCalls) == 0 {
		return StepResult{
			Action: ActionBreak,
			Signal: SignalFinalAnswer,
		}
	}

	return StepResult{
		Action: ActionContinue,
		Signal: SignalNone,
	}
}

// determineLLMOptions берёт параметры вызова из определения модели.
func (s *LLMInvocationStep) determineLLMOptions(modelDef config.ModelDef) llm.GenerateOptions {
	return llm.GenerateOptions{
		Model:             modelDef.ModelName,
		Temperature:       modelDef.Temperature,
		MaxTokens:         modelDef.MaxTokens,
		ParallelToolCalls: modelDef.ParallelToolCalls,
	}
}

// GetDuration возвращает длительность выполнения step.
func (s *LLMInvocationStep) GetDuration() time.Duration {
	return time.Since(s.startTime)
}
