package chain

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ilkoid/greenery-agent/pkg/events"
	"github.com/ilkoid/greenery-agent/pkg/models"
	"github.com/ilkoid/greenery-agent/pkg/tools"
	"github.com/ilkoid/greenery-agent/pkg/utils"
)

// ReActCycle — agent executor JSON агента (Reasoning + Acting).
//
// Цикл:
//  1. Модель анализирует вопрос и историю, решает какой инструмент вызвать
//  2. Инструменты выполняются, результаты добавляются в историю
//  3. Повтор, пока модель не ответит без tool calls или не исчерпан лимит
//
// ReActCycle — шаблон, runtime состояние живёт в ReActExecution.
// Execute() можно вызывать повторно (интерактивный режим). Debug recorder
// ведёт один трейс, поэтому с ним запуски должны идти по одному.
//
// Rule 3: Tools вызываются через Registry.
// Rule 4: LLM вызывается через llm.Provider.
// Rule 7: Все ошибки возвращаются, нет panic.
type ReActCycle struct {
	modelRegistry *models.Registry
	registry      *tools.Registry
	defaultModel  string

	// source — источник документа для Run (URL датасета)
	source string

	config ReActCycleConfig

	// mu защищает emitter и debugRecorder, которые можно менять между запусками
	mu            sync.RWMutex
	emitter       events.Emitter
	debugRecorder *ChainDebugRecorder

	// Шаблоны шагов, клонируются в execution
	llmStep  *LLMInvocationStep
	toolStep *ToolExecutionStep
}

// NewReActCycle создаёт ReActCycle.
//
// Невалидная конфигурация заменяется дефолтной с предупреждением в лог.
func NewReActCycle(config ReActCycleConfig) *ReActCycle {
	if err := config.Validate(); err != nil {
		utils.Warn("Invalid ReAct config, using defaults", "error", err)
		config = NewReActCycleConfig()
	}

	cycle := &ReActCycle{config: config}

	cycle.llmStep = &LLMInvocationStep{
		systemPrompt: config.SystemPrompt,
	}
	cycle.toolStep = &ToolExecutionStep{
		defaultToolTimeout: config.ToolTimeout,
	}

	return cycle
}

// Config возвращает копию конфигурации.
func (c *ReActCycle) Config() ReActCycleConfig {
	return c.config
}

// SetModelRegistry устанавливает реестр моделей и модель для вызовов.
//
// Вызывать до Execute().
func (c *ReActCycle) SetModelRegistry(registry *models.Registry, defaultModel string) {
	c.modelRegistry = registry
	c.defaultModel = defaultModel
	c.llmStep.modelRegistry = registry
	c.llmStep.defaultModel = defaultModel
}

// SetRegistry устанавливает реестр инструментов.
//
// Вызывать до Execute().
func (c *ReActCycle) SetRegistry(registry *tools.Registry) {
	c.registry = registry
	c.llmStep.registry = registry
	c.toolStep.registry = registry
}

// SetToolTimeout переопределяет timeout конкретного инструмента.
//
// Вызывать до Execute().
func (c *ReActCycle) SetToolTimeout(toolName string, timeout time.Duration) {
	c.toolStep.SetToolTimeout(toolName, timeout)
}

// SetSource задаёт источник документа, который Run передаёт в ChainInput.
func (c *ReActCycle) SetSource(source string) {
	c.source = source
}

// AttachDebug присоединяет debug recorder.
func (c *ReActCycle) AttachDebug(recorder *ChainDebugRecorder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.debugRecorder = recorder
}

// SetEmitter устанавливает emitter для verbose вывода и UI.
//
// Port & Adapter: ReActCycle зависит только от events.Emitter.
func (c *ReActCycle) SetEmitter(emitter events.Emitter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emitter = emitter
}

// Execute выполняет ReAct цикл для одного вопроса.
//
//  1. Проверка зависимостей
//  2. Контекст с таймаутом цикла
//  3. ReActExecution (runtime state)
//  4. ReActExecutor с наблюдателями
func (c *ReActCycle) Execute(ctx context.Context, input ChainInput) (ChainOutput, error) {
	if err := c.validateDependencies(); err != nil {
		return ChainOutput{}, fmt.Errorf("invalid dependencies: %w", err)
	}
	if input.UserQuery == "" {
		return ChainOutput{}, fmt.Errorf("user query is empty")
	}

	c.mu.RLock()
	emitter := c.emitter
	debugRecorder := c.debugRecorder
	c.mu.RUnlock()

	runCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	execution := NewReActExecution(
		ctx,
		input,
		c.llmStep,
		c.toolStep,
		emitter,
		debugRecorder,
		&c.config,
	)

	executor := NewReActExecutor()
	if debugRecorder.Enabled() {
		executor.AddObserver(debugRecorder)
	}
	if emitter != nil {
		executor.AddObserver(NewEmitterObserver(emitter))
		executor.SetIterationObserver(NewEmitterIterationObserver(emitter))
	}

	utils.Info("ReAct cycle started",
		"model", c.defaultModel,
		"tools", c.registry.Names(),
		"max_iterations", c.config.MaxIterations)

	return executor.Execute(runCtx, execution)
}

func (c *ReActCycle) validateDependencies() error {
	if c.modelRegistry == nil {
		return fmt.Errorf("model registry is not set (call SetModelRegistry)")
	}
	if c.defaultModel == "" {
		return fmt.Errorf("default model is not set")
	}
	if c.registry == nil {
		return fmt.Errorf("tools registry is not set (call SetRegistry)")
	}
	return nil
}

// Run задаёт вопрос и возвращает текст ответа.
//
// При остановке по лимиту возвращается IterationLimitMessage без ошибки.
func (c *ReActCycle) Run(ctx context.Context, query string) (string, error) {
	output, err := c.Execute(ctx, ChainInput{UserQuery: query, Source: c.source})
	if err != nil {
		return "", err
	}
	return output.Result, nil
}

var (
	_ Chain = (*ReActCycle)(nil)
	_ Agent = (*ReActCycle)(nil)
)
