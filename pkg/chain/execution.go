package chain

import (
	"context"
	"time"

	"github.com/ilkoid/greenery-agent/pkg/events"
)

// ReActExecution — runtime состояние одного вызова Execute().
//
// Чистый контейнер данных: логика цикла живёт в ReActExecutor.
// ReActCycle (шаблон) создаёт ReActExecution, ReActExecutor его исполняет.
//
// Создаётся на каждый вызов и не разделяется между goroutines.
type ReActExecution struct {
	ctx      context.Context
	chainCtx *ChainContext

	// Локальные копии шагов
	llmStep  *LLMInvocationStep
	toolStep *ToolExecutionStep

	emitter       events.Emitter
	debugRecorder *ChainDebugRecorder

	startTime time.Time

	// config читается, не копируется
	config *ReActCycleConfig

	finalSignal ExecutionSignal
}

// NewReActExecution создаёт execution для одного вызова Execute().
//
// Шаги клонируются из шаблона: у каждого выполнения свои результаты
// инструментов и тайминги.
func NewReActExecution(
	ctx context.Context,
	input ChainInput,
	llmStepTemplate *LLMInvocationStep,
	toolStepTemplate *ToolExecutionStep,
	emitter events.Emitter,
	debugRecorder *ChainDebugRecorder,
	config *ReActCycleConfig,
) *ReActExecution {
	llmStep := &LLMInvocationStep{
		modelRegistry: llmStepTemplate.modelRegistry,
		defaultModel:  llmStepTemplate.defaultModel,
		registry:      llmStepTemplate.registry,
		systemPrompt:  llmStepTemplate.systemPrompt,
		debugRecorder: debugRecorder,
	}

	toolStep := &ToolExecutionStep{
		registry:           toolStepTemplate.registry,
		debugRecorder:      debugRecorder,
		defaultToolTimeout: toolStepTemplate.defaultToolTimeout,
		toolTimeouts:       toolStepTemplate.toolTimeouts,
	}

	return &ReActExecution{
		ctx:           ctx,
		chainCtx:      NewChainContext(input),
		llmStep:       llmStep,
		toolStep:      toolStep,
		emitter:       emitter,
		debugRecorder: debugRecorder,
		startTime:     time.Now(),
		config:        config,
	}
}

// Context возвращает ChainContext выполнения (для наблюдателей и тестов).
func (e *ReActExecution) Context() *ChainContext {
	return e.chainCtx
}
