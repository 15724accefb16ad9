package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ilkoid/greenery-agent/pkg/llm"
	"github.com/ilkoid/greenery-agent/pkg/utils"
)

// StepExecutor — исполнитель пайплайна шагов.
//
// Отделяет логику цикла от данных (ReActExecution): ReActCycle создаёт
// execution, StepExecutor его прогоняет.
type StepExecutor interface {
	Execute(ctx context.Context, exec *ReActExecution) (ChainOutput, error)
}

// ReActExecutor — классический ReAct цикл: LLM → Tools → повтор.
//
// # Iteration Loop
//
// Для каждой итерации (не больше MaxIterations):
//  1. OnIterationStart
//  2. LLMInvocationStep
//  3. Нет tool calls → финальный ответ, выход
//  4. ToolExecutionStep, события по результатам
//  5. OnIterationEnd
//
// Лимит итераций исчерпан → IterationLimitMessage и StopIterationLimit.
// Истёк таймаут цикла → то же сообщение и StopTimeLimit. Оба случая не
// считаются ошибкой. Ошибка модели и отмена внешнего контекста прерывают
// выполнение с ошибкой.
type ReActExecutor struct {
	observers []ExecutionObserver

	// iterationObserver — события внутри итерации
	iterationObserver *EmitterIterationObserver
}

// ExecutionObserver — наблюдатель за жизненным циклом выполнения.
//
// Реализации: ChainDebugRecorder (трейс), EmitterObserver (EventDone/EventError).
//
// Контракт:
//  1. OnStart вызывается один раз в начале
//  2. OnIterationStart/OnIterationEnd — на каждую итерацию
//  3. OnFinish вызывается один раз в конце (успех или ошибка)
type ExecutionObserver interface {
	OnStart(ctx context.Context, exec *ReActExecution)
	OnIterationStart(iteration int)
	OnIterationEnd(iteration int)
	OnFinish(result ChainOutput, err error)
}

// NewReActExecutor создаёт новый ReActExecutor.
func NewReActExecutor() *ReActExecutor {
	return &ReActExecutor{
		observers: make([]ExecutionObserver, 0),
	}
}

// AddObserver добавляет наблюдателя. Вызывать до Execute().
func (e *ReActExecutor) AddObserver(observer ExecutionObserver) {
	e.observers = append(e.observers, observer)
}

// SetIterationObserver устанавливает наблюдатель событий внутри итерации.
func (e *ReActExecutor) SetIterationObserver(observer *EmitterIterationObserver) {
	e.iterationObserver = observer
}

// Execute выполняет ReAct цикл.
//
// ctx — контекст цикла (с таймаутом ReActCycleConfig.Timeout).
// exec.ctx — внешний контекст вызывающего: по нему отличаем
// истечение собственного таймаута от отмены пользователем.
func (e *ReActExecutor) Execute(ctx context.Context, exec *ReActExecution) (ChainOutput, error) {
	if err := e.initializeExecution(ctx, exec); err != nil {
		return e.notifyFinishWithError(exec, err)
	}

	for i := 0; i < exec.config.MaxIterations; i++ {
		iteration := exec.chainCtx.IncrementIteration()
		e.notifyIterationStart(iteration)

		// LLM step
		llmResult, lastMsg, err := e.executeLLMStep(ctx, exec, iteration)
		if err != nil {
			if e.timeLimitReached(ctx, exec) {
				return e.finalizeExecution(exec, StopTimeLimit)
			}
			return e.notifyFinishWithError(exec, err)
		}

		// Финальный ответ
		if llmResult.Signal == SignalFinalAnswer || !lastMsg.HasToolCalls() {
			exec.finalSignal = SignalFinalAnswer
			e.notifyIterationEnd(iteration)
			return e.finalizeExecution(exec, StopFinalAnswer)
		}

		// Tool execution
		if err := e.handleToolExecution(ctx, exec, iteration); err != nil {
			if e.timeLimitReached(ctx, exec) {
				return e.finalizeExecution(exec, StopTimeLimit)
			}
			return e.notifyFinishWithError(exec, err)
		}

		e.notifyIterationEnd(iteration)
	}

	utils.Warn("ReAct cycle hit iteration limit",
		"max_iterations", exec.config.MaxIterations,
		"query", exec.chainCtx.Input.UserQuery)

	return e.finalizeExecution(exec, StopIterationLimit)
}

// initializeExecution уведомляет наблюдателей и кладёт вопрос в историю.
func (e *ReActExecutor) initializeExecution(ctx context.Context, exec *ReActExecution) error {
	for _, obs := range e.observers {
		obs.OnStart(ctx, exec)
	}

	if err := exec.chainCtx.AppendMessage(llm.UserMessage(exec.chainCtx.Input.UserQuery)); err != nil {
		return fmt.Errorf("failed to append user message: %w", err)
	}
	return nil
}

// executeLLMStep выполняет LLM шаг итерации.
func (e *ReActExecutor) executeLLMStep(ctx context.Context, exec *ReActExecution, iteration int) (StepResult, *llm.Message, error) {
	llmResult := exec.llmStep.Execute(ctx, exec.chainCtx)

	if llmResult.Action == ActionError || llmResult.Error != nil {
		err := llmResult.Error
		if err == nil {
			err = fmt.Errorf("LLM step failed")
		}
		return StepResult{}, nil, err
	}

	lastMsg := exec.chainCtx.GetLastMessage()

	if e.iterationObserver != nil && lastMsg.HasToolCalls() {
		e.iterationObserver.EmitThinking(ctx, lastMsg.Content, iteration)
		for _, tc := range lastMsg.ToolCalls {
			e.iterationObserver.EmitToolCall(ctx, tc)
		}
	}

	return llmResult, lastMsg, nil
}

// handleToolExecution выполняет tool шаг и отправляет EventToolResult.
func (e *ReActExecutor) handleToolExecution(ctx context.Context, exec *ReActExecution, iteration int) error {
	toolResult := exec.toolStep.Execute(ctx, exec.chainCtx)

	utils.Debug("Tool execution completed",
		"iteration", iteration,
		"action", toolResult.Action,
		"tools", len(exec.toolStep.GetToolResults()),
		"error", toolResult.Error)

	if e.iterationObserver != nil {
		for _, tr := range exec.toolStep.GetToolResults() {
			e.iterationObserver.EmitToolResult(ctx, tr)
		}
	}

	if toolResult.Action == ActionError || toolResult.Error != nil {
		err := toolResult.Error
		if err == nil {
			err = fmt.Errorf("tool execution failed")
		}
		return err
	}
	return nil
}

// timeLimitReached — истёк таймаут цикла, а внешний контекст жив.
func (e *ReActExecutor) timeLimitReached(ctx context.Context, exec *ReActExecution) bool {
	return errors.Is(ctx.Err(), context.DeadlineExceeded) && exec.ctx.Err() == nil
}

// finalizeExecution формирует ChainOutput и уведомляет наблюдателей.
func (e *ReActExecutor) finalizeExecution(exec *ReActExecution, reason StopReason) (ChainOutput, error) {
	result := IterationLimitMessage
	if reason == StopFinalAnswer {
		result = exec.chainCtx.GetLastMessage().Content
	}

	utils.Debug("ReAct cycle completed",
		"iterations", exec.chainCtx.GetCurrentIteration(),
		"stop_reason", reason,
		"result_length", len(result),
		"duration_ms", time.Since(exec.startTime).Milliseconds())

	// Внешний контекст: контекст цикла к этому моменту может быть уже истёкшим
	if e.iterationObserver != nil {
		e.iterationObserver.EmitMessage(exec.ctx, result)
	}

	output := ChainOutput{
		Result:     result,
		Iterations: exec.chainCtx.GetCurrentIteration(),
		Duration:   time.Since(exec.startTime),
		FinalState: exec.chainCtx.GetMessages(),
		StopReason: reason,
		Signal:     exec.finalSignal,
	}

	for _, obs := range e.observers {
		obs.OnFinish(output, nil)
	}

	for _, obs := range e.observers {
		if debugRec, ok := obs.(*ChainDebugRecorder); ok {
			output.DebugPath = debugRec.GetLogPath()
			break
		}
	}

	return output, nil
}

func (e *ReActExecutor) notifyIterationStart(iteration int) {
	for _, obs := range e.observers {
		obs.OnIterationStart(iteration)
	}
}

func (e *ReActExecutor) notifyIterationEnd(iteration int) {
	for _, obs := range e.observers {
		obs.OnIterationEnd(iteration)
	}
}

// notifyFinishWithError завершает выполнение с ошибкой.
func (e *ReActExecutor) notifyFinishWithError(exec *ReActExecution, err error) (ChainOutput, error) {
	exec.finalSignal = SignalError
	output := ChainOutput{
		Iterations: exec.chainCtx.GetCurrentIteration(),
		Duration:   time.Since(exec.startTime),
		Signal:     SignalError,
	}
	for _, obs := range e.observers {
		obs.OnFinish(output, err)
	}
	return ChainOutput{}, err
}

var _ StepExecutor = (*ReActExecutor)(nil)
