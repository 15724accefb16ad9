package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ilkoid/greenery-agent/pkg/llm"
	"github.com/ilkoid/greenery-agent/pkg/tools"
	"github.com/ilkoid/greenery-agent/pkg/utils"
)

// ToolExecutionStep — Step для выполнения инструментов.
//
// Выполняет tool calls из последнего ответа ассистента и добавляет
// результаты в историю как tool сообщения.
//
// Неизвестный инструмент, ошибка инструмента и таймаут не прерывают цикл:
// текст ошибки уходит модели как результат, и она может исправить вызов.
// Прерывает цикл только отмена внешнего контекста.
//
// Rule 1: "Raw In, String Out".
// Rule 3: Tools вызываются через Registry.
// Rule 7: Возвращает ошибку вместо panic.
type ToolExecutionStep struct {
	registry *tools.Registry

	debugRecorder *ChainDebugRecorder

	startTime time.Time

	// toolResults — результаты последнего Execute (для событий)
	toolResults []ToolResult

	// defaultToolTimeout — защитный timeout для всех инструментов
	defaultToolTimeout time.Duration

	// toolTimeouts — переопределение timeout для конкретных инструментов
	toolTimeouts map[string]time.Duration
}

// ToolResult — результат выполнения одного инструмента.
type ToolResult struct {
	Name     string
	Args     string
	Result   string
	Duration time.Duration
	Success  bool
	Error    error
}

// Name возвращает имя Step (для логирования).
func (s *ToolExecutionStep) Name() string {
	return "tool_execution"
}

// Execute выполняет все tool calls из последнего ответа ассистента.
func (s *ToolExecutionStep) Execute(ctx context.Context, chainCtx *ChainContext) StepResult {
	s.startTime = time.Now()
	s.toolResults = make([]ToolResult, 0)

	// 1. Последнее сообщение должно быть от ассистента
	lastMsg := chainCtx.GetLastMessage()
	if lastMsg == nil || lastMsg.Role != llm.RoleAssistant {
		return StepResult{}.WithError(fmt.Errorf("no assistant message found"))
	}

	// 2. Каждый tool call по порядку
	for _, tc := range lastMsg.ToolCalls {
		result, err := s.executeToolCall(ctx, tc)
		s.toolResults = append(s.toolResults, result)
		s.debugRecorder.RecordToolExecution(result)

		if err != nil {
			return StepResult{}.WithError(fmt.Errorf("tool execution aborted: %w", err))
		}

		// 3. Результат в историю
		if err := chainCtx.AppendMessage(llm.ToolMessage(tc.ID, result.Result)); err != nil {
			return StepResult{}.WithError(fmt.Errorf("failed to append tool result message: %w", err))
		}
	}

	return StepResult{
		Action: ActionContinue,
		Signal: SignalNone,
	}
}

// executeToolCall выполняет один tool call.
//
// Ошибка возвращается только при отмене родительского контекста.
// Все прочие сбои описываются в result.Result для модели.
func (s *ToolExecutionStep) executeToolCall(ctx context.Context, tc llm.ToolCall) (ToolResult, error) {
	start := time.Now()
	result := ToolResult{
		Name: tc.Name,
		Args: tc.Args,
	}

	if err := ctx.Err(); err != nil {
		result.Error = err
		result.Result = "Tool execution was cancelled"
		return result, err
	}

	// 1. Tool из registry (Rule 3)
	tool, err := s.registry.Get(tc.Name)
	if err != nil {
		result.Error = err
		result.Result = fmt.Sprintf("%s is not a valid tool, try one of [%s].", tc.Name, strings.Join(s.registry.Names(), ", "))
		utils.Warn("Model called unknown tool", "tool", tc.Name)
		return result, nil
	}

	// 2. Timeout для этого инструмента
	timeout := s.timeoutFor(tc.Name)
	toolCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// 3. Tool в отдельной goroutine, чтобы зависший инструмент не держал цикл
	type execResult struct {
		output string
		err    error
	}
	resultChan := make(chan execResult, 1)

	go func() {
		out, execErr := tool.Execute(toolCtx, utils.CleanJsonBlock(tc.Args))
		resultChan <- execResult{out, execErr}
	}()

	// 4. Результат или timeout
	select {
	case <-toolCtx.Done():
		result.Duration = time.Since(start)

		if ctx.Err() != nil {
			// Отменён весь запуск
			result.Error = fmt.Errorf("tool execution cancelled: %w", ctx.Err())
			result.Result = "Tool execution was cancelled"
			return result, result.Error
		}

		result.Error = fmt.Errorf("tool execution timeout after %v", timeout)
		result.Result = fmt.Sprintf("Tool %q exceeded timeout of %v.", tc.Name, timeout)
		utils.Warn("Tool execution timeout",
			"tool", tc.Name,
			"timeout", timeout,
			"duration_ms", result.Duration.Milliseconds())
		return result, nil

	case res := <-resultChan:
		result.Duration = time.Since(start)

		if res.err != nil {
			if errors.Is(res.err, context.Canceled) && ctx.Err() != nil {
				result.Error = res.err
				result.Result = "Tool execution was cancelled"
				return result, res.err
			}
			result.Error = res.err
			result.Result = fmt.Sprintf("Error: %v", res.err)
			return result, nil
		}

		result.Success = true
		result.Result = res.output
		return result, nil
	}
}

func (s *ToolExecutionStep) timeoutFor(toolName string) time.Duration {
	if custom, ok := s.toolTimeouts[toolName]; ok {
		return custom
	}
	if s.defaultToolTimeout > 0 {
		return s.defaultToolTimeout
	}
	return DefaultToolTimeout
}

// GetToolResults возвращает результаты последнего Execute.
func (s *ToolExecutionStep) GetToolResults() []ToolResult {
	return s.toolResults
}

// GetDuration возвращает длительность выполнения step.
func (s *ToolExecutionStep) GetDuration() time.Duration {
	return time.Since(s.startTime)
}

// SetDefaultToolTimeout устанавливает защитный timeout для всех инструментов.
//
// Вызывать до начала Execute().
func (s *ToolExecutionStep) SetDefaultToolTimeout(timeout time.Duration) {
	s.defaultToolTimeout = timeout
}

// SetToolTimeout переопределяет timeout для конкретного инструмента.
//
// Вызывать до начала Execute().
func (s *ToolExecutionStep) SetToolTimeout(toolName string, timeout time.Duration) {
	if s.toolTimeouts == nil {
		s.toolTimeouts = make(map[string]time.Duration)
	}
	s.toolTimeouts[toolName] = timeout
}

// GetDefaultToolTimeout возвращает текущий default timeout.
func (s *ToolExecutionStep) GetDefaultToolTimeout() time.Duration {
	return s.defaultToolTimeout
}
