package chain

import (
	"context"
	"fmt"
)

// NextAction определяет поведение Chain после выполнения Step.
type NextAction int

const (
	// ActionContinue — продолжить выполнение (следующий Step или итерация).
	ActionContinue NextAction = iota

	// ActionBreak — прервать цикл и вернуть результат.
	ActionBreak

	// ActionError — прервать выполнение с ошибкой.
	ActionError
)

// String возвращает строковое представление NextAction (для дебага).
func (a NextAction) String() string {
	switch a {
	case ActionContinue:
		return "Continue"
	case ActionBreak:
		return "Break"
	case ActionError:
		return "Error"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// ExecutionSignal — типизированный сигнал от Step.
type ExecutionSignal int

const (
	// SignalNone — особых условий нет.
	SignalNone ExecutionSignal = iota

	// SignalFinalAnswer — модель дала финальный ответ.
	SignalFinalAnswer

	// SignalError — шаг завершился ошибкой.
	SignalError
)

// String возвращает строковое представление сигнала.
func (s ExecutionSignal) String() string {
	switch s {
	case SignalNone:
		return "None"
	case SignalFinalAnswer:
		return "FinalAnswer"
	case SignalError:
		return "Error"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// StepResult — результат выполнения Step.
type StepResult struct {
	Action NextAction
	Signal ExecutionSignal
	Error  error
}

// WithError возвращает копию результата с ошибкой (ActionError + SignalError).
func (r StepResult) WithError(err error) StepResult {
	r.Action = ActionError
	r.Signal = SignalError
	r.Error = err
	return r
}

// Step — атомарный шаг выполнения Chain.
//
// Step не модифицирует ChainInput. Все изменения состояния проходят
// через методы ChainContext.
//
// Rule 7: ошибки возвращаются в StepResult, не через panic.
type Step interface {
	// Name возвращает уникальное имя Step (для логирования).
	Name() string

	Execute(ctx context.Context, chainCtx *ChainContext) StepResult
}

// StepFunc — функциональная обёртка для простых Step.
type StepFunc struct {
	name string
	fn   func(context.Context, *ChainContext) StepResult
}

// Name возвращает имя StepFunc.
func (s StepFunc) Name() string {
	return s.name
}

// Execute выполняет функцию StepFunc.
func (s StepFunc) Execute(ctx context.Context, chainCtx *ChainContext) StepResult {
	return s.fn(ctx, chainCtx)
}

// NewStepFunc создаёт Step из функции.
func NewStepFunc(name string, fn func(context.Context, *ChainContext) StepResult) Step {
	return StepFunc{name: name, fn: fn}
}
