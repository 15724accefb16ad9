// Package events — Port для событий JSON агента.
//
// Агент (pkg/chain) зависит только от интерфейса Emitter. Адаптеры:
//   - WriterEmitter — verbose трейс в терминал (флаг -verbose)
//   - ChanEmitter — канал для интерактивного UI (internal/ui)
//
// # Basic Usage
//
//	emitter := events.NewChanEmitter(64)
//	cycle.SetEmitter(emitter)
//
//	sub := emitter.Subscribe()
//	for event := range sub.Events() {
//	    switch event.Type {
//	    case events.EventToolCall:
//	        ui.showToolCall(event.Data)
//	    case events.EventDone:
//	        ui.showAnswer(event.Data)
//	    }
//	}
//
// Все реализации должны быть thread-safe.
package events

import (
	"context"
	"time"
)

// EventType представляет тип события от агента.
type EventType string

const (
	// EventThinking — модель вернула промежуточный текст (рассуждение перед tool call).
	EventThinking EventType = "thinking"

	// EventToolCall — модель вызвала инструмент.
	EventToolCall EventType = "tool_call"

	// EventToolResult — инструмент вернул результат.
	EventToolResult EventType = "tool_result"

	// EventMessage — итоговый текст агента.
	EventMessage EventType = "message"

	// EventError — выполнение оборвалось ошибкой.
	EventError EventType = "error"

	// EventDone — агент завершил работу.
	EventDone EventType = "done"
)

// EventData — sealed interface для данных события.
//
// Только типы из пакета events могут реализовать этот интерфейс.
type EventData interface {
	eventData()
}

// ThinkingData содержит данные для EventThinking.
type ThinkingData struct {
	Content   string
	Iteration int
}

func (ThinkingData) eventData() {}

// ToolCallData содержит данные о вызове инструмента.
type ToolCallData struct {
	ToolName string
	Args     string
}

func (ToolCallData) eventData() {}

// ToolResultData содержит результат выполнения инструмента.
type ToolResultData struct {
	ToolName string
	Result   string
	Duration time.Duration
	Success  bool
}

func (ToolResultData) eventData() {}

// MessageData содержит данные для EventMessage и EventDone.
type MessageData struct {
	Content string

	// StopReason заполняется только в EventDone
	StopReason string
}

func (MessageData) eventData() {}

// ErrorData содержит данные для EventError.
type ErrorData struct {
	Err error
}

func (ErrorData) eventData() {}

// Event представляет событие от агента.
//
// Соответствие типов:
//   - EventThinking: ThinkingData
//   - EventToolCall: ToolCallData
//   - EventToolResult: ToolResultData
//   - EventMessage, EventDone: MessageData
//   - EventError: ErrorData
type Event struct {
	Type      EventType
	Data      EventData
	Timestamp time.Time
}

// Emitter — это Port для отправки событий.
//
// Rule 11: Emit уважает context.Context.
type Emitter interface {
	Emit(ctx context.Context, event Event)
}

// Subscriber позволяет читать события из канала.
type Subscriber interface {
	// Events возвращает read-only канал событий.
	// Канал закрывается при закрытии эмиттера.
	Events() <-chan Event

	Close()
}
