package chain

import (
	"context"
	"time"

	"github.com/ilkoid/greenery-agent/pkg/events"
	"github.com/ilkoid/greenery-agent/pkg/llm"
)

// EmitterObserver отправляет финальные события жизненного цикла в Emitter:
// EventDone при успехе, EventError при ошибке.
type EmitterObserver struct {
	emitter events.Emitter
}

// NewEmitterObserver создаёт новый EmitterObserver.
func NewEmitterObserver(emitter events.Emitter) *EmitterObserver {
	return &EmitterObserver{emitter: emitter}
}

func (o *EmitterObserver) OnStart(ctx context.Context, exec *ReActExecution) {}

func (o *EmitterObserver) OnIterationStart(iteration int) {}

func (o *EmitterObserver) OnIterationEnd(iteration int) {}

// OnFinish отправляет EventDone или EventError.
func (o *EmitterObserver) OnFinish(result ChainOutput, err error) {
	if o.emitter == nil {
		return
	}

	ctx := context.Background()

	if err != nil {
		o.emitter.Emit(ctx, events.Event{
			Type:      events.EventError,
			Data:      events.ErrorData{Err: err},
			Timestamp: time.Now(),
		})
		return
	}

	o.emitter.Emit(ctx, events.Event{
		Type: events.EventDone,
		Data: events.MessageData{
			Content:    result.Result,
			StopReason: string(result.StopReason),
		},
		Timestamp: time.Now(),
	})
}

var _ ExecutionObserver = (*EmitterObserver)(nil)

// EmitterIterationObserver отправляет события внутри итерации:
// рассуждение модели, вызовы инструментов, их результаты, итоговый текст.
//
// Вызывается executor'ом напрямую, а не через ExecutionObserver:
// этим событиям нужны данные итерации.
type EmitterIterationObserver struct {
	emitter events.Emitter
}

// NewEmitterIterationObserver создаёт новый EmitterIterationObserver.
func NewEmitterIterationObserver(emitter events.Emitter) *EmitterIterationObserver {
	return &EmitterIterationObserver{emitter: emitter}
}

// EmitThinking отправляет текст модели, пришедший вместе с tool calls.
func (o *EmitterIterationObserver) EmitThinking(ctx context.Context, content string, iteration int) {
	if o.emitter == nil {
		return
	}
	o.emitter.Emit(ctx, events.Event{
		Type:      events.EventThinking,
		Data:      events.ThinkingData{Content: content, Iteration: iteration},
		Timestamp: time.Now(),
	})
}

// EmitToolCall отправляет EventToolCall.
func (o *EmitterIterationObserver) EmitToolCall(ctx context.Context, toolCall llm.ToolCall) {
	if o.emitter == nil {
		return
	}
	o.emitter.Emit(ctx, events.Event{
		Type: events.EventToolCall,
		Data: events.ToolCallData{
			ToolName: toolCall.Name,
			Args:     toolCall.Args,
		},
		Timestamp: time.Now(),
	})
}

// EmitToolResult отправляет EventToolResult.
func (o *EmitterIterationObserver) EmitToolResult(ctx context.Context, result ToolResult) {
	if o.emitter == nil {
		return
	}
	o.emitter.Emit(ctx, events.Event{
		Type: events.EventToolResult,
		Data: events.ToolResultData{
			ToolName: result.Name,
			Result:   result.Result,
			Duration: result.Duration,
			Success:  result.Success,
		},
		Timestamp: time.Now(),
	})
}

// EmitMessage отправляет EventMessage с итоговым текстом.
func (o *EmitterIterationObserver) EmitMessage(ctx context.Context, content string) {
	if o.emitter == nil {
		return
	}
	o.emitter.Emit(ctx, events.Event{
		Type:      events.EventMessage,
		Data:      events.MessageData{Content: content},
		Timestamp: time.Now(),
	})
}
