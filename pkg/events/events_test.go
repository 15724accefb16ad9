package events

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChanEmitter_DeliversInOrder(t *testing.T) {
	e := NewChanEmitter(4)
	sub := e.Subscribe()

	ctx := context.Background()
	e.Emit(ctx, Event{Type: EventToolCall, Data: ToolCallData{ToolName: "json_spec_list_keys"}})
	e.Emit(ctx, Event{Type: EventDone, Data: MessageData{Content: "18.73"}})
	e.Close()

	var got []EventType
	for ev := range sub.Events() {
		got = append(got, ev.Type)
	}
	assert.Equal(t, []EventType{EventToolCall, EventDone}, got)
}

func TestChanEmitter_EmitAfterCloseIsDropped(t *testing.T) {
	e := NewChanEmitter(1)
	e.Close()
	e.Close()

	assert.NotPanics(t, func() {
		e.Emit(context.Background(), Event{Type: EventDone})
	})
}

func TestChanEmitter_CanceledContextUnblocks(t *testing.T) {
	e := NewChanEmitter(0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		e.Emit(ctx, Event{Type: EventDone})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit did not return after context cancellation")
	}
}

func TestWriterEmitter_Format(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriterEmitter(&buf)
	w.MaxResultLen = 10
	ctx := context.Background()

	w.Emit(ctx, Event{Type: EventThinking, Data: ThinkingData{Content: "  "}})
	w.Emit(ctx, Event{Type: EventThinking, Data: ThinkingData{Content: "look at keys", Iteration: 1}})
	w.Emit(ctx, Event{Type: EventToolCall, Data: ToolCallData{ToolName: "json_spec_list_keys", Args: `{"path":"data"}`}})
	w.Emit(ctx, Event{Type: EventToolResult, Data: ToolResultData{ToolName: "json_spec_list_keys", Result: `["type", "features", "totalFeatures"]`, Success: true}})
	w.Emit(ctx, Event{Type: EventMessage, Data: MessageData{Content: "not printed"}})
	w.Emit(ctx, Event{Type: EventError, Data: ErrorData{Err: errors.New("boom")}})
	w.Emit(ctx, Event{Type: EventDone, Data: MessageData{Content: "x", StopReason: "final_answer"}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "Thought [1]: look at keys")
	assert.Contains(t, lines[1], `> json_spec_list_keys {"path":"data"}`)
	assert.Contains(t, lines[2], `["type", "...`)
	assert.Contains(t, lines[2], "ok")
	assert.Contains(t, lines[3], "Error: boom")
	assert.Contains(t, lines[4], "final_answer")
	assert.NotContains(t, buf.String(), "not printed")
}
