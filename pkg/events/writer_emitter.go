package events

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Стили verbose трейса. Без TTY lipgloss сам отключает цвета.
var (
	toolCallStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	toolResultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	thinkingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Italic(true)
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	doneStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

// WriterEmitter печатает ход работы агента в io.Writer.
//
// Используется CLI в режиме -verbose: показывает вызовы инструментов
// и их результаты по мере выполнения. Итоговый ответ не печатает,
// его выводит сам CLI.
type WriterEmitter struct {
	mu sync.Mutex
	w  io.Writer

	// MaxResultLen — обрезка результатов инструментов (0 = без обрезки)
	MaxResultLen int
}

// NewWriterEmitter создаёт WriterEmitter с обрезкой результатов до 300 символов.
func NewWriterEmitter(w io.Writer) *WriterEmitter {
	return &WriterEmitter{w: w, MaxResultLen: 300}
}

// Emit форматирует событие и пишет его строкой в writer.
func (e *WriterEmitter) Emit(ctx context.Context, event Event) {
	if ctx.Err() != nil {
		return
	}

	line := e.format(event)
	if line == "" {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	fmt.Fprintln(e.w, line)
}

func (e *WriterEmitter) format(event Event) string {
	switch data := event.Data.(type) {
	case ThinkingData:
		if strings.TrimSpace(data.Content) == "" {
			return ""
		}
		return thinkingStyle.Render(fmt.Sprintf("Thought [%d]: %s", data.Iteration, data.Content))

	case ToolCallData:
		return toolCallStyle.Render(fmt.Sprintf("> %s %s", data.ToolName, data.Args))

	case ToolResultData:
		result := data.Result
		if e.MaxResultLen > 0 && len([]rune(result)) > e.MaxResultLen {
			result = string([]rune(result)[:e.MaxResultLen]) + "..."
		}
		status := "ok"
		if !data.Success {
			status = "failed"
		}
		return toolResultStyle.Render(fmt.Sprintf("< %s (%s, %s): %s",
			data.ToolName, status, data.Duration.Round(time.Millisecond), result))

	case ErrorData:
		if data.Err == nil {
			return ""
		}
		return errorStyle.Render("Error: " + data.Err.Error())

	case MessageData:
		if event.Type != EventDone {
			return ""
		}
		return doneStyle.Render(fmt.Sprintf("Finished chain (%s).", data.StopReason))
	}
	return ""
}

var _ Emitter = (*WriterEmitter)(nil)
