// Package ui реализует интерактивный режим greenery-agent на Bubble Tea.
//
// Датасет загружается один раз до старта программы; каждый вопрос из поля
// ввода запускает отдельный прогон агента вне UI горутины.
package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ilkoid/greenery-agent/pkg/chain"
	"github.com/ilkoid/greenery-agent/pkg/events"
)

// Info — данные для строки статуса.
type Info struct {
	Model   string
	Source  string
	Verbose bool
}

// MainModel представляет главную модель UI (Bubble Tea Model).
//
// Содержит:
//   - viewport: лог вопросов и ответов (только для чтения)
//   - input: поле ввода вопроса
//   - spinner: индикатор работы агента
//   - agent: ReAct цикл (через chain.Agent)
//   - eventSub: события агента для verbose трейса
type MainModel struct {
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	ctx      context.Context
	agent    chain.Agent
	eventSub events.Subscriber
	info     Info

	// logLines — строки лога без переноса; переносятся при каждом resize
	logLines []string

	processing bool
	ready      bool
}

// InitialModel создает начальное состояние UI.
//
// ctx отменяет текущий запрос агента (например, по SIGINT).
// eventSub может быть nil: тогда трейс инструментов не показывается.
func InitialModel(ctx context.Context, agent chain.Agent, eventSub events.Subscriber, info Info) MainModel {
	// 1. Поле ввода
	ti := textinput.New()
	ti.Placeholder = "Ask about the dataset (exit to quit)..."
	ti.Prompt = "┃ "
	ti.CharLimit = 500
	ti.Focus()

	// 2. Спиннер
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	m := MainModel{
		viewport: viewport.New(0, 0),
		input:    ti,
		spinner:  sp,
		ctx:      ctx,
		agent:    agent,
		eventSub: eventSub,
		info:     info,
	}
	m.appendLog(systemMsgStyle("Greenery agent ready."))
	m.appendLog(systemMsgStyle(fmt.Sprintf("Dataset: %s", info.Source)))
	return m
}

// Init запускается один раз при старте Bubble Tea программы.
func (m MainModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		receiveEventCmd(m.eventSub),
	)
}

// Processing сообщает, работает ли сейчас агент.
func (m MainModel) Processing() bool {
	return m.processing
}

// Log возвращает строки лога без переноса.
func (m MainModel) Log() []string {
	out := make([]string, len(m.logLines))
	copy(out, m.logLines)
	return out
}
