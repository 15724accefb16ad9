// Логика: обрабатывает нажатия клавиш, события агента и его ответы.

package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"

	"github.com/ilkoid/greenery-agent/pkg/events"
	"github.com/ilkoid/greenery-agent/pkg/utils"
)

// answerMsg — результат прогона агента (прилетает асинхронно).
type answerMsg struct {
	Query    string
	Output   string
	Err      error
	Duration time.Duration
}

const (
	headerHeight = 1
	footerHeight = 2 // граница + поле ввода
)

func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	// 1. Изменение размера окна терминала
	case tea.WindowSizeMsg:
		vpHeight := msg.Height - headerHeight - footerHeight
		if vpHeight < 1 {
			vpHeight = 1
		}
		m.viewport.Width = msg.Width
		m.viewport.Height = vpHeight
		m.input.Width = msg.Width - len(m.input.Prompt) - 1
		m.ready = true
		m.refreshViewport()

	// 2. Клавиши
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			query := strings.TrimSpace(m.input.Value())
			if query == "" || m.processing {
				return m, nil
			}
			if query == "exit" || query == "quit" {
				return m, tea.Quit
			}

			m.input.Reset()
			m.appendLog(userMsgStyle("YOU > ") + query)
			m.processing = true
			return m, tea.Batch(m.runQuery(query), m.spinner.Tick)
		}

	// 3. Ответ агента
	case answerMsg:
		m.processing = false
		if msg.Err != nil {
			m.appendLog(errorMsgStyle("ERROR: ") + msg.Err.Error())
		} else {
			m.appendLog(agentMsgStyle("AGENT > ") + msg.Output)
			m.appendLog(traceMsgStyle("  (" + msg.Duration.Round(time.Millisecond).String() + ")"))
		}
		m.input.Focus()
		return m, nil

	// 4. События агента (verbose трейс)
	case eventMsg:
		if m.info.Verbose {
			if line := formatEvent(events.Event(msg)); line != "" {
				m.appendLog(line)
			}
		}
		return m, receiveEventCmd(m.eventSub)

	case eventsClosedMsg:
		return m, nil

	case spinner.TickMsg:
		if !m.processing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// runQuery запускает агента вне UI горутины.
func (m MainModel) runQuery(query string) tea.Cmd {
	agent := m.agent
	ctx := m.ctx
	return func() tea.Msg {
		start := time.Now()
		output, err := agent.Run(ctx, query)
		if err != nil {
			utils.Error("Interactive query failed", "query", query, "error", err)
		}
		return answerMsg{Query: query, Output: output, Err: err, Duration: time.Since(start)}
	}
}

// appendLog добавляет строку в лог и прокручивает вниз.
func (m *MainModel) appendLog(line string) {
	m.logLines = append(m.logLines, line)
	m.refreshViewport()
}

// refreshViewport переносит строки под текущую ширину.
func (m *MainModel) refreshViewport() {
	m.viewport.SetContent(strings.Join(wrapLines(m.logLines, m.viewport.Width), "\n"))
	m.viewport.GotoBottom()
}

// wrapLines переносит строки по словам, а слишком длинные слова
// (JSON пути, URL) режет жёстко. width <= 0 оставляет строки как есть.
func wrapLines(lines []string, width int) []string {
	if width <= 0 {
		return lines
	}
	var out []string
	for _, line := range lines {
		wrapped := wrap.String(wordwrap.String(line, width), width)
		out = append(out, strings.Split(wrapped, "\n")...)
	}
	return out
}
