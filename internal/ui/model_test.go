package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ilkoid/greenery-agent/pkg/events"
)

type fakeAgent struct {
	answer string
	err    error
	last   string
}

func (a *fakeAgent) Run(ctx context.Context, query string) (string, error) {
	a.last = query
	return a.answer, a.err
}

func newTestModel(agent *fakeAgent, verbose bool) MainModel {
	m := InitialModel(context.Background(), agent, nil, Info{Model: "o3-mini", Source: "fixture", Verbose: verbose})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(MainModel)
}

func logContains(m MainModel, substr string) bool {
	for _, line := range m.Log() {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func TestUpdate_QuestionRoundTrip(t *testing.T) {
	agent := &fakeAgent{answer: "Binnenstad-Noord has _mean 18.73"}
	m := newTestModel(agent, false)

	m.input.SetValue("What is _mean?")
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(MainModel)

	if !m.Processing() {
		t.Fatal("agent should be running after Enter")
	}
	if m.input.Value() != "" {
		t.Errorf("input not cleared: %q", m.input.Value())
	}
	if cmd == nil {
		t.Fatal("expected a command to run the agent")
	}

	// Запуск агента напрямую, без tea.Batch
	msg := m.runQuery("What is _mean?")()
	answer, ok := msg.(answerMsg)
	if !ok {
		t.Fatalf("runQuery returned %T, want answerMsg", msg)
	}
	if agent.last != "What is _mean?" {
		t.Errorf("agent got %q", agent.last)
	}

	updated, _ = m.Update(answer)
	m = updated.(MainModel)

	if m.Processing() {
		t.Error("agent still marked as running after answer")
	}
	if !logContains(m, "Binnenstad-Noord has _mean 18.73") {
		t.Errorf("answer missing from log: %v", m.Log())
	}
}

func TestUpdate_ErrorAnswer(t *testing.T) {
	m := newTestModel(&fakeAgent{}, false)
	m.processing = true

	updated, _ := m.Update(answerMsg{Err: errors.New("401 unauthorized"), Duration: time.Second})
	m = updated.(MainModel)

	if m.Processing() {
		t.Error("processing flag not reset")
	}
	if !logContains(m, "401 unauthorized") {
		t.Errorf("error missing from log: %v", m.Log())
	}
}

func TestUpdate_IgnoresInputWhileProcessing(t *testing.T) {
	m := newTestModel(&fakeAgent{}, false)
	m.processing = true
	m.input.SetValue("second question")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(MainModel)

	if cmd != nil {
		t.Error("no command expected while agent is running")
	}
	if m.input.Value() != "second question" {
		t.Error("input must be kept while agent is running")
	}
}

func TestUpdate_EmptyInputAndQuit(t *testing.T) {
	m := newTestModel(&fakeAgent{}, false)

	m.input.SetValue("   ")
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("empty input must not start the agent")
	}

	m.input.SetValue("exit")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("exit must return tea.Quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("exit did not quit")
	}
}

func TestUpdate_VerboseEvents(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		want    bool
	}{
		{"verbose shows tool calls", true, true},
		{"quiet hides tool calls", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(&fakeAgent{}, tt.verbose)
			event := events.Event{
				Type: events.EventToolCall,
				Data: events.ToolCallData{ToolName: "json_spec_list_keys", Args: `{"path": "data"}`},
			}

			updated, _ := m.Update(eventMsg(event))
			m = updated.(MainModel)

			if got := logContains(m, "json_spec_list_keys"); got != tt.want {
				t.Errorf("tool call in log = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatEvent(t *testing.T) {
	tests := []struct {
		name  string
		event events.Event
		want  string
	}{
		{"thinking", events.Event{Data: events.ThinkingData{Content: "list keys", Iteration: 1}}, "thought [1]: list keys"},
		{"blank thinking", events.Event{Data: events.ThinkingData{Content: "  "}}, ""},
		{"tool result", events.Event{Data: events.ToolResultData{ToolName: "json_spec_get_value", Result: "18.73", Success: true}}, "< json_spec_get_value (ok"},
		{"failed tool", events.Event{Data: events.ToolResultData{ToolName: "x", Success: false}}, "failed"},
		{"message skipped", events.Event{Data: events.MessageData{Content: "answer"}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatEvent(tt.event)
			if tt.want == "" {
				if got != "" {
					t.Errorf("formatEvent() = %q, want empty", got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("formatEvent() = %q, want substring %q", got, tt.want)
			}
		})
	}
}

func TestView(t *testing.T) {
	m := InitialModel(context.Background(), &fakeAgent{}, nil, Info{Model: "o3-mini"})
	if m.View() != "Initializing UI..." {
		t.Errorf("View() before resize = %q", m.View())
	}

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	view := updated.(MainModel).View()
	if !strings.Contains(view, "MODEL: o3-mini") || !strings.Contains(view, "ready") {
		t.Errorf("header missing from view:\n%s", view)
	}
}

func TestWrapLines(t *testing.T) {
	lines := []string{
		"short",
		"the quick brown fox jumps over the lazy dog",
		strings.Repeat("x", 25),
	}

	got := wrapLines(lines, 10)
	for _, line := range got {
		if len(line) > 10 {
			t.Errorf("line %q exceeds width", line)
		}
	}
	if len(got) <= len(lines) {
		t.Errorf("expected wrapped output to have more lines, got %d", len(got))
	}

	if same := wrapLines(lines, 0); len(same) != len(lines) {
		t.Error("width 0 must keep lines unchanged")
	}
}
