package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ilkoid/greenery-agent/pkg/events"
)

// eventMsg — событие агента, доставленное в Update.
type eventMsg events.Event

// eventsClosedMsg — подписка закрыта, ждать больше нечего.
type eventsClosedMsg struct{}

// receiveEventCmd возвращает Cmd, который ждёт следующего события.
//
// После обработки eventMsg Update снова вызывает receiveEventCmd,
// поэтому события читаются по одному.
func receiveEventCmd(sub events.Subscriber) tea.Cmd {
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-sub.Events()
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(event)
	}
}

// formatEvent превращает событие в строку трейса. "" = не показывать.
//
// Итоговый ответ приходит через answerMsg, поэтому EventMessage и
// EventDone здесь пропускаются.
func formatEvent(event events.Event) string {
	switch data := event.Data.(type) {
	case events.ThinkingData:
		if strings.TrimSpace(data.Content) == "" {
			return ""
		}
		return traceMsgStyle(fmt.Sprintf("  thought [%d]: %s", data.Iteration, data.Content))

	case events.ToolCallData:
		return traceMsgStyle(fmt.Sprintf("  > %s %s", data.ToolName, data.Args))

	case events.ToolResultData:
		status := "ok"
		if !data.Success {
			status = "failed"
		}
		result := data.Result
		if r := []rune(result); len(r) > 200 {
			result = string(r[:200]) + "..."
		}
		return traceMsgStyle(fmt.Sprintf("  < %s (%s, %s): %s",
			data.ToolName, status, data.Duration.Round(time.Millisecond), result))
	}
	return ""
}
