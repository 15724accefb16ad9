// Рендер

package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m MainModel) View() string {
	if !m.ready {
		return "Initializing UI..."
	}

	status := "ready"
	if m.processing {
		status = m.spinner.View() + " thinking"
	}

	// Строка статуса (Header) на всю ширину
	header := headerStyle.
		Width(m.viewport.Width).
		Render(fmt.Sprintf("MODEL: %s | %s", m.info.Model, status))

	border := lipgloss.NewStyle().
		Foreground(grayColor).
		Render(strings.Repeat("─", max(m.viewport.Width, 1)))

	// Header + Viewport + Border + Input
	return fmt.Sprintf("%s\n%s\n%s\n%s",
		header,
		m.viewport.View(),
		border,
		m.input.View(),
	)
}
