package tui

import (
	"fmt"
	"strings"

	"github.com/Veraticus/tableside/internal/cli"
	"github.com/Veraticus/tableside/internal/dialog"
	"github.com/charmbracelet/lipgloss"
)

// chromeHeight is the space taken by the header, input and help lines.
const chromeHeight = 6

var (
	headerStyle    = cli.TitleStyle.MarginBottom(0)
	guestStyle     = lipgloss.NewStyle().Bold(true).Foreground(cli.InfoColor)
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(cli.PrimaryColor)
	systemStyle    = cli.SubtleStyle.Italic(true)
	spinnerStyle   = cli.ProgressStyle
	helpStyle      = cli.SubtleStyle
)

// View renders the console.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Starting..."
	}

	var b strings.Builder
	title := "tableside"
	if m.restaurant != "" {
		title = fmt.Sprintf("tableside · %s", m.restaurant)
	}
	b.WriteString(headerStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.helpLine()))
	return b.String()
}

func (m Model) statusLine() string {
	if m.busy {
		return m.spinner.View() + " thinking..."
	}
	switch m.last.Type {
	case dialog.DirectiveElicitSlot:
		return cli.SubtleStyle.Render(fmt.Sprintf("waiting for %s (%s)", m.last.Slot, m.elapsed))
	case dialog.DirectiveConfirmIntent:
		return cli.WarningStyle.Render("waiting for confirmation")
	case dialog.DirectiveClose:
		if m.last.FulfillmentState == dialog.FulfillmentFulfilled {
			return cli.SuccessStyle.Render("order placed")
		}
		return cli.ErrorStyle.Render("closed")
	default:
		return ""
	}
}

func (m Model) helpLine() string {
	parts := make([]string, 0, 4)
	for _, binding := range m.keymap.ShortHelp() {
		help := binding.Help()
		parts = append(parts, help.Key+" "+help.Desc)
	}
	return strings.Join(parts, " • ")
}

func renderTranscript(entries []entry, width int) string {
	wrap := lipgloss.NewStyle()
	if width > 4 {
		wrap = wrap.Width(width - 2)
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		switch e.speaker {
		case speakerGuest:
			lines = append(lines, wrap.Render(guestStyle.Render("You: ")+e.text))
		case speakerAssistant:
			lines = append(lines, wrap.Render(assistantStyle.Render("Assistant: ")+e.text))
		default:
			lines = append(lines, systemStyle.Render("· "+e.text+" ·"))
		}
	}
	return strings.Join(lines, "\n")
}
