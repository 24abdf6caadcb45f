// Package cli renders tableside command output: status lines, menu tables, order
// summaries and progress bars.
package cli

import "github.com/charmbracelet/lipgloss"

// Palette. Salmon is the house color.
var (
	PrimaryColor = lipgloss.Color("#FA8072")
	SuccessColor = lipgloss.Color("#4ECDC4")
	WarningColor = lipgloss.Color("#FFE66D")
	ErrorColor   = lipgloss.Color("#FF6B6B")
	InfoColor    = lipgloss.Color("#95E1D3")
	SubtleColor  = lipgloss.Color("#666666")
	borderColor  = lipgloss.Color("#333333")
)

func fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

// Text styles shared by the commands and the chat console.
var (
	TitleStyle    = fg(PrimaryColor).Bold(true).MarginBottom(1)
	SuccessStyle  = fg(SuccessColor)
	WarningStyle  = fg(WarningColor)
	ErrorStyle    = fg(ErrorColor)
	InfoStyle     = fg(InfoColor)
	SubtleStyle   = fg(SubtleColor)
	ProgressStyle = fg(PrimaryColor)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(1, 2)

	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(borderColor)

	TableCellStyle = lipgloss.NewStyle().PaddingRight(2)
)

// Icons.
const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "⚠️"
	InfoIcon    = "ℹ️"
	BowlIcon    = "🍜"
)

func status(style lipgloss.Style, icon, message string) string {
	return style.Render(icon + " " + message)
}

// FormatSuccess renders a one-line success status.
func FormatSuccess(message string) string { return status(SuccessStyle, SuccessIcon, message) }

// FormatError renders a one-line failure status.
func FormatError(message string) string { return status(ErrorStyle, ErrorIcon, message) }

// FormatWarning renders a one-line warning.
func FormatWarning(message string) string { return status(WarningStyle, WarningIcon, message) }

// FormatInfo renders a one-line note.
func FormatInfo(message string) string { return status(InfoStyle, InfoIcon, message) }

// FormatTitle renders a heading, usually the restaurant name.
func FormatTitle(title string) string { return status(TitleStyle, BowlIcon, title) }

// RenderBox draws content under a title inside a rounded border.
func RenderBox(title, content string) string {
	heading := TitleStyle.UnsetMargins().Render(title)
	return BoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, heading, content))
}
