package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the console and blocks until the user quits or ctx is canceled.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Turner == nil {
		return fmt.Errorf("turner is required")
	}

	p := tea.NewProgram(newModel(cfg), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("console failed: %w", err)
	}
	return nil
}
