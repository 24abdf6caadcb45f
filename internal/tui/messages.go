package tui

import "github.com/Veraticus/tableside/internal/orchestrator"

// turnDoneMsg carries the reply to one utterance.
type turnDoneMsg struct {
	resp    orchestrator.Response
	elapsed string
}
