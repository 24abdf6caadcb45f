// Package tui is an interactive console for talking to the ordering assistant
// without a voice channel. It plays the channel's part: it keeps the session
// attributes between turns and echoes them back verbatim.
package tui

import (
	"context"
	"time"

	"github.com/Veraticus/tableside/internal/dialog"
	"github.com/Veraticus/tableside/internal/orchestrator"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Turner handles one dialog turn.
type Turner interface {
	Turn(ctx context.Context, req orchestrator.Request) orchestrator.Response
}

// Config configures a console session.
type Config struct {
	Turner     Turner
	NewSession func() string
	GuestID    string
	Restaurant string
	Width      int
	Height     int
}

type speaker int

const (
	speakerGuest speaker = iota
	speakerAssistant
	speakerSystem
)

type entry struct {
	text    string
	speaker speaker
}

// Model is the console state.
type Model struct {
	turner     Turner
	newSession func() string
	attrs      map[string]string
	keymap     KeyMap
	input      textinput.Model
	viewport   viewport.Model
	spinner    spinner.Model
	sessionID  string
	guestID    string
	restaurant string
	elapsed    string
	transcript []entry
	last       dialog.Directive
	width      int
	height     int
	busy       bool
	ready      bool
	quitting   bool
}

func newModel(cfg Config) Model {
	input := textinput.New()
	input.Placeholder = "Say something to order..."
	input.CharLimit = 500
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = spinnerStyle

	newSession := cfg.NewSession
	if newSession == nil {
		newSession = func() string { return "" }
	}

	m := Model{
		turner:     cfg.Turner,
		newSession: newSession,
		keymap:     DefaultKeyMap(),
		input:      input,
		spinner:    spin,
		sessionID:  newSession(),
		guestID:    cfg.GuestID,
		restaurant: cfg.Restaurant,
		width:      cfg.Width,
		height:     cfg.Height,
		busy:       true,
	}
	if m.width > 0 && m.height > 0 {
		m.resize()
	}
	return m
}

// Init sends an empty opening turn so the assistant greets first.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.sendTurn(""))
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keymap.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keymap.Restart):
			if m.busy {
				return m, nil
			}
			m.sessionID = m.newSession()
			m.attrs = nil
			m.last = dialog.Directive{}
			m.transcript = append(m.transcript, entry{speaker: speakerSystem, text: "New conversation"})
			m.refresh()
			m.busy = true
			return m, tea.Batch(m.spinner.Tick, m.sendTurn(""))

		case key.Matches(msg, m.keymap.Send):
			utterance := m.input.Value()
			if m.busy || utterance == "" {
				return m, nil
			}
			m.input.Reset()
			m.transcript = append(m.transcript, entry{speaker: speakerGuest, text: utterance})
			m.refresh()
			m.busy = true
			return m, tea.Batch(m.spinner.Tick, m.sendTurn(utterance))

		case key.Matches(msg, m.keymap.PageUp), key.Matches(msg, m.keymap.PageDown):
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case turnDoneMsg:
		m.busy = false
		m.attrs = msg.resp.SessionAttributes
		m.last = msg.resp.Directive
		m.elapsed = msg.elapsed
		m.transcript = append(m.transcript, entry{speaker: speakerAssistant, text: msg.resp.Message})
		if msg.resp.Directive.Type == dialog.DirectiveClose {
			m.transcript = append(m.transcript, entry{
				speaker: speakerSystem,
				text:    closedNote(msg.resp.Directive.FulfillmentState),
			})
		}
		m.refresh()

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// sendTurn runs one turn off the UI goroutine.
func (m Model) sendTurn(utterance string) tea.Cmd {
	turner := m.turner
	req := orchestrator.Request{
		SessionID:         m.sessionID,
		GuestID:           m.guestID,
		Utterance:         utterance,
		SessionAttributes: m.attrs,
	}
	return func() tea.Msg {
		start := time.Now()
		resp := turner.Turn(context.Background(), req)
		return turnDoneMsg{
			resp:    resp,
			elapsed: time.Since(start).Round(time.Millisecond).String(),
		}
	}
}

func (m *Model) resize() {
	height := m.height - chromeHeight
	if height < 3 {
		height = 3
	}
	if !m.ready {
		m.viewport = viewport.New(m.width, height)
		m.ready = true
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = height
	}
	m.input.Width = max(10, m.width-4)
	m.refresh()
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(renderTranscript(m.transcript, m.width))
	m.viewport.GotoBottom()
}

func closedNote(state dialog.FulfillmentState) string {
	switch state {
	case dialog.FulfillmentFulfilled:
		return "Order placed (ctrl+r to start over)"
	case dialog.FulfillmentFailed:
		return "Conversation closed (ctrl+r to start over)"
	default:
		return "Conversation closed"
	}
}
