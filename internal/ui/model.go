// ABOUTME: Bubbletea model for the call screen
// ABOUTME: Defines call state presentation and key handling
package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bactutor/voicetutor-go/pkg/tutor"
)

// Model represents the call screen state
type Model struct {
	// Call
	state     tutor.State
	sessionID string
	elapsed   time.Duration

	// Audio
	muted    bool
	speaking bool

	// Stats
	framesSent    int64
	framesDropped int64
	enqueued      int64
	interrupts    int64

	// Control
	control *Control

	// Dimensions
	width  int
	height int
}

// StatusMsg carries a session snapshot into the model.
type StatusMsg struct {
	Status tutor.Status
}

// StatsMsg carries capture and playback counters into the model.
type StatsMsg struct {
	FramesSent    int64
	FramesDropped int64
	Enqueued      int64
	Interrupts    int64
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.state = msg.Status.State
		m.sessionID = msg.Status.SessionID
		m.elapsed = msg.Status.Elapsed
		m.muted = msg.Status.Muted
		m.speaking = msg.Status.Speaking
	case StatsMsg:
		m.framesSent = msg.FramesSent
		m.framesDropped = msg.FramesDropped
		m.enqueued = msg.Enqueued
		m.interrupts = msg.Interrupts
	}

	return m, nil
}

// View renders the call screen
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderCall()
	s += m.renderStats()
	s += m.renderHelp()

	return s
}

// renderHeader renders the call state line
func (m Model) renderHeader() string {
	stateText := m.state.String()
	if m.sessionID != "" && m.state == tutor.StateActive {
		stateText = fmt.Sprintf("%s (%s)", m.state, truncate(m.sessionID, 24))
	}

	return fmt.Sprintf(`┌─ Voice Tutor ────────────────────────────────────────┐
│ Call:   %-45s │
├──────────────────────────────────────────────────────┤
`, stateText)
}

// renderCall renders duration, mute and speaking indicators
func (m Model) renderCall() string {
	micText := "● live"
	if m.muted {
		micText = "✗ muted"
	}

	tutorText := "listening"
	if m.speaking {
		tutorText = "speaking"
	}

	return fmt.Sprintf("│ Time:   %-45s │\n"+
		"│ Mic:    %-45s │\n"+
		"│ Tutor:  %-45s │\n",
		formatDuration(m.elapsed), micText, tutorText)
}

// renderStats renders capture and playback counters
func (m Model) renderStats() string {
	return fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ Sent: %d  Dropped: %d  Played: %d  Barge-ins: %d%-5s │
`, m.framesSent, m.framesDropped, m.enqueued, m.interrupts, "")
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `│ m:Mute  i:Interrupt  q:Hang up                       │
└──────────────────────────────────────────────────────┘
`
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.control != nil {
			select {
			case m.control.Hangup <- struct{}{}:
			default:
			}
		}
		return m, tea.Quit
	case "m":
		m.muted = !m.muted
		if m.control != nil {
			select {
			case m.control.Mute <- m.muted:
			default:
			}
		}
	case "i":
		// Simulated barge-in, useful with the synthetic microphone.
		if m.control != nil {
			select {
			case m.control.Interrupt <- struct{}{}:
			default:
			}
		}
	}

	return m, nil
}

// formatDuration renders elapsed call time as mm:ss or h:mm:ss
func formatDuration(d time.Duration) string {
	total := int(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
