// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program for the call screen
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Control holds channels carrying user actions out of the call screen
type Control struct {
	Mute      chan bool
	Interrupt chan struct{}
	Hangup    chan struct{}
}

// NewControl creates a new call control handler
func NewControl() *Control {
	return &Control{
		Mute:      make(chan bool, 10),
		Interrupt: make(chan struct{}, 1),
		Hangup:    make(chan struct{}, 1),
	}
}

// NewModel creates a new call screen model
func NewModel(control *Control) Model {
	return Model{
		control: control,
	}
}

// Run starts the TUI
func Run(control *Control) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(control), tea.WithAltScreen())
	return p, nil
}
