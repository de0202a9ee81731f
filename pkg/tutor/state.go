// ABOUTME: Session call states and status snapshot
// ABOUTME: Defines the Idle/Connecting/Active/Closing machine vocabulary
package tutor

import "time"

// State is the call state of a tutor session.
type State int

const (
	// StateIdle means no call exists.
	StateIdle State = iota

	// StateConnecting means the microphone and transport are being acquired.
	StateConnecting

	// StateActive means capture frames are flowing and playback is live.
	StateActive

	// StateClosing means resources are being released.
	StateClosing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Status is a point-in-time snapshot of a session.
type Status struct {
	State State

	// Muted reports the capture mute gate.
	Muted bool

	// Speaking is true while any playback buffer is scheduled or in flight.
	Speaking bool

	// Elapsed is the call duration, counted in whole seconds from Active.
	Elapsed time.Duration

	// SessionID identifies the live transport session, empty when idle.
	SessionID string
}
