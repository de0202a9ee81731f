// ABOUTME: Output interface definitions
// ABOUTME: Output clock, scheduling sink and device backend contracts
package output

import (
	"time"

	"github.com/bactutor/voicetutor-go/pkg/audio"
)

// Clock is the monotonic time reference of the playback subsystem. It
// advances with rendered samples, not wall-clock time.
type Clock interface {
	// Now returns the current position of the output clock.
	Now() time.Duration
}

// Sink accepts buffers for sample-accurate playback at absolute times on
// the output clock.
type Sink interface {
	Clock

	// PlayAt schedules buf to begin exactly at start on the output clock.
	// done, if non-nil, fires once the buffer's last sample has rendered.
	// Cancelled buffers (via StopAll) never fire done.
	PlayAt(buf audio.Buffer, start time.Duration, done func())

	// StopAll immediately cancels every scheduled and in-flight buffer.
	StopAll()
}

// Device drives a Sink's renderer from a real audio output device.
type Device interface {
	// Start opens the output device and begins pulling rendered samples.
	Start() error

	// Close releases the device. Idempotent.
	Close() error
}
