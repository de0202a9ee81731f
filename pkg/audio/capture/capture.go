// ABOUTME: Capture source interface definition
// ABOUTME: Common contract for microphone input backends
package capture

import (
	"context"
	"errors"
)

// ErrDeviceUnavailable indicates the input device could not be acquired,
// either because none exists or because access was denied.
var ErrDeviceUnavailable = errors.New("capture: input device unavailable")

// Source produces raw float32 sample blocks from an input device at 16kHz
// mono. Block sizes are whatever the device driver delivers; use Framer to
// re-block into fixed frames.
type Source interface {
	// Start begins capture. Delivery stops when ctx is cancelled or Stop
	// is called.
	Start(ctx context.Context) error

	// Samples returns the channel of captured sample blocks. The channel
	// is closed after Stop returns.
	Samples() <-chan []float32

	// Stop releases the device. Idempotent. After Stop returns no further
	// blocks are delivered.
	Stop() error
}
