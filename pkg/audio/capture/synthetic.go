// ABOUTME: Synthetic tone capture source
// ABOUTME: Generates a paced sine wave for runs without a real microphone
package capture

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/bactutor/voicetutor-go/pkg/audio"
)

// Synthetic produces a continuous sine tone at the capture rate, paced in
// real time. Used by --synthetic-mic runs and device-free testing.
type Synthetic struct {
	freq float64

	mu      sync.Mutex
	samples chan []float32
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewSynthetic creates a tone source at the given frequency in Hz.
func NewSynthetic(freq float64) *Synthetic {
	return &Synthetic{freq: freq}
}

// Start begins paced tone generation.
func (s *Synthetic) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.samples = make(chan []float32, 8)
	s.done = make(chan struct{})
	s.running = true

	go s.generate(ctx)
	return nil
}

// generate emits 100ms blocks on a real-time ticker.
func (s *Synthetic) generate(ctx context.Context) {
	defer close(s.done)

	const blockSize = audio.InputRate / 10
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var phase float64
	step := 2 * math.Pi * s.freq / audio.InputRate

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			block := make([]float32, blockSize)
			for i := range block {
				block[i] = float32(math.Sin(phase)) * 0.3
				phase += step
			}
			select {
			case s.samples <- block:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Samples returns the generated block channel.
func (s *Synthetic) Samples() <-chan []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.samples
}

// Stop halts generation and closes the sample channel. Idempotent.
func (s *Synthetic) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	s.cancel()
	<-s.done
	close(s.samples)
	return nil
}
