// ABOUTME: Capture pipeline from input device to encoded transport frames
// ABOUTME: Handles frame segmentation, mute gating and encode-on-capture
package capture

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bactutor/voicetutor-go/pkg/audio"
	"github.com/bactutor/voicetutor-go/pkg/audio/pcm"
)

// PipelineStats tracks capture pipeline counters.
type PipelineStats struct {
	FramesSent    int64
	FramesDropped int64 // frames gated by mute
}

// Pipeline segments a capture source into fixed 4096-sample frames, applies
// mute gating and forwards encoded chunks to a callback.
//
// Mute policy: muted frames are dropped before encoding. The callback sees
// nothing at all while muted, rather than silence frames.
type Pipeline struct {
	src   Source
	muted atomic.Bool

	framesSent    atomic.Int64
	framesDropped atomic.Int64

	mu      sync.Mutex
	running bool
	done    chan struct{}

	// Tap, when set before Start, receives each unmuted raw frame before
	// encoding. Used for session recording.
	Tap func(frame []float32)
}

// NewPipeline creates a capture pipeline over the given source.
func NewPipeline(src Source) *Pipeline {
	return &Pipeline{src: src}
}

// Start acquires the device and begins delivering encoded frames to onFrame.
// onFrame is invoked from a single goroutine, once per complete frame, in
// capture order. Returns ErrDeviceUnavailable (wrapped) if the device cannot
// be acquired.
func (p *Pipeline) Start(ctx context.Context, onFrame func(pcm.Chunk)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("capture: pipeline already started")
	}

	if err := p.src.Start(ctx); err != nil {
		return fmt.Errorf("capture: start source: %w", err)
	}

	p.running = true
	p.done = make(chan struct{})

	go p.run(onFrame)
	return nil
}

// run consumes raw blocks until the source channel closes.
func (p *Pipeline) run(onFrame func(pcm.Chunk)) {
	defer close(p.done)

	framer := NewFramer(audio.FrameSize)
	for block := range p.src.Samples() {
		for _, frame := range framer.Push(block) {
			if p.muted.Load() {
				p.framesDropped.Add(1)
				continue
			}
			if p.Tap != nil {
				p.Tap(frame)
			}
			onFrame(pcm.Encode(frame))
			p.framesSent.Add(1)
		}
	}
}

// Stop releases the device. After Stop returns, onFrame is guaranteed not
// to be called again. Idempotent.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	done := p.done
	p.mu.Unlock()

	err := p.src.Stop()
	<-done
	return err
}

// SetMuted toggles the mute gate.
func (p *Pipeline) SetMuted(muted bool) {
	p.muted.Store(muted)
}

// Muted reports the mute gate state.
func (p *Pipeline) Muted() bool {
	return p.muted.Load()
}

// Stats returns capture counters.
func (p *Pipeline) Stats() PipelineStats {
	return PipelineStats{
		FramesSent:    p.framesSent.Load(),
		FramesDropped: p.framesDropped.Load(),
	}
}
