// ABOUTME: Sample-accurate playback mixer and output clock
// ABOUTME: Renders scheduled buffers at absolute sample offsets with silence between
package output

import (
	"sync"
	"time"

	"github.com/bactutor/voicetutor-go/pkg/audio"
)

// Mixer implements Sink. It keeps scheduled buffers pinned to absolute
// sample positions and renders them into the output stream on demand; the
// render position doubles as the output clock. Device backends call Render
// from their data callbacks.
type Mixer struct {
	rate int

	mu      sync.Mutex
	pos     int64 // samples rendered since creation
	entries []*entry
}

// entry is one scheduled buffer.
type entry struct {
	start   int64 // absolute sample position of the first sample
	samples []float32
	done    func()
}

// NewMixer creates a mixer rendering at the given sample rate.
func NewMixer(sampleRate int) *Mixer {
	return &Mixer{rate: sampleRate}
}

// SampleRate returns the mixer's output rate.
func (m *Mixer) SampleRate() int {
	return m.rate
}

// Now returns the output clock position.
func (m *Mixer) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return audio.SamplesToDuration(int(m.pos), m.rate)
}

// PlayAt schedules buf at the absolute clock position start. A start in the
// past clips the already-elapsed leading samples so the remainder still
// lines up with its intended position.
func (m *Mixer) PlayAt(buf audio.Buffer, start time.Duration, done func()) {
	if len(buf.Samples) == 0 {
		if done != nil {
			done()
		}
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, &entry{
		start:   int64(audio.DurationToSamples(start, m.rate)),
		samples: buf.Samples,
		done:    done,
	})
}

// StopAll cancels every scheduled and in-flight buffer. Cancelled buffers
// do not fire their done callbacks.
func (m *Mixer) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
}

// Active returns the number of scheduled or in-flight buffers.
func (m *Mixer) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Render fills dst with the next len(dst) output samples and advances the
// clock. Regions with no scheduled audio render as silence. Completion
// callbacks fire after the lock is released, in schedule order.
func (m *Mixer) Render(dst []float32) {
	for i := range dst {
		dst[i] = 0
	}

	m.mu.Lock()

	from := m.pos
	to := m.pos + int64(len(dst))

	var finished []func()
	remaining := m.entries[:0]
	for _, e := range m.entries {
		end := e.start + int64(len(e.samples))

		// Overlap of [e.start, end) with [from, to).
		lo := max64(e.start, from)
		hi := min64(end, to)
		for p := lo; p < hi; p++ {
			dst[p-from] += e.samples[p-e.start]
		}

		if end <= to {
			if e.done != nil {
				finished = append(finished, e.done)
			}
		} else {
			remaining = append(remaining, e)
		}
	}
	m.entries = remaining
	m.pos = to

	m.mu.Unlock()

	for _, done := range finished {
		done()
	}
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
