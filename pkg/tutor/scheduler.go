// ABOUTME: Gapless playback scheduler for synthesized speech
// ABOUTME: Maintains the next-start cursor and handles barge-in interruption
package tutor

import (
	"sync"
	"time"

	"github.com/bactutor/voicetutor-go/pkg/audio"
	"github.com/bactutor/voicetutor-go/pkg/audio/output"
)

// SchedulerStats tracks scheduler counters.
type SchedulerStats struct {
	Enqueued   int64
	Completed  int64
	Interrupts int64
}

// Scheduler places decoded buffers back-to-back on the output clock.
// Consecutive buffers of one turn play gaplessly; Interrupt cancels
// everything and resets the cursor to now for the next turn.
//
// Invariant: a buffer's start time never precedes the output clock's
// current time, and the cursor only moves backward via Interrupt.
type Scheduler struct {
	sink output.Sink

	mu     sync.Mutex
	cursor time.Duration
	active int
	stats  SchedulerStats

	// onDrained fires when the active set becomes empty (end of speech).
	onDrained func()
}

// NewScheduler creates a scheduler over the given sink.
func NewScheduler(sink output.Sink) *Scheduler {
	return &Scheduler{sink: sink}
}

// SetOnDrained registers the callback fired when the last scheduled buffer
// finishes. Must be set before the first Enqueue.
func (s *Scheduler) SetOnDrained(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDrained = fn
}

// Enqueue schedules buf to start at max(cursor, now) and advances the
// cursor past its end.
func (s *Scheduler) Enqueue(buf audio.Buffer) {
	if len(buf.Samples) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.cursor
	if now := s.sink.Now(); now > start {
		start = now
	}

	s.sink.PlayAt(buf, start, s.completed)
	s.cursor = start + buf.Duration()
	s.active++
	s.stats.Enqueued++
}

// completed is the sink's per-buffer completion callback.
func (s *Scheduler) completed() {
	s.mu.Lock()
	if s.active > 0 {
		s.active--
	}
	s.stats.Completed++
	drained := s.active == 0
	fn := s.onDrained
	s.mu.Unlock()

	if drained && fn != nil {
		fn()
	}
}

// Interrupt stops every scheduled and in-flight buffer, clears the active
// set and resets the cursor to the output clock's current time, so the
// next enqueued buffer starts now rather than at a stale future point.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sink.StopAll()
	s.active = 0
	s.cursor = s.sink.Now()
	s.stats.Interrupts++
}

// Speaking reports whether any buffer is scheduled or in flight.
func (s *Scheduler) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active > 0
}

// Cursor returns the next-start cursor position.
func (s *Scheduler) Cursor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Stats returns scheduler counters.
func (s *Scheduler) Stats() SchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
