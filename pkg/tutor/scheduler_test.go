// ABOUTME: Unit tests for the playback scheduler
// ABOUTME: Tests gapless scheduling, cursor monotonicity and interrupt reset
package tutor

import (
	"sync"
	"testing"
	"time"

	"github.com/bactutor/voicetutor-go/pkg/audio"
)

// fakeSink records scheduled buffers against a manually advanced clock.
// Safe for use across goroutines.
type fakeSink struct {
	mu        sync.Mutex
	clock     time.Duration
	scheduled []scheduledCall
	stops     int
}

type scheduledCall struct {
	start time.Duration
	dur   time.Duration
	done  func()
}

func (f *fakeSink) Now() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clock
}

func (f *fakeSink) PlayAt(buf audio.Buffer, start time.Duration, done func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, scheduledCall{start: start, dur: buf.Duration(), done: done})
}

func (f *fakeSink) StopAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.scheduled = nil
}

func (f *fakeSink) setNow(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = d
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.scheduled)
}

func (f *fakeSink) startOf(i int) time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scheduled[i].start
}

func (f *fakeSink) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

// complete fires the done callback of the i-th scheduled buffer.
func (f *fakeSink) complete(i int) {
	f.mu.Lock()
	done := f.scheduled[i].done
	f.mu.Unlock()
	done()
}

func outBuffer(d time.Duration) audio.Buffer {
	n := audio.DurationToSamples(d, audio.OutputRate)
	return audio.Buffer{
		Samples: make([]float32, n),
		Format:  audio.OutputFormat(),
	}
}

// Buffers enqueued without an intervening interrupt must be scheduled
// exactly back to back: start(n) = start(0) + sum of first n-1 durations.
func TestGaplessScheduling(t *testing.T) {
	sink := &fakeSink{}
	sink.setNow(100 * time.Millisecond)
	s := NewScheduler(sink)

	durations := []time.Duration{
		time.Second,
		500 * time.Millisecond,
		250 * time.Millisecond,
		750 * time.Millisecond,
	}
	for _, d := range durations {
		s.Enqueue(outBuffer(d))
	}

	if sink.count() != len(durations) {
		t.Fatalf("scheduled %d buffers, want %d", sink.count(), len(durations))
	}

	expected := sink.startOf(0)
	for i := range durations {
		if got := sink.startOf(i); got != expected {
			t.Errorf("buffer %d start = %v, want %v", i, got, expected)
		}
		expected += durations[i]
	}
}

// A buffer's start time is never before the output clock's current time.
func TestNoBackwardScheduling(t *testing.T) {
	sink := &fakeSink{}
	s := NewScheduler(sink)

	sink.setNow(2 * time.Second)
	s.Enqueue(outBuffer(100 * time.Millisecond))

	if got := sink.startOf(0); got < 2*time.Second {
		t.Errorf("start = %v precedes clock %v", got, 2*time.Second)
	}

	// Clock overtakes the cursor between turns: the next buffer must not
	// be scheduled at the stale cursor.
	sink.setNow(10 * time.Second)
	s.Enqueue(outBuffer(100 * time.Millisecond))

	if got := sink.startOf(1); got != 10*time.Second {
		t.Errorf("start after clock overtake = %v, want 10s", got)
	}
}

func TestCursorMonotoneUnderNormalOperation(t *testing.T) {
	sink := &fakeSink{}
	s := NewScheduler(sink)

	prev := s.Cursor()
	for i := 0; i < 20; i++ {
		sink.setNow(sink.Now() + 30*time.Millisecond)
		s.Enqueue(outBuffer(50 * time.Millisecond))
		if cur := s.Cursor(); cur < prev {
			t.Fatalf("cursor regressed: %v -> %v", prev, cur)
		} else {
			prev = cur
		}
	}
}

// After Interrupt the next buffer starts at now, never at the stale cursor.
func TestInterruptResetsCursor(t *testing.T) {
	sink := &fakeSink{}
	s := NewScheduler(sink)

	s.Enqueue(outBuffer(time.Second))
	s.Enqueue(outBuffer(time.Second))
	if s.Cursor() != 2*time.Second {
		t.Fatalf("cursor = %v, want 2s", s.Cursor())
	}

	sink.setNow(300 * time.Millisecond)
	s.Interrupt()

	if sink.stopCount() != 1 {
		t.Errorf("StopAll calls = %d, want 1", sink.stopCount())
	}
	if s.Cursor() != 300*time.Millisecond {
		t.Errorf("cursor after interrupt = %v, want 300ms", s.Cursor())
	}
	if s.Speaking() {
		t.Error("still speaking after interrupt")
	}

	s.Enqueue(outBuffer(200 * time.Millisecond))
	if got := sink.startOf(0); got != 300*time.Millisecond {
		t.Errorf("post-interrupt start = %v, want 300ms (clock now)", got)
	}
}

func TestSpeakingAndDrain(t *testing.T) {
	sink := &fakeSink{}
	s := NewScheduler(sink)

	drained := 0
	s.SetOnDrained(func() { drained++ })

	s.Enqueue(outBuffer(100 * time.Millisecond))
	s.Enqueue(outBuffer(100 * time.Millisecond))
	if !s.Speaking() {
		t.Fatal("not speaking with two buffers scheduled")
	}

	sink.complete(0)
	if !s.Speaking() {
		t.Fatal("stopped speaking with one buffer still active")
	}
	if drained != 0 {
		t.Fatal("drained fired early")
	}

	sink.complete(1)
	if s.Speaking() {
		t.Error("still speaking after all buffers completed")
	}
	if drained != 1 {
		t.Errorf("drained fired %d times, want 1", drained)
	}
}

func TestEmptyBufferIgnored(t *testing.T) {
	sink := &fakeSink{}
	s := NewScheduler(sink)

	s.Enqueue(audio.Buffer{Format: audio.OutputFormat()})
	if sink.count() != 0 {
		t.Error("empty buffer was scheduled")
	}
	if s.Speaking() {
		t.Error("speaking after empty enqueue")
	}
}

func TestSchedulerStats(t *testing.T) {
	sink := &fakeSink{}
	s := NewScheduler(sink)

	s.Enqueue(outBuffer(100 * time.Millisecond))
	sink.complete(0)
	s.Interrupt()

	stats := s.Stats()
	if stats.Enqueued != 1 || stats.Completed != 1 || stats.Interrupts != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
