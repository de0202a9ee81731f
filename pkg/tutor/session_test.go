// ABOUTME: Unit tests for the session controller
// ABOUTME: Tests the call state machine, teardown discipline and the end-to-end scenario
package tutor

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bactutor/voicetutor-go/pkg/audio"
	"github.com/bactutor/voicetutor-go/pkg/audio/capture"
	"github.com/bactutor/voicetutor-go/pkg/audio/pcm"
	"github.com/bactutor/voicetutor-go/pkg/live"
)

// fakeTransport scripts the service side of a call.
type fakeTransport struct {
	mu     sync.Mutex
	events chan live.Event
	sent   []pcm.Chunk
	closed int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{events: make(chan live.Event, 64)}
}

func (f *fakeTransport) Events() <-chan live.Event { return f.events }

func (f *fakeTransport) SendAudio(chunk pcm.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed > 0 {
		return live.ErrClosed
	}
	f.sent = append(f.sent, chunk)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	if f.closed == 1 {
		close(f.events)
	}
	return nil
}

func (f *fakeTransport) ID() string { return "fake-session" }

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeTransport) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// micSource is a manually fed capture source.
type micSource struct {
	mu      sync.Mutex
	samples chan []float32
	running bool
	stops   int
}

func newMicSource() *micSource {
	return &micSource{samples: make(chan []float32, 64)}
}

func (m *micSource) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = true
	return nil
}

func (m *micSource) Samples() <-chan []float32 { return m.samples }

func (m *micSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	if m.running {
		m.running = false
		close(m.samples)
	}
	return nil
}

func (m *micSource) pushFrame() {
	m.samples <- make([]float32, audio.FrameSize)
}

// failingSource refuses to start, standing in for a denied microphone.
type failingSource struct{}

func (failingSource) Start(ctx context.Context) error {
	return capture.ErrDeviceUnavailable
}
func (failingSource) Samples() <-chan []float32 { return nil }
func (failingSource) Stop() error               { return nil }

// harness bundles a session with its scripted collaborators.
type harness struct {
	session   *Session
	transport *fakeTransport
	mic       *micSource
	sink      *fakeSink
	scheduler *Scheduler

	mu     sync.Mutex
	errs   []error
	status []Status
}

func newHarness(t *testing.T) *harness {
	h := &harness{
		transport: newFakeTransport(),
		mic:       newMicSource(),
		sink:      &fakeSink{},
	}
	h.scheduler = NewScheduler(h.sink)
	h.session = NewSession(Config{
		Connect:   func(ctx context.Context) (Transport, error) { return h.transport, nil },
		Pipeline:  capture.NewPipeline(h.mic),
		Scheduler: h.scheduler,
		OnError: func(err error) {
			h.mu.Lock()
			h.errs = append(h.errs, err)
			h.mu.Unlock()
		},
		OnStatus: func(st Status) {
			h.mu.Lock()
			h.status = append(h.status, st)
			h.mu.Unlock()
		},
	})
	t.Cleanup(func() {
		h.session.Hangup()
		h.session.Wait()
	})
	return h
}

// start brings the session to Active.
func (h *harness) start(t *testing.T) {
	t.Helper()
	if err := h.session.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	h.transport.events <- live.Opened{}
	waitFor(t, func() bool { return h.session.Status().State == StateActive })
}

// audioEvent builds an AudioChunk event of the given duration at 24kHz.
func audioEvent(d time.Duration) live.AudioChunk {
	n := audio.DurationToSamples(d, audio.OutputRate)
	raw := make([]byte, n*2)
	return live.AudioChunk{
		MimeType: "audio/pcm;rate=24000",
		Data:     base64.StdEncoding.EncodeToString(raw),
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition never became true")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestStartToActive(t *testing.T) {
	h := newHarness(t)

	if st := h.session.Status(); st.State != StateIdle {
		t.Fatalf("initial state = %v", st.State)
	}

	h.start(t)

	st := h.session.Status()
	if st.State != StateActive {
		t.Errorf("state = %v, want active", st.State)
	}
	if st.SessionID != "fake-session" {
		t.Errorf("SessionID = %q", st.SessionID)
	}
}

func TestStartWhileLiveRejected(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	if err := h.session.Start(context.Background()); !errors.Is(err, ErrSessionBusy) {
		t.Errorf("second Start = %v, want ErrSessionBusy", err)
	}
}

func TestMicrophoneDeniedNeverReachesActive(t *testing.T) {
	sink := &fakeSink{}
	session := NewSession(Config{
		Connect:   func(ctx context.Context) (Transport, error) { t.Fatal("transport opened without microphone"); return nil, nil },
		Pipeline:  capture.NewPipeline(failingSource{}),
		Scheduler: NewScheduler(sink),
	})

	err := session.Start(context.Background())
	if !errors.Is(err, capture.ErrDeviceUnavailable) {
		t.Fatalf("Start = %v, want ErrDeviceUnavailable", err)
	}
	if session.Status().State != StateIdle {
		t.Errorf("state = %v, want idle", session.Status().State)
	}
}

func TestConnectFailureReleasesMicrophone(t *testing.T) {
	mic := newMicSource()
	cause := &live.ConnectionError{Op: "dial", Err: errors.New("refused")}
	session := NewSession(Config{
		Connect:   func(ctx context.Context) (Transport, error) { return nil, cause },
		Pipeline:  capture.NewPipeline(mic),
		Scheduler: NewScheduler(&fakeSink{}),
	})

	err := session.Start(context.Background())
	if err == nil {
		t.Fatal("Start succeeded with failing transport")
	}
	var ce *live.ConnectionError
	if !errors.As(err, &ce) {
		t.Errorf("error = %v, want ConnectionError", err)
	}
	if session.Status().State != StateIdle {
		t.Errorf("state = %v, want idle", session.Status().State)
	}

	mic.mu.Lock()
	released := !mic.running && mic.stops > 0
	mic.mu.Unlock()
	if !released {
		t.Error("microphone not released after connect failure")
	}
}

func TestCaptureForwardedWhileActive(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.mic.pushFrame()
	h.mic.pushFrame()
	h.mic.pushFrame()

	waitFor(t, func() bool { return h.transport.sentCount() == 3 })

	h.transport.mu.Lock()
	defer h.transport.mu.Unlock()
	for i, c := range h.transport.sent {
		if c.MimeType != "audio/pcm;rate=16000" {
			t.Errorf("sent[%d].MimeType = %q", i, c.MimeType)
		}
	}
}

func TestMuteStopsSends(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.mic.pushFrame()
	waitFor(t, func() bool { return h.transport.sentCount() == 1 })

	h.session.SetMuted(true)
	waitFor(t, func() bool { return h.session.Status().Muted })

	h.mic.pushFrame()
	h.mic.pushFrame()

	// Frames are gated before encoding; wait for them to be dropped.
	waitFor(t, func() bool { return h.transport.sentCount() == 1 })
	time.Sleep(20 * time.Millisecond)
	if got := h.transport.sentCount(); got != 1 {
		t.Fatalf("sends while muted = %d, want still 1", got)
	}

	h.session.SetMuted(false)
	waitFor(t, func() bool { return !h.session.Status().Muted })
	h.mic.pushFrame()
	waitFor(t, func() bool { return h.transport.sentCount() == 2 })
}

func TestInterruptedStaysActive(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.transport.events <- audioEvent(time.Second)
	waitFor(t, func() bool { return h.session.Status().Speaking })

	h.transport.events <- live.Interrupted{}
	waitFor(t, func() bool { return !h.session.Status().Speaking })

	if st := h.session.Status().State; st != StateActive {
		t.Errorf("state after barge-in = %v, want active", st)
	}
	if h.sink.stopCount() != 1 {
		t.Errorf("StopAll calls = %d, want 1", h.sink.stopCount())
	}
}

func TestDecodeErrorDropsChunkOnly(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.transport.events <- live.AudioChunk{MimeType: "audio/pcm;rate=24000", Data: "!!!bad"}
	h.transport.events <- audioEvent(500 * time.Millisecond)

	waitFor(t, func() bool { return h.session.Status().Speaking })

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.errs) != 1 {
		t.Fatalf("errors reported = %d, want 1", len(h.errs))
	}
	var de *pcm.DecodeError
	if !errors.As(h.errs[0], &de) {
		t.Errorf("error = %v, want DecodeError", h.errs[0])
	}
	if h.session.Status().State != StateActive {
		t.Error("decode error tore down the session")
	}
}

func TestTransportErrorTearsDown(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.transport.events <- live.ErrorEvent{Err: &live.ConnectionError{Op: "read", Err: errors.New("reset")}}

	h.session.Wait()

	st := h.session.Status()
	if st.State != StateIdle {
		t.Errorf("state = %v, want idle", st.State)
	}
	if st.Elapsed != 0 {
		t.Errorf("elapsed = %v, want 0", st.Elapsed)
	}
	if h.transport.closeCount() == 0 {
		t.Error("transport not closed on teardown")
	}
	h.mic.mu.Lock()
	released := !h.mic.running
	h.mic.mu.Unlock()
	if !released {
		t.Error("microphone not released on teardown")
	}
}

func TestRemoteCloseTearsDown(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.transport.events <- live.Closed{}
	h.session.Wait()

	if st := h.session.Status().State; st != StateIdle {
		t.Errorf("state = %v, want idle", st)
	}
}

func TestHangupIdempotentFromAnyState(t *testing.T) {
	h := newHarness(t)

	// Idle: no-op.
	h.session.Hangup()
	h.session.Hangup()

	h.start(t)

	h.session.Hangup()
	h.session.Wait()
	if st := h.session.Status().State; st != StateIdle {
		t.Fatalf("state after hangup = %v, want idle", st)
	}

	// Again after the call ended: still a no-op, still no error.
	h.session.Hangup()
	h.session.Hangup()
}

func TestTeardownClearsMute(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.session.SetMuted(true)
	waitFor(t, func() bool { return h.session.Status().Muted })

	h.session.Hangup()
	h.session.Wait()

	if h.session.Status().Muted {
		t.Error("mute flag survived teardown")
	}
}

// Undefined events in a given state are documented no-ops, never panics.
func TestStrayEventsAreNoOps(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	// TurnComplete with nothing playing, double interrupt, then teardown.
	h.transport.events <- live.TurnComplete{}
	h.transport.events <- live.Interrupted{}
	h.transport.events <- live.Interrupted{}
	h.transport.events <- live.Closed{}

	h.session.Wait()
	if st := h.session.Status().State; st != StateIdle {
		t.Errorf("state = %v, want idle", st)
	}
}

// The end-to-end scenario: three capture frames out, then scheduled
// playback with gapless continuation and a barge-in reset.
func TestEndToEndScenario(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	// Three frames of silence out.
	h.mic.pushFrame()
	h.mic.pushFrame()
	h.mic.pushFrame()
	waitFor(t, func() bool { return h.transport.sentCount() == 3 })

	// One second of speech: scheduled at t0 = clock now (0).
	h.transport.events <- audioEvent(time.Second)
	waitFor(t, func() bool { return h.sink.count() == 1 })
	t0 := h.sink.startOf(0)
	if t0 != 0 {
		t.Fatalf("first buffer start = %v, want 0", t0)
	}

	// A second 0.5s buffer: gapless at t0 + 1s.
	h.transport.events <- audioEvent(500 * time.Millisecond)
	waitFor(t, func() bool { return h.sink.count() == 2 })
	if got := h.sink.startOf(1); got != t0+time.Second {
		t.Fatalf("second buffer start = %v, want %v", got, t0+time.Second)
	}

	// Barge-in at clock position 700ms.
	h.sink.setNow(700 * time.Millisecond)
	h.transport.events <- live.Interrupted{}
	waitFor(t, func() bool { return h.sink.stopCount() == 1 })

	// A third 0.2s buffer starts now, not at the stale t0 + 1.5s.
	h.transport.events <- audioEvent(200 * time.Millisecond)
	waitFor(t, func() bool { return h.sink.count() == 1 })
	if got := h.sink.startOf(0); got != 700*time.Millisecond {
		t.Fatalf("post-interrupt start = %v, want 700ms", got)
	}
}
