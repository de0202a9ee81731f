// ABOUTME: Session controller for live tutor calls
// ABOUTME: Owns the call state machine, duration counter and resource lifecycle
package tutor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bactutor/voicetutor-go/pkg/audio"
	"github.com/bactutor/voicetutor-go/pkg/audio/capture"
	"github.com/bactutor/voicetutor-go/pkg/audio/pcm"
	"github.com/bactutor/voicetutor-go/pkg/live"
)

// ErrSessionBusy is returned by Start while another call is live. The
// existing call must be hung up first; Start never force-closes it.
var ErrSessionBusy = errors.New("tutor: a session is already live")

// Transport is the session's view of the live service connection. The real
// implementation is live.Session; tests substitute fakes.
type Transport interface {
	// Events returns the inbound event queue, closed after the final event.
	Events() <-chan live.Event

	// SendAudio transmits one encoded capture frame, fire-and-forget.
	SendAudio(chunk pcm.Chunk) error

	// Close terminates the connection. Idempotent.
	Close() error

	// ID identifies the session.
	ID() string
}

// Config wires a session's collaborators.
type Config struct {
	// Connect opens the transport. Called once per Start, during
	// Connecting.
	Connect func(ctx context.Context) (Transport, error)

	// Pipeline is the capture pipeline. Acquired during Connecting,
	// released during Closing.
	Pipeline *capture.Pipeline

	// Scheduler places decoded speech on the output clock.
	Scheduler *Scheduler

	// OnStatus, if set, receives a snapshot after every observable change.
	OnStatus func(Status)

	// OnError, if set, receives recoverable errors (dropped decode
	// failures) and the cause of fatal teardowns.
	OnError func(error)

	// OnModelAudio, if set, receives each decoded buffer before it is
	// scheduled. Used for session recording.
	OnModelAudio func(audio.Buffer)
}

// command is a user-initiated action routed into the run loop.
type command struct {
	hangup bool
	mute   bool
	muted  bool
}

// Session orchestrates one live tutor call: capture in, transport both
// ways, scheduled playback out. All state transitions happen on the single
// run-loop goroutine; user actions are routed in as commands.
type Session struct {
	config Config

	mu        sync.Mutex
	state     State
	muted     bool
	speaking  bool
	elapsed   time.Duration
	transport Transport

	cmds    chan command
	drained chan struct{}
	done    chan struct{}
}

// NewSession creates an idle session.
func NewSession(config Config) *Session {
	return &Session{
		config: config,
		state:  StateIdle,
	}
}

// Start begins a call: Idle -> Connecting, acquiring the microphone and the
// transport. The session reports Active only once the device is capturing
// and the transport has delivered Opened. Returns ErrSessionBusy unless the
// session is Idle. On any acquisition failure every partial resource is
// released and the session returns to Idle.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrSessionBusy
	}
	s.state = StateConnecting
	s.cmds = make(chan command, 4)
	s.drained = make(chan struct{}, 1)
	s.done = make(chan struct{})
	s.mu.Unlock()
	s.notify()

	if err := s.config.Pipeline.Start(ctx, s.forwardFrame); err != nil {
		s.resetToIdle()
		return fmt.Errorf("tutor: acquire microphone: %w", err)
	}

	transport, err := s.config.Connect(ctx)
	if err != nil {
		s.config.Pipeline.Stop()
		s.resetToIdle()
		return fmt.Errorf("tutor: open transport: %w", err)
	}

	s.mu.Lock()
	s.transport = transport
	s.mu.Unlock()

	s.config.Scheduler.SetOnDrained(s.onDrained)

	go s.run(transport)
	return nil
}

// forwardFrame is the capture pipeline's frame callback. Frames flow to the
// transport only while the call is Active; mute gating happened upstream.
func (s *Session) forwardFrame(chunk pcm.Chunk) {
	s.mu.Lock()
	transport := s.transport
	active := s.state == StateActive
	s.mu.Unlock()

	if !active || transport == nil {
		return
	}
	if err := transport.SendAudio(chunk); err != nil && !errors.Is(err, live.ErrClosed) {
		// The read side surfaces the transport failure; just note it.
		log.Printf("Session: dropped capture frame: %v", err)
	}
}

// onDrained signals the run loop that playback has drained.
func (s *Session) onDrained() {
	select {
	case s.drained <- struct{}{}:
	default:
	}
}

// run is the single control flow owning all state transitions.
func (s *Session) run(transport Transport) {
	defer close(s.done)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-transport.Events():
			if !ok {
				s.teardown(nil)
				return
			}
			if fatal := s.handleEvent(ev); fatal {
				return
			}

		case cmd := <-s.cmds:
			if cmd.hangup {
				s.teardown(nil)
				return
			}
			if cmd.mute {
				s.config.Pipeline.SetMuted(cmd.muted)
				s.mu.Lock()
				s.muted = cmd.muted
				s.mu.Unlock()
				s.notify()
			}

		case <-ticker.C:
			s.mu.Lock()
			active := s.state == StateActive
			if active {
				s.elapsed += time.Second
			}
			s.mu.Unlock()
			if active {
				s.notify()
			}

		case <-s.drained:
			s.mu.Lock()
			s.speaking = false
			s.mu.Unlock()
			s.notify()
		}
	}
}

// handleEvent processes one transport event. Returns true when the event
// was fatal and the session has been torn down.
func (s *Session) handleEvent(ev live.Event) bool {
	switch ev := ev.(type) {
	case live.Opened:
		s.mu.Lock()
		s.state = StateActive
		s.elapsed = 0
		s.mu.Unlock()
		s.notify()

	case live.AudioChunk:
		rate := pcm.RateFromMime(ev.MimeType, audio.OutputRate)
		buf, err := pcm.Decode(ev.Data, rate, 1)
		if err != nil {
			// Malformed payloads drop; playback continues with the
			// next chunk.
			s.reportError(err)
			return false
		}
		if s.config.OnModelAudio != nil {
			s.config.OnModelAudio(buf)
		}
		s.config.Scheduler.Enqueue(buf)
		s.mu.Lock()
		s.speaking = true
		s.mu.Unlock()
		s.notify()

	case live.Interrupted:
		// Barge-in: cancel local playback, stay Active.
		s.config.Scheduler.Interrupt()
		s.mu.Lock()
		s.speaking = false
		s.mu.Unlock()
		s.notify()

	case live.TurnComplete:
		// The active set draining flips speaking off; nothing to do.

	case live.ErrorEvent:
		s.reportError(ev.Err)
		s.teardown(ev.Err)
		return true

	case live.Closed:
		s.teardown(nil)
		return true
	}
	return false
}

// teardown releases every resource and returns the session to Idle:
// capture stopped, transport closed, playback cancelled, duration zeroed,
// mute cleared.
func (s *Session) teardown(cause error) {
	s.mu.Lock()
	s.state = StateClosing
	transport := s.transport
	s.mu.Unlock()
	s.notify()

	if err := s.config.Pipeline.Stop(); err != nil {
		log.Printf("Session: capture stop error: %v", err)
	}
	s.config.Pipeline.SetMuted(false)

	if transport != nil {
		if err := transport.Close(); err != nil {
			log.Printf("Session: transport close error: %v", err)
		}
	}

	s.config.Scheduler.Interrupt()

	s.mu.Lock()
	s.state = StateIdle
	s.muted = false
	s.speaking = false
	s.elapsed = 0
	s.transport = nil
	s.mu.Unlock()
	s.notify()

	if cause != nil {
		log.Printf("Session ended: %v", cause)
	}
}

// resetToIdle unwinds a failed Start before the run loop existed.
func (s *Session) resetToIdle() {
	s.mu.Lock()
	s.state = StateIdle
	s.mu.Unlock()
	s.notify()
	close(s.done)
}

// Hangup ends the call. Safe to call from any state and any number of
// times; a no-op when the session is already Idle.
func (s *Session) Hangup() {
	s.mu.Lock()
	if s.state == StateIdle || s.done == nil {
		s.mu.Unlock()
		return
	}
	done := s.done
	cmds := s.cmds
	s.mu.Unlock()

	select {
	case cmds <- command{hangup: true}:
	case <-done:
	}
}

// Wait blocks until the current call has fully torn down. Returns
// immediately if no call was started.
func (s *Session) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// SetMuted toggles the capture mute gate. No-op when no call is live.
func (s *Session) SetMuted(muted bool) {
	s.mu.Lock()
	if s.state == StateIdle || s.done == nil {
		s.mu.Unlock()
		return
	}
	done := s.done
	cmds := s.cmds
	s.mu.Unlock()

	select {
	case cmds <- command{mute: true, muted: muted}:
	case <-done:
	}
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

// statusLocked builds a snapshot; callers hold s.mu.
func (s *Session) statusLocked() Status {
	st := Status{
		State:    s.state,
		Muted:    s.muted,
		Speaking: s.speaking,
		Elapsed:  s.elapsed,
	}
	if s.transport != nil {
		st.SessionID = s.transport.ID()
	}
	return st
}

// notify delivers a status snapshot to the configured callback.
func (s *Session) notify() {
	if s.config.OnStatus == nil {
		return
	}
	s.mu.Lock()
	st := s.statusLocked()
	s.mu.Unlock()
	s.config.OnStatus(st)
}

// reportError delivers a non-nil error to the configured callback.
func (s *Session) reportError(err error) {
	if err == nil {
		return
	}
	if s.config.OnError != nil {
		s.config.OnError(err)
	} else {
		log.Printf("Session error: %v", err)
	}
}
