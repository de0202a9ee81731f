// ABOUTME: WebSocket session client for the live voice service
// ABOUTME: Handles connect handshake, fire-and-forget audio send and event routing
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/bactutor/voicetutor-go/pkg/audio/pcm"
)

const (
	// DefaultEndpoint is the production websocket endpoint.
	DefaultEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	// DefaultConnectTimeout bounds dial plus setup handshake.
	DefaultConnectTimeout = 15 * time.Second

	// eventQueueSize bounds the inbound event queue.
	eventQueueSize = 64
)

// ErrClosed indicates a send on a closed session.
var ErrClosed = errors.New("live: session closed")

// ConnectionError reports a failure to open the session or an unexpected
// drop mid-call.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("live: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Config holds session connection parameters.
type Config struct {
	// APIKey authenticates the session.
	APIKey string

	// Model is the voice model resource name, e.g.
	// "models/gemini-2.0-flash-exp".
	Model string

	// Voice selects the prebuilt synthesis voice.
	Voice string

	// SystemInstruction is the tutor persona prompt.
	SystemInstruction string

	// Endpoint overrides the service URL. Used by tests.
	Endpoint string

	// ConnectTimeout bounds dial plus setup handshake. Defaults to
	// DefaultConnectTimeout.
	ConnectTimeout time.Duration
}

// Session is one bidirectional voice session. Events are delivered on a
// single queue via Events; sends are fire-and-forget with no backpressure
// signal (known limitation).
type Session struct {
	id   string
	conn *websocket.Conn

	events chan Event

	writeMu sync.Mutex

	mu     sync.Mutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
}

// Connect opens a session and performs the setup handshake. The returned
// session has already emitted Opened on its event queue.
func Connect(ctx context.Context, config Config) (*Session, error) {
	if config.APIKey == "" {
		return nil, &ConnectionError{Op: "connect", Err: errors.New("missing API key")}
	}
	if config.Model == "" {
		return nil, &ConnectionError{Op: "connect", Err: errors.New("missing model")}
	}

	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	timeout := config.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	dialCtx, cancelDial := context.WithTimeout(ctx, timeout)
	defer cancelDial()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, endpoint+"?key="+config.APIKey, nil)
	if err != nil {
		return nil, &ConnectionError{Op: "dial", Err: err}
	}

	if err := writeSetup(conn, config); err != nil {
		conn.Close()
		return nil, err
	}

	if err := awaitSetupComplete(conn, timeout); err != nil {
		conn.Close()
		return nil, err
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:     uuid.New().String(),
		conn:   conn,
		events: make(chan Event, eventQueueSize),
		ctx:    sctx,
		cancel: cancel,
	}

	s.events <- Opened{}
	go s.readLoop()

	log.Printf("Session %s opened: model=%s voice=%s", s.id, config.Model, config.Voice)
	return s, nil
}

// writeSetup sends the session setup frame.
func writeSetup(conn *websocket.Conn, config Config) error {
	setup := &setupPayload{
		Model: config.Model,
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"AUDIO"},
		},
	}
	if config.Voice != "" {
		setup.GenerationConfig.SpeechConfig = &speechConfig{
			VoiceConfig: &voiceConfig{
				PrebuiltVoiceConfig: &prebuiltVoiceConfig{VoiceName: config.Voice},
			},
		}
	}
	if config.SystemInstruction != "" {
		setup.SystemInstruction = &content{
			Parts: []part{{Text: config.SystemInstruction}},
		}
	}

	if err := conn.WriteJSON(clientMessage{Setup: setup}); err != nil {
		return &ConnectionError{Op: "send setup", Err: err}
	}
	return nil
}

// awaitSetupComplete reads the first server frame, which must acknowledge
// the setup.
func awaitSetupComplete(conn *websocket.Conn, timeout time.Duration) error {
	conn.SetReadDeadline(time.Now().Add(timeout))
	defer conn.SetReadDeadline(time.Time{})

	_, data, err := conn.ReadMessage()
	if err != nil {
		return &ConnectionError{Op: "await setup ack", Err: err}
	}

	var msg serverMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return &ConnectionError{Op: "parse setup ack", Err: err}
	}
	if msg.SetupComplete == nil {
		return &ConnectionError{Op: "await setup ack", Err: errors.New("server rejected setup")}
	}
	return nil
}

// ID returns the local session identifier.
func (s *Session) ID() string {
	return s.id
}

// Events returns the inbound event queue. The channel closes after the
// final Closed event.
func (s *Session) Events() <-chan Event {
	return s.events
}

// SendAudio transmits one encoded capture frame. Fire-and-forget: a nil
// return means the frame was handed to the connection, not that the
// service received it.
func (s *Session) SendAudio(chunk pcm.Chunk) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.mu.Unlock()

	msg := clientMessage{
		RealtimeInput: &realtimeInputPayload{
			MediaChunks: []mediaChunk{{MimeType: chunk.MimeType, Data: chunk.Data}},
		},
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(msg); err != nil {
		return &ConnectionError{Op: "send audio", Err: err}
	}
	return nil
}

// readLoop reads server frames and routes them onto the event queue in
// arrival order. It owns emission of ErrorEvent/Closed and closes the
// queue on exit.
func (s *Session) readLoop() {
	defer close(s.events)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()

			if !closed {
				// Unexpected drop: surface the cause before Closed.
				s.emit(ErrorEvent{Err: &ConnectionError{Op: "read", Err: err}})
			}
			s.emit(Closed{})
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Session %s: discarding unparseable frame: %v", s.id, err)
			continue
		}

		s.route(msg)
	}
}

// route maps one server frame to events. A single frame can carry both
// audio and turn signals; interruption is routed first so stale audio in
// the same frame never plays.
func (s *Session) route(msg serverMessage) {
	sc := msg.ServerContent
	if sc == nil {
		return
	}

	if sc.Interrupted {
		s.emit(Interrupted{})
	}

	if sc.ModelTurn != nil {
		for _, p := range sc.ModelTurn.Parts {
			if p.InlineData != nil && p.InlineData.Data != "" {
				s.emit(AudioChunk{MimeType: p.InlineData.MimeType, Data: p.InlineData.Data})
			}
		}
	}

	if sc.TurnComplete {
		s.emit(TurnComplete{})
	}
}

// emit queues an event. A blocked queue yields only to session teardown, so
// arrival order is preserved and nothing is dropped mid-call.
func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
		return
	default:
	}
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}

// Close terminates the connection. Idempotent: closing an already-closed
// session is a no-op. The event queue still delivers its final Closed.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	err := s.conn.Close()
	log.Printf("Session %s closed", s.id)
	if err != nil {
		return &ConnectionError{Op: "close", Err: err}
	}
	return nil
}
