// ABOUTME: Inbound session event union
// ABOUTME: Tagged events consumed by the session controller in arrival order
package live

// Event is one inbound session event. Events arrive on a single queue in
// arrival order; no reordering, no deduplication.
type Event interface {
	event()
}

// Opened signals the service accepted the session setup.
type Opened struct{}

// AudioChunk carries one chunk of synthesized speech, base64 PCM.
type AudioChunk struct {
	MimeType string
	Data     string
}

// Interrupted signals the service detected caller speech over playback
// (barge-in). Local playback must be cancelled immediately.
type Interrupted struct{}

// TurnComplete signals the end of one continuous span of synthesized
// speech.
type TurnComplete struct{}

// ErrorEvent carries a transport failure. The session is unusable after.
type ErrorEvent struct {
	Err error
}

// Closed signals the connection has terminated. Always the final event.
type Closed struct{}

func (Opened) event()      {}
func (AudioChunk) event()  {}
func (Interrupted) event() {}
func (TurnComplete) event() {}
func (ErrorEvent) event()  {}
func (Closed) event()      {}
