// ABOUTME: Session recorder capturing both legs of a tutoring call
// ABOUTME: Writes mic audio at 16kHz and model speech at 24kHz to WAV files
package recorder

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/bactutor/voicetutor-go/pkg/audio"
)

// Recorder writes both legs of one call for later review: the student's
// microphone at the capture rate and the tutor's speech at the playback
// rate. Each leg is its own WAV file so the two rates never mix.
type Recorder struct {
	mic   *wavFile
	model *wavFile
}

// New creates <dir>/<sessionID>-mic.wav and <dir>/<sessionID>-model.wav,
// creating dir if needed.
func New(dir, sessionID string) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("recorder: create dir %q: %w", dir, err)
	}

	mic, err := createWAV(filepath.Join(dir, sessionID+"-mic.wav"), audio.InputRate)
	if err != nil {
		return nil, err
	}
	model, err := createWAV(filepath.Join(dir, sessionID+"-model.wav"), audio.OutputRate)
	if err != nil {
		mic.close()
		return nil, err
	}
	return &Recorder{mic: mic, model: model}, nil
}

// Mic appends one raw capture frame. Wired as the capture pipeline's Tap,
// so muted frames never reach the recording.
func (r *Recorder) Mic(frame []float32) {
	if err := r.mic.append(frame); err != nil {
		log.Printf("Recorder: mic leg: %v", err)
	}
}

// Model appends one decoded speech buffer before it is scheduled.
func (r *Recorder) Model(buf audio.Buffer) {
	if err := r.model.append(buf.Samples); err != nil {
		log.Printf("Recorder: model leg: %v", err)
	}
}

// Close finalizes both files. Safe to call more than once.
func (r *Recorder) Close() error {
	micErr := r.mic.close()
	modelErr := r.model.close()
	if micErr != nil {
		return micErr
	}
	return modelErr
}
