// ABOUTME: PCM transport codec for the voice tutor service
// ABOUTME: Converts float32 frames to base64 16-bit little-endian chunks and back
package pcm

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bactutor/voicetutor-go/pkg/audio"
)

// MimeType returns the transport MIME descriptor for PCM at the given rate.
func MimeType(sampleRate int) string {
	return fmt.Sprintf("audio/pcm;rate=%d", sampleRate)
}

// RateFromMime extracts the sample rate from a PCM MIME descriptor such as
// "audio/pcm;rate=24000". Returns fallback when the descriptor carries no
// parseable rate.
func RateFromMime(mimeType string, fallback int) int {
	const marker = "rate="
	idx := strings.Index(mimeType, marker)
	if idx < 0 {
		return fallback
	}
	rest := mimeType[idx+len(marker):]
	if semi := strings.IndexByte(rest, ';'); semi >= 0 {
		rest = rest[:semi]
	}
	rate, err := strconv.Atoi(rest)
	if err != nil || rate <= 0 {
		return fallback
	}
	return rate
}

// Chunk is one frame of 16-bit PCM, base64-encoded for transport.
type Chunk struct {
	// Data is the base64-encoded little-endian int16 payload.
	Data string

	// MimeType tags the payload, e.g. "audio/pcm;rate=16000".
	MimeType string
}

// DecodeError reports a malformed or truncated audio payload.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pcm decode: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("pcm decode: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Encode quantizes normalized float32 samples to 16-bit little-endian PCM
// and base64-encodes the result for transport.
//
// Samples must be pre-normalized to [-1, 1]; values outside that range wrap
// through integer truncation. That is the accepted boundary condition of the
// transport format, not something the encoder guards against.
func Encode(samples []float32) Chunk {
	raw := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := int32(math.Round(float64(s) * 32768))
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(int16(v)))
	}
	return Chunk{
		Data:     base64.StdEncoding.EncodeToString(raw),
		MimeType: MimeType(audio.InputRate),
	}
}

// Decode base64-decodes a transport payload, reinterprets it as 16-bit
// little-endian PCM, and normalizes to float32. Interleaved multi-channel
// input is reduced to mono by keeping the first channel.
func Decode(data string, sampleRate, channels int) (audio.Buffer, error) {
	if channels < 1 {
		return audio.Buffer{}, &DecodeError{Reason: fmt.Sprintf("invalid channel count %d", channels)}
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return audio.Buffer{}, &DecodeError{Reason: "invalid base64 payload", Err: err}
	}
	if len(raw)%2 != 0 {
		return audio.Buffer{}, &DecodeError{Reason: fmt.Sprintf("truncated payload: %d bytes is not a whole number of samples", len(raw))}
	}

	total := len(raw) / 2
	if total%channels != 0 {
		return audio.Buffer{}, &DecodeError{Reason: fmt.Sprintf("%d samples do not divide into %d channels", total, channels)}
	}

	frames := total / channels
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		s := int16(binary.LittleEndian.Uint16(raw[i*channels*2:]))
		samples[i] = float32(s) / 32768.0
	}

	return audio.Buffer{
		Samples: samples,
		Format:  audio.Format{SampleRate: sampleRate, Channels: 1},
	}, nil
}
