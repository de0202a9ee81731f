// ABOUTME: Audio type definitions for the voice tutor pipeline
// ABOUTME: Defines stream formats, decoded buffers and fixed pipeline rates
package audio

import "time"

const (
	// InputRate is the microphone capture rate expected by the tutor service.
	InputRate = 16000

	// OutputRate is the synthesis rate of audio received from the tutor service.
	OutputRate = 24000

	// FrameSize is the number of samples in one capture frame (~256ms at 16kHz).
	FrameSize = 4096
)

// Format describes a PCM audio stream.
type Format struct {
	SampleRate int
	Channels   int
}

// InputFormat returns the fixed capture-side format (16kHz mono).
func InputFormat() Format {
	return Format{SampleRate: InputRate, Channels: 1}
}

// OutputFormat returns the fixed playback-side format (24kHz mono).
func OutputFormat() Format {
	return Format{SampleRate: OutputRate, Channels: 1}
}

// Buffer represents decoded mono PCM audio ready for playback.
// Samples are normalized float32 in [-1, 1].
type Buffer struct {
	Samples []float32
	Format  Format
}

// Duration returns the playback duration of the buffer.
func (b Buffer) Duration() time.Duration {
	if b.Format.SampleRate <= 0 {
		return 0
	}
	return SamplesToDuration(len(b.Samples), b.Format.SampleRate)
}

// SamplesToDuration converts a sample count at the given rate to a duration.
func SamplesToDuration(samples, sampleRate int) time.Duration {
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

// DurationToSamples converts a duration to a sample count at the given rate.
func DurationToSamples(d time.Duration, sampleRate int) int {
	return int(d * time.Duration(sampleRate) / time.Second)
}
