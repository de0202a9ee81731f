// ABOUTME: Unit tests for audio types
// ABOUTME: Tests buffer duration math and format helpers
package audio

import (
	"testing"
	"time"
)

func TestBufferDuration(t *testing.T) {
	tests := []struct {
		name    string
		samples int
		rate    int
		want    time.Duration
	}{
		{"one second at 24kHz", 24000, 24000, time.Second},
		{"half second at 24kHz", 12000, 24000, 500 * time.Millisecond},
		{"capture frame at 16kHz", 4096, 16000, 256 * time.Millisecond},
		{"empty buffer", 0, 24000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := Buffer{
				Samples: make([]float32, tt.samples),
				Format:  Format{SampleRate: tt.rate, Channels: 1},
			}
			if got := buf.Duration(); got != tt.want {
				t.Errorf("Duration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBufferDurationZeroRate(t *testing.T) {
	buf := Buffer{Samples: make([]float32, 100)}
	if got := buf.Duration(); got != 0 {
		t.Errorf("Duration() with zero rate = %v, want 0", got)
	}
}

func TestDurationSampleRoundTrip(t *testing.T) {
	for _, rate := range []int{InputRate, OutputRate} {
		for _, n := range []int{0, 1, 4096, 24000} {
			d := SamplesToDuration(n, rate)
			if got := DurationToSamples(d, rate); got != n {
				t.Errorf("round trip %d samples at %dHz = %d", n, rate, got)
			}
		}
	}
}
