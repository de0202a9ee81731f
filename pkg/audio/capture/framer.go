// ABOUTME: Fixed-size frame assembler for capture blocks
// ABOUTME: Re-blocks arbitrary driver callback sizes into exact frames
package capture

// Framer accumulates sample blocks of arbitrary size and emits frames of
// exactly the configured size. Leftover samples are held until the next
// push; a partial frame at stream end is discarded.
type Framer struct {
	size    int
	pending []float32
}

// NewFramer creates a framer emitting frames of size samples.
func NewFramer(size int) *Framer {
	return &Framer{
		size:    size,
		pending: make([]float32, 0, size),
	}
}

// Push adds samples and returns zero or more complete frames. Returned
// frames are freshly allocated and safe to retain.
func (f *Framer) Push(samples []float32) [][]float32 {
	var frames [][]float32

	f.pending = append(f.pending, samples...)
	for len(f.pending) >= f.size {
		frame := make([]float32, f.size)
		copy(frame, f.pending[:f.size])
		frames = append(frames, frame)
		f.pending = f.pending[:copy(f.pending, f.pending[f.size:])]
	}

	return frames
}

// Pending returns the number of buffered samples not yet forming a frame.
func (f *Framer) Pending() int {
	return len(f.pending)
}

// Reset discards any buffered partial frame.
func (f *Framer) Reset() {
	f.pending = f.pending[:0]
}
