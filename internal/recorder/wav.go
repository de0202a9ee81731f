// ABOUTME: Minimal WAV file writer for session recordings
// ABOUTME: Streams 16-bit mono PCM and patches RIFF sizes on close
package recorder

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sync"
)

// riffHeaderSize is the byte length of the RIFF/fmt/data preamble.
const riffHeaderSize = 44

// wavFile streams normalized float32 samples into a 16-bit mono PCM WAV
// file. The RIFF and data chunk sizes are written as placeholders and
// patched when the file is closed.
type wavFile struct {
	mu        sync.Mutex
	f         *os.File
	dataBytes uint32
	closed    bool
}

func createWAV(path string, sampleRate int) (*wavFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("recorder: create %q: %w", path, err)
	}

	header := make([]byte, riffHeaderSize)
	copy(header[0:], "RIFF")
	// Bytes 4:8 hold the RIFF chunk size, patched on close.
	copy(header[8:], "WAVE")
	copy(header[12:], "fmt ")
	binary.LittleEndian.PutUint32(header[16:], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(header[20:], 1)  // PCM
	binary.LittleEndian.PutUint16(header[22:], 1)  // mono
	binary.LittleEndian.PutUint32(header[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:], uint32(sampleRate*2)) // byte rate
	binary.LittleEndian.PutUint16(header[32:], 2)                    // block align
	binary.LittleEndian.PutUint16(header[34:], 16)                   // bits per sample
	copy(header[36:], "data")
	// Bytes 40:44 hold the data chunk size, patched on close.

	if _, err := f.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("recorder: write header: %w", err)
	}
	return &wavFile{f: f}, nil
}

// append quantizes samples to 16-bit little-endian PCM and writes them.
// Writes after close are dropped.
func (w *wavFile) append(samples []float32) error {
	if len(samples) == 0 {
		return nil
	}

	raw := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := int32(math.Round(float64(s) * 32768))
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(int16(v)))
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	n, err := w.f.Write(raw)
	w.dataBytes += uint32(n)
	if err != nil {
		return fmt.Errorf("recorder: write samples: %w", err)
	}
	return nil
}

// close patches the RIFF and data chunk sizes and closes the file.
func (w *wavFile) close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	var sizes [4]byte
	binary.LittleEndian.PutUint32(sizes[:], 36+w.dataBytes)
	if _, err := w.f.WriteAt(sizes[:], 4); err != nil {
		w.f.Close()
		return fmt.Errorf("recorder: patch riff size: %w", err)
	}
	binary.LittleEndian.PutUint32(sizes[:], w.dataBytes)
	if _, err := w.f.WriteAt(sizes[:], 40); err != nil {
		w.f.Close()
		return fmt.Errorf("recorder: patch data size: %w", err)
	}
	return w.f.Close()
}
