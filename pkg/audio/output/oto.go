// ABOUTME: Oto-based playback device backend
// ABOUTME: Feeds the mixer's rendered stream to an oto player via io.Reader
package output

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// OtoDevice drives a Mixer through the oto library. The player pulls from
// a reader that renders mixer samples on demand, so the output clock
// advances with device consumption just as with the callback backend.
type OtoDevice struct {
	mixer *Mixer

	mu      sync.Mutex
	otoCtx  *oto.Context
	player  *oto.Player
	running bool
}

// NewOtoDevice creates an unstarted oto backend over mixer.
func NewOtoDevice(mixer *Mixer) *OtoDevice {
	return &OtoDevice{mixer: mixer}
}

// Start opens an oto context at the mixer's rate and begins playback.
func (d *OtoDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("output: device already started")
	}

	op := &oto.NewContextOptions{
		SampleRate:   d.mixer.SampleRate(),
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("output: create oto context: %w", err)
	}
	<-readyChan

	d.otoCtx = ctx
	d.player = ctx.NewPlayer(&mixerReader{mixer: d.mixer})
	d.player.Play()
	d.running = true

	log.Printf("Playback started: %dHz mono (oto)", d.mixer.SampleRate())
	return nil
}

// Close releases the player. Idempotent. oto contexts cannot be destroyed,
// only suspended.
func (d *OtoDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}
	d.running = false

	if err := d.player.Close(); err != nil {
		log.Printf("Warning: oto player close error: %v", err)
	}
	d.player = nil

	if err := d.otoCtx.Suspend(); err != nil {
		log.Printf("Warning: oto context suspend error: %v", err)
	}
	d.otoCtx = nil

	log.Printf("Playback stopped")
	return nil
}

// mixerReader adapts Mixer.Render to the io.Reader the oto player pulls
// from. It never returns io.EOF: silence streams while nothing is scheduled.
type mixerReader struct {
	mixer *Mixer
}

func (r *mixerReader) Read(p []byte) (int, error) {
	frames := len(p) / 4
	if frames == 0 {
		return 0, nil
	}

	block := make([]float32, frames)
	r.mixer.Render(block)
	for i, s := range block {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	return frames * 4, nil
}
