// ABOUTME: Malgo-based playback device backend
// ABOUTME: Pulls rendered samples from the mixer via the miniaudio data callback
package output

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
)

// MalgoDevice drives a Mixer from the default playback device using the
// malgo/miniaudio library.
type MalgoDevice struct {
	mixer *Mixer

	mu       sync.Mutex
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	running  bool

	// OnFatal, when set before Start, is invoked if the device is lost
	// mid-playback. Device loss is fatal to the session.
	OnFatal func(error)
}

// NewMalgoDevice creates an unstarted playback backend over mixer.
func NewMalgoDevice(mixer *Mixer) *MalgoDevice {
	return &MalgoDevice{mixer: mixer}
}

// Start opens the default playback device at the mixer's rate, mono float32.
func (d *MalgoDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("output: device already started")
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("output: init context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = 1
	deviceConfig.SampleRate = uint32(d.mixer.SampleRate())
	deviceConfig.Alsa.NoMMap = 1

	deviceCallbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSamples, pInputSamples []byte, frameCount uint32) {
			d.onRender(pOutputSamples, frameCount)
		},
		Stop: func() {
			d.mu.Lock()
			running := d.running
			fatal := d.OnFatal
			d.mu.Unlock()
			if running && fatal != nil {
				fatal(fmt.Errorf("output: playback device stopped unexpectedly"))
			}
		},
	}

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		mctx.Uninit()
		mctx.Free()
		return fmt.Errorf("output: init device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		mctx.Uninit()
		mctx.Free()
		return fmt.Errorf("output: start device: %w", err)
	}

	d.malgoCtx = mctx
	d.device = device
	d.running = true

	log.Printf("Playback started: %dHz mono (malgo)", d.mixer.SampleRate())
	return nil
}

// onRender fills the device buffer from the mixer.
func (d *MalgoDevice) onRender(output []byte, frameCount uint32) {
	block := make([]float32, frameCount)
	d.mixer.Render(block)
	for i, s := range block {
		binary.LittleEndian.PutUint32(output[i*4:], math.Float32bits(s))
	}
}

// Close releases the device. Idempotent.
func (d *MalgoDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}
	d.running = false

	if err := d.device.Stop(); err != nil {
		log.Printf("Warning: playback device stop error: %v", err)
	}
	d.device.Uninit()
	d.device = nil

	if err := d.malgoCtx.Uninit(); err != nil {
		log.Printf("Warning: malgo context uninit error: %v", err)
	}
	d.malgoCtx.Free()
	d.malgoCtx = nil

	log.Printf("Playback stopped")
	return nil
}
