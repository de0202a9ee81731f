// ABOUTME: Malgo-based microphone capture backend
// ABOUTME: Opens the default input device at 16kHz mono float32 via miniaudio
package capture

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/bactutor/voicetutor-go/pkg/audio"
)

// Malgo captures from the default input device using the malgo/miniaudio
// library.
type Malgo struct {
	mu       sync.Mutex
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	samples  chan []float32
	running  bool

	overruns int64
}

// NewMalgo creates an unstarted malgo capture source.
func NewMalgo() *Malgo {
	return &Malgo{}
}

// Start acquires the default input device at 16kHz mono. Returns
// ErrDeviceUnavailable (wrapped) when no device can be opened.
func (m *Malgo) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("capture: device already started")
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("%w: init context: %v", ErrDeviceUnavailable, err)
	}

	// 8 blocks of headroom before overruns start dropping.
	m.samples = make(chan []float32, 8)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = audio.InputRate
	deviceConfig.Alsa.NoMMap = 1

	deviceCallbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSamples, pInputSamples []byte, frameCount uint32) {
			m.onCaptured(pInputSamples, frameCount)
		},
	}

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		mctx.Uninit()
		mctx.Free()
		return fmt.Errorf("%w: init device: %v", ErrDeviceUnavailable, err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		mctx.Uninit()
		mctx.Free()
		return fmt.Errorf("%w: start device: %v", ErrDeviceUnavailable, err)
	}

	m.malgoCtx = mctx
	m.device = device
	m.running = true

	log.Printf("Capture started: %dHz mono (malgo)", audio.InputRate)
	return nil
}

// onCaptured converts the driver's float32 bytes and hands them off. Blocks
// are dropped rather than blocking the device callback when the consumer
// falls behind.
func (m *Malgo) onCaptured(input []byte, frameCount uint32) {
	block := make([]float32, frameCount)
	for i := range block {
		bits := binary.LittleEndian.Uint32(input[i*4:])
		block[i] = math.Float32frombits(bits)
	}

	select {
	case m.samples <- block:
	default:
		m.overruns++
	}
}

// Samples returns the captured block channel.
func (m *Malgo) Samples() <-chan []float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.samples
}

// Stop releases the device and closes the sample channel. Idempotent.
func (m *Malgo) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}
	m.running = false

	if err := m.device.Stop(); err != nil {
		log.Printf("Warning: capture device stop error: %v", err)
	}
	m.device.Uninit()
	m.device = nil

	if err := m.malgoCtx.Uninit(); err != nil {
		log.Printf("Warning: malgo context uninit error: %v", err)
	}
	m.malgoCtx.Free()
	m.malgoCtx = nil

	close(m.samples)

	if m.overruns > 0 {
		log.Printf("Capture stopped: %d overrun blocks dropped", m.overruns)
	} else {
		log.Printf("Capture stopped")
	}
	return nil
}
