// ABOUTME: Malgo-based audio output implementation
// ABOUTME: Uses miniaudio via malgo for callback-driven playback
package output

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"

	"github.com/Factorio-Access/launcher-audio/pkg/audio"
	"github.com/gen2brain/malgo"
)

// Malgo output implementation using the miniaudio library. The device's
// data callback is the render thread: it pulls float32 frames from the
// RenderFunc and converts them to the device byte stream.
type Malgo struct {
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	render   RenderFunc
	scratch  []float32
	ready    bool
}

// NewMalgo creates an unopened malgo output.
func NewMalgo() *Malgo {
	return &Malgo{
		// Sized for typical device periods; grows only if the device
		// asks for more in one callback.
		scratch: make([]float32, 8192*audio.OutputChannels),
	}
}

// Start opens the default playback device and begins rendering.
func (m *Malgo) Start(render RenderFunc) error {
	if m.ready {
		return fmt.Errorf("output already started")
	}
	m.render = render

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		log.Printf("miniaudio: %s", message)
	})
	if err != nil {
		return fmt.Errorf("failed to init malgo context: %w", err)
	}
	m.malgoCtx = ctx

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = audio.OutputChannels
	deviceConfig.SampleRate = audio.SampleRate
	deviceConfig.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: m.dataCallback,
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		m.teardownContext()
		return fmt.Errorf("failed to init playback device: %w", err)
	}
	m.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		m.teardownContext()
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	m.ready = true
	log.Printf("Audio output started: miniaudio, %dHz, %d channels", audio.SampleRate, audio.OutputChannels)
	return nil
}

// dataCallback runs on the miniaudio render thread.
func (m *Malgo) dataCallback(pOutput, pInput []byte, frameCount uint32) {
	samples := int(frameCount) * audio.OutputChannels
	if samples > len(m.scratch) {
		// Cold path: a device renegotiated a larger period.
		m.scratch = make([]float32, samples)
	}

	block := m.scratch[:samples]
	m.render(block)

	for i, s := range block {
		binary.LittleEndian.PutUint32(pOutput[i*4:], math.Float32bits(s))
	}
}

// Close stops the device and releases resources.
func (m *Malgo) Close() error {
	if m.device != nil {
		m.device.Uninit()
		m.device = nil
	}
	m.teardownContext()
	m.ready = false
	return nil
}

func (m *Malgo) teardownContext() {
	if m.malgoCtx != nil {
		_ = m.malgoCtx.Uninit()
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
}
