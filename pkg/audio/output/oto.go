// ABOUTME: Oto-based audio output implementation
// ABOUTME: Streams rendered float32 frames through a persistent oto player
package output

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"

	"github.com/Factorio-Access/launcher-audio/pkg/audio"
	"github.com/ebitengine/oto/v3"
)

// Oto output implementation using the oto library. Oto pulls bytes from
// an io.Reader on its own playback goroutine; renderReader bridges that
// pull to the RenderFunc.
type Oto struct {
	otoCtx *oto.Context
	player *oto.Player
	ready  bool
}

// NewOto creates an unopened oto output.
func NewOto() *Oto {
	return &Oto{}
}

// Start opens the default playback device and begins rendering.
func (o *Oto) Start(render RenderFunc) error {
	if o.ready {
		return fmt.Errorf("output already started")
	}

	op := &oto.NewContextOptions{
		SampleRate:   audio.SampleRate,
		ChannelCount: audio.OutputChannels,
		Format:       oto.FormatFloat32LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	o.otoCtx = ctx
	o.player = ctx.NewPlayer(&renderReader{render: render})
	o.player.Play()
	o.ready = true

	log.Printf("Audio output started: oto, %dHz, %d channels", audio.SampleRate, audio.OutputChannels)
	return nil
}

// Close stops playback. Oto contexts cannot be torn down, only suspended.
func (o *Oto) Close() error {
	if o.player != nil {
		_ = o.player.Close()
		o.player = nil
	}
	if o.otoCtx != nil {
		_ = o.otoCtx.Suspend()
	}
	o.ready = false
	return nil
}

// renderReader adapts a RenderFunc to the io.Reader oto consumes. Each
// Read renders exactly the requested frames, so playback never starves
// and never reaches EOF.
type renderReader struct {
	render  RenderFunc
	scratch []float32
}

func (r *renderReader) Read(p []byte) (int, error) {
	samples := len(p) / 4
	samples -= samples % audio.OutputChannels
	if samples == 0 {
		return 0, nil
	}
	if samples > len(r.scratch) {
		r.scratch = make([]float32, samples)
	}

	block := r.scratch[:samples]
	r.render(block)

	for i, s := range block {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	return samples * 4, nil
}
