// ABOUTME: Backend adapter: builds voices from declarative source specs
// ABOUTME: Resolves encoded bytes via the loader and decodes them to PCM
package engine

import (
	"fmt"

	"github.com/Factorio-Access/launcher-audio/pkg/audio/decode"
	"github.com/Factorio-Access/launcher-audio/pkg/audio/source"
	"github.com/Factorio-Access/launcher-audio/pkg/command"
)

// Loader resolves a sound name to encoded audio bytes. It is supplied by
// the embedding application (files, archives, asset packs).
type Loader func(name string) ([]byte, error)

// Backend couples an engine with a byte loader so the registry can
// create voices directly from command source specs.
type Backend struct {
	engine *Engine
	load   Loader
}

// NewBackend creates a backend over an engine and loader.
func NewBackend(e *Engine, load Loader) *Backend {
	return &Backend{engine: e, load: load}
}

// CreateVoice builds a source from the given SourceSpec and adds a voice for it.
// The voice is returned unstarted so the caller can configure scheduling.
func (b *Backend) CreateVoice(spec command.SourceSpec, opts VoiceOptions) (*Voice, error) {
	src, err := b.buildSource(spec)
	if err != nil {
		return nil, err
	}
	return b.engine.CreateVoice(src, opts)
}

func (b *Backend) buildSource(spec command.SourceSpec) (source.Source, error) {
	switch spec.Kind {
	case command.KindWaveform:
		w, err := source.NewWaveform(source.Shape(spec.Waveform), spec.Frequency, spec.NonLoopingDuration)
		if err != nil {
			return nil, fmt.Errorf("bad waveform spec: %w", err)
		}
		return w, nil

	case command.KindEncodedBytes:
		if b.load == nil {
			return nil, fmt.Errorf("no byte loader configured for %q", spec.Name)
		}
		data, err := b.load(spec.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to load %q: %w", spec.Name, err)
		}
		samples, err := decode.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %q: %w", spec.Name, err)
		}
		return source.NewBuffer(samples), nil

	default:
		return nil, fmt.Errorf("unknown source kind %q", spec.Kind)
	}
}

// Now returns the engine time in seconds.
func (b *Backend) Now() float64 {
	return b.engine.Now()
}

// NowFrames returns the engine time in frames.
func (b *Backend) NowFrames() int64 {
	return b.engine.NowFrames()
}

// SampleRate returns the engine sample rate.
func (b *Backend) SampleRate() int {
	return b.engine.SampleRate()
}
