// ABOUTME: Public entry point: Manager ties engine, registry, and worker together
// ABOUTME: Submit validates JSON commands synchronously and enqueues them
package launcheraudio

import (
	"encoding/json"
	"fmt"

	"github.com/Factorio-Access/launcher-audio/internal/engine"
	"github.com/Factorio-Access/launcher-audio/internal/registry"
	"github.com/Factorio-Access/launcher-audio/internal/worker"
	"github.com/Factorio-Access/launcher-audio/pkg/command"
)

// Config configures a Manager. The zero value is usable for generated
// waveforms; encoded_bytes sources additionally need a Loader.
type Config struct {
	// Loader resolves encoded_bytes source names. Nil means every
	// encoded_bytes patch fails with a backend error.
	Loader Loader
	// DisableCache makes every load hit the Loader directly.
	DisableCache bool
	// Device selects the output: "malgo" (default), "oto", or "none"
	// for a headless engine driven by ReadFrames.
	Device string
	// QueueDepth bounds the command queue; 0 uses the default.
	QueueDepth int
}

// Manager is the library's public face. One Manager owns one audio
// device, one worker goroutine, and the whole sound namespace.
type Manager struct {
	engine *engine.Engine
	cache  *BytesCache
	worker *worker.Worker
}

// NewManager opens the output device and starts the worker. The caller
// must Close the manager to release the device.
func NewManager(cfg Config) (*Manager, error) {
	eng, err := engine.NewEngine(engine.Config{Device: cfg.Device})
	if err != nil {
		return nil, fmt.Errorf("failed to open audio engine: %w", err)
	}

	cache := NewBytesCache(cfg.Loader, cfg.DisableCache)
	backend := engine.NewBackend(eng, engine.Loader(cache.Get))
	reg := registry.New(&backendAdapter{backend})
	w := worker.New(reg, cfg.QueueDepth)
	w.Start()

	return &Manager{
		engine: eng,
		cache:  cache,
		worker: w,
	}, nil
}

// Submit parses, validates, and enqueues one command. The argument may
// be JSON bytes, a JSON string, or an already-marshalable value (a map
// built in code). Validation happens synchronously on the caller:
// a *command.ValidationError reports the offending field. A nil error
// means the command was accepted, not that it has been applied.
func (m *Manager) Submit(cmd interface{}) error {
	var raw []byte
	switch v := cmd.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case json.RawMessage:
		raw = v
	default:
		var err error
		raw, err = json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode command: %w", err)
		}
	}

	parsed, err := command.Parse(raw)
	if err != nil {
		return err
	}
	return m.worker.Submit(parsed)
}

// Sounds returns a snapshot of all live sounds, for status displays.
func (m *Manager) Sounds() ([]registry.SoundInfo, error) {
	return m.worker.Snapshot()
}

// Now returns the engine clock in seconds.
func (m *Manager) Now() float64 {
	return m.engine.Now()
}

// ReadFrames renders audio on the caller's schedule. Only valid with
// Device "none"; buf holds interleaved stereo float32.
func (m *Manager) ReadFrames(buf []float32) {
	m.engine.ReadFrames(buf)
}

// Close stops the worker, destroys all voices, and releases the device.
func (m *Manager) Close() error {
	m.worker.Close()
	return m.engine.Close()
}

// backendAdapter narrows *engine.Voice to the registry's Voice
// interface. The indirection keeps a failed CreateVoice from leaking a
// typed-nil interface into the registry.
type backendAdapter struct {
	b *engine.Backend
}

func (a *backendAdapter) CreateVoice(spec command.SourceSpec, opts registry.VoiceOptions) (registry.Voice, error) {
	v, err := a.b.CreateVoice(spec, engine.VoiceOptions{
		Volume:       opts.Volume,
		Pan:          opts.Pan,
		Rate:         opts.Rate,
		Looping:      opts.Looping,
		FilterCutoff: opts.FilterCutoff,
		FilterGain:   opts.FilterGain,
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (a *backendAdapter) Now() float64     { return a.b.Now() }
func (a *backendAdapter) NowFrames() int64 { return a.b.NowFrames() }
