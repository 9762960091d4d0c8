// ABOUTME: Sound registry: reconciles declarative patches into live voices
// ABOUTME: Sole owner of the id-to-sound mapping and its lifecycle machine
package registry

import (
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/Factorio-Access/launcher-audio/pkg/audio"
	"github.com/Factorio-Access/launcher-audio/pkg/command"
	"github.com/Factorio-Access/launcher-audio/pkg/param"
)

// TickInterval is the cadence for time-based parameter updates and
// completion polling while any sound needs them.
const TickInterval = 10 * time.Millisecond

// Lifecycle is a sound's position in its state machine.
type Lifecycle int

const (
	// Pending sounds have a voice scheduled but not yet audible.
	Pending Lifecycle = iota
	// Playing sounds are live in the mix.
	Playing
	// GracefulStopping sounds are playing out their final loop cycle.
	GracefulStopping
	// Removed sounds have released their voice. They are no longer
	// tracked; the value exists for reporting.
	Removed
)

func (l Lifecycle) String() string {
	switch l {
	case Pending:
		return "pending"
	case Playing:
		return "playing"
	case GracefulStopping:
		return "stopping"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// VoiceOptions seeds a voice's parameters at creation.
type VoiceOptions struct {
	Volume  float64
	Pan     float64
	Rate    float64
	Looping bool

	// FilterCutoff enables a low-pass stage when positive. The cutoff
	// cannot change after creation; FilterGain blends it in.
	FilterCutoff float64
	FilterGain   float64
}

// Voice is the registry's handle into one backend voice. Each sound owns
// its voice exclusively until it is removed.
type Voice interface {
	SetVolume(gain float64)
	SetPan(pan float64)
	SetRate(rate float64)
	SetFilterGain(gain float64)
	SetLooping(looping bool)
	Start()
	ScheduleStart(frame int64)
	ScheduleStop(frame int64)
	ScheduleFade(from, to float64, atFrame, durFrames int64)
	IsPlaying() bool
	AtEnd() bool
	Destroy()
}

// Backend is the audio engine as seen by the registry.
type Backend interface {
	CreateVoice(spec command.SourceSpec, opts VoiceOptions) (Voice, error)
	Now() float64
	NowFrames() int64
}

// Sound tracks one declared sound and its backend voice.
type Sound struct {
	ID     string
	Source command.SourceSpec
	Volume param.Param
	Pan    param.Param
	Rate   param.Param
	// FilterGain is non-nil only for sounds created with a low-pass
	// filter. The filter itself is immutable after creation.
	FilterGain param.Param
	Looping    bool
	StartTime  float64 // absolute engine seconds, fixed at patch time
	Lifecycle  Lifecycle

	voice Voice
}

// settledAfter returns the elapsed time after which all parameters are
// constant.
func (s *Sound) settledAfter() float64 {
	settle := s.Volume.SettledAfter()
	if t := s.Pan.SettledAfter(); t > settle {
		settle = t
	}
	if t := s.Rate.SettledAfter(); t > settle {
		settle = t
	}
	if s.FilterGain != nil {
		if t := s.FilterGain.SettledAfter(); t > settle {
			settle = t
		}
	}
	return settle
}

// Registry applies commands against the id→sound mapping. It is the
// single mutator of sound state and runs entirely on the worker thread:
// compound commands are atomic to outside observers because nothing can
// observe the registry between two sub-commands of the same Apply call.
type Registry struct {
	backend Backend
	sounds  map[string]*Sound
}

// New creates an empty registry over a backend.
func New(backend Backend) *Registry {
	return &Registry{
		backend: backend,
		sounds:  make(map[string]*Sound),
	}
}

// Apply executes one command. A failing patch leaves that sound absent
// and unrelated sounds untouched; within a compound, sub-commands fail
// independently.
func (r *Registry) Apply(cmd command.Command) error {
	switch c := cmd.(type) {
	case *command.Patch:
		return r.applyPatch(c)
	case *command.Stop:
		r.applyStop(c)
		return nil
	case *command.Compound:
		var firstErr error
		for _, sub := range c.Commands {
			if err := r.Apply(sub); err != nil {
				log.Printf("Compound sub-command failed: %v", err)
				if firstErr == nil {
					firstErr = err
				}
			}
		}
		return firstErr
	default:
		return fmt.Errorf("unknown command type %T", cmd)
	}
}

func (r *Registry) applyPatch(cmd *command.Patch) error {
	if existing, ok := r.sounds[cmd.ID]; ok {
		if existing.Source.Equal(cmd.Source) {
			r.updateSound(existing, cmd)
			return nil
		}
		// A different source cannot be swapped into a live voice:
		// restart with the new source at the new start time.
		r.removeSound(existing)
	}
	return r.createSound(cmd)
}

func (r *Registry) createSound(cmd *command.Patch) error {
	opts := VoiceOptions{
		Volume:  cmd.Volume.ValueAt(0),
		Pan:     cmd.Pan.ValueAt(0),
		Rate:    cmd.PlaybackRate.ValueAt(0),
		Looping: cmd.Looping,
	}
	if cmd.LPF != nil {
		opts.FilterCutoff = cmd.LPF.Cutoff
		opts.FilterGain = cmd.FilterGain.ValueAt(0)
	}
	voice, err := r.backend.CreateVoice(cmd.Source, opts)
	if err != nil {
		return fmt.Errorf("patch %q: %w", cmd.ID, err)
	}

	now := r.backend.Now()
	nowFrames := r.backend.NowFrames()
	startFrame := nowFrames + audio.SecondsToFrames(cmd.StartTime)

	// A bounded, non-looping waveform with a fade plays out through a
	// scheduled gain ramp and stop; everything is set up before the
	// voice becomes audible.
	src := cmd.Source
	if src.Kind == command.KindWaveform && !cmd.Looping && src.FadeOut > 0 && src.NonLoopingDuration > 0 {
		stopFrame := startFrame + audio.SecondsToFrames(src.NonLoopingDuration)
		fadeFrames := audio.SecondsToFrames(src.FadeOut)
		voice.ScheduleFade(1, 0, stopFrame-fadeFrames, fadeFrames)
		voice.ScheduleStop(stopFrame)
	}

	lifecycle := Playing
	if cmd.StartTime > 0 {
		voice.ScheduleStart(startFrame)
		lifecycle = Pending
	} else {
		voice.Start()
	}

	r.sounds[cmd.ID] = &Sound{
		ID:         cmd.ID,
		Source:     cmd.Source,
		Volume:     cmd.Volume,
		Pan:        cmd.Pan,
		Rate:       cmd.PlaybackRate,
		FilterGain: cmd.FilterGain,
		Looping:    cmd.Looping,
		StartTime:  now + cmd.StartTime,
		Lifecycle:  lifecycle,
		voice:      voice,
	}
	return nil
}

// updateSound applies a patch to an existing sound in place. Parameter
// targets are replaced wholesale; elapsed time stays anchored at the
// sound's original start, matching the declarative model. Looping can
// only be turned off, which lets the current cycle play out.
func (r *Registry) updateSound(s *Sound, cmd *command.Patch) {
	s.Volume = cmd.Volume
	s.Pan = cmd.Pan
	s.Rate = cmd.PlaybackRate

	// The filter stage cannot be added or removed in place, but its
	// gain curve can be replaced.
	if s.FilterGain != nil && cmd.FilterGain != nil {
		s.FilterGain = cmd.FilterGain
	}

	if s.Looping && !cmd.Looping {
		s.Looping = false
		s.voice.SetLooping(false)
		if s.Lifecycle == Playing {
			s.Lifecycle = GracefulStopping
		}
	}

	r.pushParams(s, r.backend.Now())
}

func (r *Registry) applyStop(cmd *command.Stop) {
	// Stopping an unknown id is a no-op: the declared state "this sound
	// is gone" already holds.
	s, ok := r.sounds[cmd.ID]
	if !ok {
		return
	}
	r.removeSound(s)
}

func (r *Registry) removeSound(s *Sound) {
	s.voice.Destroy()
	s.Lifecycle = Removed
	delete(r.sounds, s.ID)
}

// Reconcile advances every sound: promotes due pending starts, pushes
// time-based parameter values, and removes naturally finished sounds.
func (r *Registry) Reconcile() {
	now := r.backend.Now()

	for _, s := range r.sounds {
		if s.Lifecycle == Pending && now >= s.StartTime {
			s.Lifecycle = Playing
		}
		if s.Lifecycle == Pending {
			continue
		}

		r.pushParams(s, now)

		if s.voice.AtEnd() {
			r.removeSound(s)
		}
	}
}

// pushParams evaluates the sound's parameters at the current time and
// hands the values to the voice. The voice applies its own short
// smoothing, so tick-cadence updates stay click-free.
func (r *Registry) pushParams(s *Sound, now float64) {
	elapsed := now - s.StartTime
	if elapsed < 0 {
		return
	}
	s.voice.SetVolume(s.Volume.ValueAt(elapsed))
	s.voice.SetPan(s.Pan.ValueAt(elapsed))
	s.voice.SetRate(s.Rate.ValueAt(elapsed))
	if s.FilterGain != nil {
		s.voice.SetFilterGain(s.FilterGain.ValueAt(elapsed))
	}
}

// NextWake returns how long the worker may sleep before this registry
// needs attention again: the nearest pending start, or one tick when any
// sound has unsettled parameters or an end to detect. ok is false when
// no timed work exists at all.
func (r *Registry) NextWake() (wait time.Duration, ok bool) {
	now := r.backend.Now()
	best := time.Duration(0)
	found := false

	consider := func(d time.Duration) {
		if d < 0 {
			d = 0
		}
		if !found || d < best {
			best = d
			found = true
		}
	}

	for _, s := range r.sounds {
		if s.Lifecycle == Pending {
			consider(time.Duration((s.StartTime - now) * float64(time.Second)))
			continue
		}

		// Unsettled envelopes need tick-cadence updates; finishing
		// sounds need tick-cadence completion polling.
		elapsed := now - s.StartTime
		if elapsed < s.settledAfter() || s.Lifecycle == GracefulStopping || !s.Looping {
			consider(TickInterval)
		}
	}

	return best, found
}

// Len returns the number of tracked (non-removed) sounds.
func (r *Registry) Len() int {
	return len(r.sounds)
}

// SoundInfo is a point-in-time view of one sound for reporting.
type SoundInfo struct {
	ID        string
	Lifecycle Lifecycle
	Looping   bool
	Volume    float64
	Pan       float64
	Source    string
}

// Snapshot returns a sorted view of all tracked sounds.
func (r *Registry) Snapshot() []SoundInfo {
	now := r.backend.Now()

	infos := make([]SoundInfo, 0, len(r.sounds))
	for _, s := range r.sounds {
		elapsed := now - s.StartTime
		if elapsed < 0 {
			elapsed = 0
		}

		desc := string(s.Source.Kind)
		if s.Source.Kind == command.KindEncodedBytes {
			desc = s.Source.Name
		} else if s.Source.Kind == command.KindWaveform {
			desc = fmt.Sprintf("%s %.0fHz", s.Source.Waveform, s.Source.Frequency)
		}

		infos = append(infos, SoundInfo{
			ID:        s.ID,
			Lifecycle: s.Lifecycle,
			Looping:   s.Looping,
			Volume:    s.Volume.ValueAt(elapsed),
			Pan:       s.Pan.ValueAt(elapsed),
			Source:    desc,
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Shutdown destroys every remaining voice.
func (r *Registry) Shutdown() {
	for _, s := range r.sounds {
		s.voice.Destroy()
		s.Lifecycle = Removed
	}
	r.sounds = make(map[string]*Sound)
}
