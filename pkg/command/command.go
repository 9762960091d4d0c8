// ABOUTME: Command model for the declarative sound control protocol
// ABOUTME: Tagged command and source variants applied by the sound registry
package command

import (
	"fmt"

	"github.com/Factorio-Access/launcher-audio/pkg/param"
)

// Command is a parsed control command. The concrete types are Patch, Stop
// and Compound; the set is closed.
type Command interface {
	isCommand()
}

// Patch declares the complete desired state of a sound by id. The first
// patch for an id creates the sound; later patches update it in place.
type Patch struct {
	ID           string
	Source       SourceSpec
	Volume       param.Param
	Pan          param.Param
	Looping      bool
	PlaybackRate param.Param
	StartTime    float64 // Seconds from now, 0 = immediate

	// LPF configures a per-sound low-pass filter. Nil means unfiltered.
	// The configuration is immutable after the sound is created; only
	// FilterGain updates on later patches.
	LPF *LpfConfig
	// FilterGain blends the filtered signal: 0 = dry, 1 = fully
	// filtered. Non-nil exactly when LPF is non-nil.
	FilterGain param.Param
}

// LpfConfig describes a sound's low-pass filter stage.
type LpfConfig struct {
	Cutoff float64 // Hz
}

// Stop removes a sound by id. Stopping an unknown id is a no-op.
type Stop struct {
	ID string
}

// Compound groups commands that apply together with no externally
// observable intermediate state. Nested compounds are flattened at parse.
type Compound struct {
	Commands []Command
}

func (*Patch) isCommand()    {}
func (*Stop) isCommand()     {}
func (*Compound) isCommand() {}

// SourceKind identifies the audio source variant.
type SourceKind string

const (
	KindEncodedBytes SourceKind = "encoded_bytes"
	KindWaveform     SourceKind = "waveform"
)

// WaveformShape selects the generated waveform.
type WaveformShape string

const (
	WaveSine     WaveformShape = "sine"
	WaveSquare   WaveformShape = "square"
	WaveTriangle WaveformShape = "triangle"
	WaveSaw      WaveformShape = "saw"
)

// SourceSpec describes where a sound's audio comes from.
type SourceSpec struct {
	Kind SourceKind

	// For encoded_bytes:
	Name string

	// For waveform:
	Waveform           WaveformShape
	Frequency          float64
	NonLoopingDuration float64 // Seconds, 0 = unbounded
	FadeOut            float64 // Seconds, 0 = none
}

// Equal reports whether two source specs describe the same audio. A patch
// whose source differs from the stored one restarts the backing voice.
func (s SourceSpec) Equal(o SourceSpec) bool {
	return s == o
}

// ValidationError describes a rejected command, naming the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid command: %s: %s", e.Field, e.Reason)
}

func invalidf(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
