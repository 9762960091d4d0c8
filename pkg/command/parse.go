// ABOUTME: JSON command parsing and validation
// ABOUTME: Pure translation of untyped command data into validated Commands
package command

import (
	"encoding/json"
	"math"

	"github.com/Factorio-Access/launcher-audio/pkg/param"
)

// wireCommand mirrors the JSON command schema.
type wireCommand struct {
	Command      string            `json:"command"`
	ID           string            `json:"id"`
	Source       *wireSource       `json:"source"`
	Volume       json.RawMessage   `json:"volume"`
	Pan          json.RawMessage   `json:"pan"`
	Looping      bool              `json:"looping"`
	PlaybackRate json.RawMessage   `json:"playback_rate"`
	StartTime    float64           `json:"start_time"`
	LPF          *wireLpf          `json:"lpf"`
	FilterGain   json.RawMessage   `json:"filter_gain"`
	Commands     []json.RawMessage `json:"commands"`
}

type wireLpf struct {
	Cutoff  *float64 `json:"cutoff"`
	Enabled *bool    `json:"enabled"`
}

type wireSource struct {
	Kind               string  `json:"kind"`
	Name               string  `json:"name"`
	Waveform           string  `json:"waveform"`
	Frequency          float64 `json:"frequency"`
	NonLoopingDuration float64 `json:"non_looping_duration"`
	FadeOut            float64 `json:"fade_out"`
}

type wireBreakpoint struct {
	Time          float64 `json:"time"`
	Value         float64 `json:"value"`
	Interpolation string  `json:"interpolation_from_prev"`
}

// Parse validates untyped JSON command data and produces a Command.
//
// Parsing is pure: it never touches the registry or the backend. Any
// failure is a *ValidationError naming the offending field, and the
// whole command is rejected.
func Parse(data []byte) (Command, error) {
	var w wireCommand
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, invalidf("command", "malformed JSON: %v", err)
	}
	return parseWire(&w)
}

func parseWire(w *wireCommand) (Command, error) {
	switch w.Command {
	case "stop":
		if w.ID == "" {
			return nil, invalidf("id", "stop command missing id")
		}
		return &Stop{ID: w.ID}, nil

	case "patch":
		return parsePatch(w)

	case "compound":
		return parseCompound(w)

	case "":
		return nil, invalidf("command", "missing command field")

	default:
		return nil, invalidf("command", "unknown command type %q", w.Command)
	}
}

func parsePatch(w *wireCommand) (Command, error) {
	if w.ID == "" {
		return nil, invalidf("id", "patch command missing id")
	}
	if w.Source == nil {
		return nil, invalidf("source", "patch command missing source")
	}

	source, err := parseSource(w.Source)
	if err != nil {
		return nil, err
	}

	volume, err := parseParam(w.Volume, "volume", 1.0, clampVolume)
	if err != nil {
		return nil, err
	}
	pan, err := parseParam(w.Pan, "pan", 0.0, clampPan)
	if err != nil {
		return nil, err
	}
	rate, err := parseParam(w.PlaybackRate, "playback_rate", 1.0, nil)
	if err != nil {
		return nil, err
	}

	if !isFinite(w.StartTime) {
		return nil, invalidf("start_time", "must be finite")
	}
	if w.StartTime < 0 {
		return nil, invalidf("start_time", "cannot be negative")
	}

	lpf, err := parseLpf(w.LPF)
	if err != nil {
		return nil, err
	}
	// filter_gain is only meaningful with a filter stage; a stray
	// filter_gain on an unfiltered patch is ignored, not rejected.
	var filterGain param.Param
	if lpf != nil {
		filterGain, err = parseParam(w.FilterGain, "filter_gain", 1.0, clampUnit)
		if err != nil {
			return nil, err
		}
	}

	return &Patch{
		ID:           w.ID,
		Source:       source,
		Volume:       volume,
		Pan:          pan,
		Looping:      w.Looping,
		PlaybackRate: rate,
		StartTime:    w.StartTime,
		LPF:          lpf,
		FilterGain:   filterGain,
	}, nil
}

// maxLpfCutoff bounds the filter cutoff to the audible band.
const maxLpfCutoff = 20000

// parseLpf validates a filter configuration. A disabled filter parses
// to nil: cutoff is immutable after creation, so a stage that never
// runs gets no infrastructure at all.
func parseLpf(w *wireLpf) (*LpfConfig, error) {
	if w == nil {
		return nil, nil
	}
	if w.Enabled != nil && !*w.Enabled {
		return nil, nil
	}

	cutoff := 1000.0
	if w.Cutoff != nil {
		cutoff = *w.Cutoff
	}
	if !isFinite(cutoff) || cutoff <= 0 {
		return nil, invalidf("lpf.cutoff", "must be a positive finite number")
	}
	if cutoff > maxLpfCutoff {
		return nil, invalidf("lpf.cutoff", "exceeds %dHz", maxLpfCutoff)
	}
	return &LpfConfig{Cutoff: cutoff}, nil
}

func parseCompound(w *wireCommand) (Command, error) {
	if len(w.Commands) == 0 {
		return nil, invalidf("commands", "compound command has no sub-commands")
	}

	out := &Compound{}
	for i, raw := range w.Commands {
		sub, err := Parse(raw)
		if err != nil {
			if ve, ok := err.(*ValidationError); ok {
				return nil, invalidf("commands", "sub-command %d: %s: %s", i, ve.Field, ve.Reason)
			}
			return nil, err
		}
		// Flatten nested compounds so application is a flat sequence.
		if inner, ok := sub.(*Compound); ok {
			out.Commands = append(out.Commands, inner.Commands...)
		} else {
			out.Commands = append(out.Commands, sub)
		}
	}
	return out, nil
}

func parseSource(w *wireSource) (SourceSpec, error) {
	switch SourceKind(w.Kind) {
	case KindEncodedBytes:
		if w.Name == "" {
			return SourceSpec{}, invalidf("source.name", "encoded_bytes source missing name")
		}
		return SourceSpec{Kind: KindEncodedBytes, Name: w.Name}, nil

	case KindWaveform:
		shape := WaveformShape(w.Waveform)
		switch shape {
		case WaveSine, WaveSquare, WaveTriangle, WaveSaw:
		case "":
			return SourceSpec{}, invalidf("source.waveform", "waveform source missing waveform type")
		default:
			return SourceSpec{}, invalidf("source.waveform", "unknown waveform type %q", w.Waveform)
		}
		if w.Frequency == 0 {
			return SourceSpec{}, invalidf("source.frequency", "waveform source missing frequency")
		}
		if !isFinite(w.Frequency) || w.Frequency < 0 {
			return SourceSpec{}, invalidf("source.frequency", "must be a positive finite number")
		}
		if !isFinite(w.NonLoopingDuration) || w.NonLoopingDuration < 0 {
			return SourceSpec{}, invalidf("source.non_looping_duration", "cannot be negative")
		}
		if !isFinite(w.FadeOut) || w.FadeOut < 0 {
			return SourceSpec{}, invalidf("source.fade_out", "cannot be negative")
		}
		if w.FadeOut > 0 && w.NonLoopingDuration > 0 && w.FadeOut > w.NonLoopingDuration {
			return SourceSpec{}, invalidf("source.fade_out", "exceeds non_looping_duration")
		}
		return SourceSpec{
			Kind:               KindWaveform,
			Waveform:           shape,
			Frequency:          w.Frequency,
			NonLoopingDuration: w.NonLoopingDuration,
			FadeOut:            w.FadeOut,
		}, nil

	default:
		return SourceSpec{}, invalidf("source.kind", "unknown source kind %q", w.Kind)
	}
}

// clamp functions applied to scalar values and breakpoint values before
// storage. Volume has no upper clamp: overdrive above 1.0 is legal.
func clampPan(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

func clampVolume(v float64) float64 {
	return math.Max(0, v)
}

func clampUnit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func parseParam(raw json.RawMessage, field string, def float64, clamp func(float64) float64) (param.Param, error) {
	if raw == nil {
		return param.Static(def), nil
	}

	var scalar float64
	if err := json.Unmarshal(raw, &scalar); err == nil {
		if !isFinite(scalar) {
			return nil, invalidf(field, "must be finite")
		}
		if clamp != nil {
			scalar = clamp(scalar)
		}
		return param.Static(scalar), nil
	}

	var wire []wireBreakpoint
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, invalidf(field, "must be a number or a breakpoint list")
	}
	if len(wire) == 0 {
		return nil, invalidf(field, "envelope has no breakpoints")
	}

	points := make([]param.Breakpoint, 0, len(wire))
	for i, bp := range wire {
		if !isFinite(bp.Time) || !isFinite(bp.Value) {
			return nil, invalidf(field, "breakpoint %d: values must be finite", i)
		}
		if bp.Time < 0 {
			return nil, invalidf(field, "breakpoint %d: time cannot be negative", i)
		}

		interp := param.Interpolation(bp.Interpolation)
		switch interp {
		case "":
			interp = param.InterpLinear
		case param.InterpLinear, param.InterpJump:
		default:
			return nil, invalidf(field, "breakpoint %d: unknown interpolation %q", i, bp.Interpolation)
		}

		value := bp.Value
		if clamp != nil {
			value = clamp(value)
		}
		points = append(points, param.Breakpoint{Time: bp.Time, Value: value, Interpolation: interp})
	}

	env, err := param.NewEnvelope(points)
	if err != nil {
		return nil, invalidf(field, "%v", err)
	}
	return env, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
