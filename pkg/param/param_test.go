// ABOUTME: Tests for parameter envelope evaluation
// ABOUTME: Covers boundary clamping, linear/jump interpolation, and sorting
package param

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestStaticParam(t *testing.T) {
	p := Static(0.75)

	if got := p.ValueAt(0); got != 0.75 {
		t.Errorf("ValueAt(0) = %v, want 0.75", got)
	}
	if got := p.ValueAt(100); got != 0.75 {
		t.Errorf("ValueAt(100) = %v, want 0.75", got)
	}
	if !p.Constant() {
		t.Error("expected static param to be constant")
	}
	if p.SettledAfter() != 0 {
		t.Error("expected static param settled at 0")
	}
}

func TestEnvelopeRequiresBreakpoints(t *testing.T) {
	if _, err := NewEnvelope(nil); err == nil {
		t.Error("expected error for empty envelope")
	}
}

func TestEnvelopeBoundaryClamping(t *testing.T) {
	env, err := NewEnvelope([]Breakpoint{
		{Time: 1.0, Value: 0.2, Interpolation: InterpLinear},
		{Time: 2.0, Value: 0.8, Interpolation: InterpLinear},
	})
	if err != nil {
		t.Fatalf("NewEnvelope failed: %v", err)
	}

	if got := env.ValueAt(-5.0); got != 0.2 {
		t.Errorf("before first breakpoint: got %v, want 0.2", got)
	}
	if got := env.ValueAt(0.999); got != 0.2 {
		t.Errorf("just before first breakpoint: got %v, want 0.2", got)
	}
	if got := env.ValueAt(2.0); got != 0.8 {
		t.Errorf("at last breakpoint: got %v, want 0.8", got)
	}
	if got := env.ValueAt(100.0); got != 0.8 {
		t.Errorf("after last breakpoint: got %v, want 0.8", got)
	}
}

func TestEnvelopeLinearInterpolation(t *testing.T) {
	env, err := NewEnvelope([]Breakpoint{
		{Time: 0, Value: 0, Interpolation: InterpLinear},
		{Time: 0.5, Value: 1, Interpolation: InterpLinear},
		{Time: 2.0, Value: 0, Interpolation: InterpLinear},
	})
	if err != nil {
		t.Fatalf("NewEnvelope failed: %v", err)
	}

	cases := []struct {
		elapsed float64
		want    float64
	}{
		{0, 0},
		{0.25, 0.5},
		{0.5, 1},
		{1.25, 0.5},
		{2.0, 0},
	}

	for _, c := range cases {
		got := env.ValueAt(c.elapsed)
		if !almostEqual(got, c.want) {
			t.Errorf("ValueAt(%v) = %v, want %v", c.elapsed, got, c.want)
		}
	}

	// Halfway down the 0.5s -> 2.0s falling segment
	got := env.ValueAt(1.25)
	if math.Abs(got-0.5) > 1e-9 {
		t.Errorf("ValueAt(1.25) = %v, want 0.5", got)
	}
}

func TestEnvelopeJumpInterpolation(t *testing.T) {
	env, err := NewEnvelope([]Breakpoint{
		{Time: 0, Value: 0, Interpolation: InterpLinear},
		{Time: 1, Value: 1, Interpolation: InterpJump},
	})
	if err != nil {
		t.Fatalf("NewEnvelope failed: %v", err)
	}

	if got := env.ValueAt(0.999); got != 0 {
		t.Errorf("ValueAt(0.999) = %v, want 0 (hold until jump)", got)
	}
	if got := env.ValueAt(1.0); got != 1 {
		t.Errorf("ValueAt(1.0) = %v, want 1", got)
	}
}

func TestEnvelopeDegenerateEqualTimes(t *testing.T) {
	// Two breakpoints at the same time: instantaneous jump to the later value.
	env, err := NewEnvelope([]Breakpoint{
		{Time: 0, Value: 0, Interpolation: InterpLinear},
		{Time: 1, Value: 0.3, Interpolation: InterpLinear},
		{Time: 1, Value: 0.9, Interpolation: InterpLinear},
		{Time: 2, Value: 0.9, Interpolation: InterpLinear},
	})
	if err != nil {
		t.Fatalf("NewEnvelope failed: %v", err)
	}

	if got := env.ValueAt(1.0); got != 0.9 {
		t.Errorf("ValueAt(1.0) = %v, want 0.9", got)
	}
	if got := env.ValueAt(0.5); !almostEqual(got, 0.15) {
		t.Errorf("ValueAt(0.5) = %v, want 0.15", got)
	}
}

func TestEnvelopeSortsBreakpoints(t *testing.T) {
	env, err := NewEnvelope([]Breakpoint{
		{Time: 2.0, Value: 1, Interpolation: InterpLinear},
		{Time: 0, Value: 0, Interpolation: InterpLinear},
	})
	if err != nil {
		t.Fatalf("NewEnvelope failed: %v", err)
	}

	if got := env.ValueAt(1.0); !almostEqual(got, 0.5) {
		t.Errorf("ValueAt(1.0) = %v, want 0.5 after sorting", got)
	}
	if env.SettledAfter() != 2.0 {
		t.Errorf("SettledAfter() = %v, want 2.0", env.SettledAfter())
	}
}

func TestEnvelopeSinglePoint(t *testing.T) {
	env, err := NewEnvelope([]Breakpoint{{Time: 0.5, Value: 0.4, Interpolation: InterpLinear}})
	if err != nil {
		t.Fatalf("NewEnvelope failed: %v", err)
	}

	if !env.Constant() {
		t.Error("single-point envelope should be constant")
	}
	for _, elapsed := range []float64{0, 0.5, 10} {
		if got := env.ValueAt(elapsed); got != 0.4 {
			t.Errorf("ValueAt(%v) = %v, want 0.4", elapsed, got)
		}
	}
}
