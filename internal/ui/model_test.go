// ABOUTME: Tests for the TUI model
// ABOUTME: Covers snapshot refresh, rendering, and key handling
package ui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Factorio-Access/launcher-audio/internal/registry"
)

type fakeProvider struct {
	sounds []registry.SoundInfo
	now    float64
	err    error
}

func (p *fakeProvider) Sounds() ([]registry.SoundInfo, error) { return p.sounds, p.err }
func (p *fakeProvider) Now() float64                          { return p.now }

func TestRefreshPullsSnapshot(t *testing.T) {
	p := &fakeProvider{
		now: 1.5,
		sounds: []registry.SoundInfo{
			{ID: "alert", Lifecycle: registry.Playing, Volume: 1, Source: "alert.flac"},
		},
	}
	model := NewModel(p, "player", ":8973")

	model.refresh()

	if model.now != 1.5 {
		t.Errorf("now = %v, want 1.5", model.now)
	}
	if len(model.sounds) != 1 || model.sounds[0].ID != "alert" {
		t.Errorf("sounds = %+v", model.sounds)
	}
}

func TestViewListsSounds(t *testing.T) {
	p := &fakeProvider{
		sounds: []registry.SoundInfo{
			{ID: "alert", Lifecycle: registry.Playing, Volume: 0.5, Pan: -1, Looping: true, Source: "alert.flac"},
			{ID: "tone", Lifecycle: registry.Pending, Volume: 1, Pan: 1, Source: "sine 440Hz"},
		},
	}
	model := NewModel(p, "player", ":8973")
	model.refresh()

	view := model.View()
	for _, want := range []string{"alert", "tone", "playing", "pending", "sine 440Hz"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestViewWithNoSounds(t *testing.T) {
	model := NewModel(&fakeProvider{}, "player", ":8973")
	model.refresh()

	if !strings.Contains(model.View(), "No sounds") {
		t.Errorf("view missing empty placeholder:\n%s", model.View())
	}
}

func TestViewShowsProviderError(t *testing.T) {
	p := &fakeProvider{err: errors.New("worker closed")}
	model := NewModel(p, "player", ":8973")
	model.refresh()

	if !strings.Contains(model.View(), "worker closed") {
		t.Errorf("view missing error:\n%s", model.View())
	}
}

func TestQuitKey(t *testing.T) {
	model := NewModel(&fakeProvider{}, "player", ":8973")

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("q produced no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("q produced %T, want tea.QuitMsg", cmd())
	}
}

func TestTickSchedulesNextTick(t *testing.T) {
	p := &fakeProvider{now: 2.0}
	model := NewModel(p, "player", ":8973")

	next, cmd := model.Update(tickMsg{})
	if cmd == nil {
		t.Error("tick did not reschedule")
	}
	if next.(Model).now != 2.0 {
		t.Errorf("now = %v after tick, want 2.0", next.(Model).now)
	}
}

func TestRenderPanPositions(t *testing.T) {
	cases := []struct {
		pan  float64
		want string
	}{
		{-1, "L●────R"},
		{0, "L──●──R"},
		{1, "L────●R"},
	}
	for _, c := range cases {
		if got := renderPan(c.pan); got != c.want {
			t.Errorf("renderPan(%v) = %q, want %q", c.pan, got, c.want)
		}
	}
}

func TestRenderBar(t *testing.T) {
	if got := renderBar(50, 100, 6); got != "███░░░" {
		t.Errorf("renderBar(50) = %q", got)
	}
	if got := renderBar(200, 100, 6); got != "██████" {
		t.Errorf("renderBar over max = %q", got)
	}
}
