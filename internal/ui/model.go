// ABOUTME: Bubbletea model for the player status TUI
// ABOUTME: Renders live sounds, engine time, and command stats
package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Factorio-Access/launcher-audio/internal/registry"
)

// StatusProvider supplies the data the TUI displays. The Manager
// satisfies it.
type StatusProvider interface {
	Sounds() ([]registry.SoundInfo, error)
	Now() float64
}

const refreshInterval = 100 * time.Millisecond

// Model represents the TUI state
type Model struct {
	provider StatusProvider

	// Identity
	name string
	addr string

	// Snapshot
	sounds []registry.SoundInfo
	now    float64
	err    error

	// Dimensions
	width  int
	height int
}

// NewModel creates a TUI model over a status provider.
func NewModel(provider StatusProvider, name, addr string) Model {
	return Model{
		provider: provider,
		name:     name,
		addr:     addr,
	}
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		m.refresh()
		return m, tick()
	}

	return m, nil
}

// refresh pulls a fresh snapshot from the provider.
func (m *Model) refresh() {
	m.now = m.provider.Now()
	sounds, err := m.provider.Sounds()
	if err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.sounds = sounds
}

// View renders the TUI
func (m Model) View() string {
	s := m.renderHeader()
	s += m.renderSounds()
	s += m.renderFooter()
	return s
}

func (m Model) renderHeader() string {
	return fmt.Sprintf(`┌─ %s ─────────────────────────────────────────────┐
│ Control: %-44s │
│ Engine:  %-44s │
├───────────────────────────────────────────────────────┤
`, truncate(m.name, 20), truncate(m.addr, 44), fmt.Sprintf("%.2fs, %d sounds", m.now, len(m.sounds)))
}

func (m Model) renderSounds() string {
	if m.err != nil {
		return fmt.Sprintf("│ %-53s │\n", truncate("error: "+m.err.Error(), 53))
	}
	if len(m.sounds) == 0 {
		return "│ No sounds                                             │\n"
	}

	s := "│ ID            State     Vol        Pan    Source      │\n"
	for _, snd := range m.sounds {
		loop := " "
		if snd.Looping {
			loop = "∞"
		}
		s += fmt.Sprintf("│ %-13s %-9s [%s] %s %s %-11s │\n",
			truncate(snd.ID, 13),
			snd.Lifecycle,
			renderBar(int(snd.Volume*100), 100, 6),
			renderPan(snd.Pan),
			loop,
			truncate(snd.Source, 11))
	}
	return s
}

func (m Model) renderFooter() string {
	return `├───────────────────────────────────────────────────────┤
│ q: Quit                                               │
└───────────────────────────────────────────────────────┘
`
}

// renderPan shows a position marker on a short left-right scale.
func renderPan(pan float64) string {
	const width = 5
	pos := int((pan + 1) / 2 * float64(width-1))
	if pos < 0 {
		pos = 0
	}
	if pos >= width {
		pos = width - 1
	}
	out := []rune("─────")
	out[pos] = '●'
	return "L" + string(out) + "R"
}

func renderBar(value, max, width int) string {
	if value > max {
		value = max
	}
	if value < 0 {
		value = 0
	}
	filled := (value * width) / max
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	if length <= 3 {
		return s[:length]
	}
	return s[:length-3] + "..."
}
