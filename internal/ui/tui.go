// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program for the player status display
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the TUI and blocks until the user quits.
func Run(provider StatusProvider, name, addr string) error {
	p := tea.NewProgram(NewModel(provider, name, addr), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
