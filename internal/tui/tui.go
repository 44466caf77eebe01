package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"kv-go/internal/kv"
)

// Run starts the interactive front end and blocks until the user quits. The
// caller owns session and closes it afterwards.
func Run(session *kv.Session, feed HistorySource) error {
	m, err := newModel(session, feed)
	if err != nil {
		return fmt.Errorf("subscribing to import history: %w", err)
	}
	defer m.cancel()

	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("running terminal UI: %w", err)
	}
	return nil
}
