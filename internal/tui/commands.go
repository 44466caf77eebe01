package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"kv-go/internal/kv"
)

type sessionEventMsg struct {
	ev kv.Event
}

type sessionClosedMsg struct{}

type historyMsg struct {
	list []*kv.ImportRecord
}

type tickMsg time.Time

// waitForEvent blocks on the session's event channel off the program loop.
func waitForEvent(events <-chan kv.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return sessionClosedMsg{}
		}
		return sessionEventMsg{ev: ev}
	}
}

// waitForHistory delivers the next history list. A closed feed ends the loop.
func waitForHistory(ch <-chan []*kv.ImportRecord) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		list, ok := <-ch
		if !ok {
			return nil
		}
		return historyMsg{list: list}
	}
}

// tick refreshes the clipboard countdown once per second.
func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
