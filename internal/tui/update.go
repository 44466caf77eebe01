package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"kv-go/internal/kv"
)

const (
	keyEnter = "enter"
	keyEsc   = "esc"
	keyUp    = "up"
	keyDown  = "down"
	keyCtrlC = "ctrl+c"
)

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionEventMsg:
		m.handleEvent(msg.ev)
		return m, waitForEvent(m.session.Events())
	case sessionClosedMsg:
		m.quitting = true
		return m, tea.Quit
	case historyMsg:
		m.history = msg.list
		if m.historyCursor >= len(m.history) {
			m.historyCursor = max(len(m.history)-1, 0)
		}
		return m, waitForHistory(m.historyCh)
	case tickMsg:
		m.refresh()
		return m, tick()
	case tea.KeyMsg:
		if msg.String() == keyCtrlC {
			return m.quit()
		}
		switch m.mode {
		case modePassword:
			return m.updatePassword(msg)
		case modeImport:
			return m.updateImport(msg)
		case modeHistory:
			return m.updateHistory(msg)
		default:
			return m.updateBrowse(msg)
		}
	}
	return m, nil
}

func (m *model) handleEvent(ev kv.Event) {
	m.refresh()
	switch ev.Kind {
	case kv.EventImported, kv.EventSelectionChanged:
		m.cursor = 0
		m.enter(modePassword)
	case kv.EventUnlocked:
		m.cursor = 0
		m.enter(modeBrowse)
	case kv.EventUnlockFailed:
		if m.mode != modePassword {
			m.enter(modePassword)
		}
	}
}

func (m *model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m.quit()
	case keyUp, "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case keyDown, "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case keyEnter:
		if n := m.selected(); n != nil && n.IsGroup() {
			m.session.Toggle(n.ID)
		}
	case "c":
		m.copySelected(kv.FieldSecret)
	case "u":
		m.copySelected(kv.FieldUsername)
	case "s":
		m.enter(modeHistory)
	case "i":
		m.enter(modeImport)
		return m, nil
	case "p":
		if m.state.Current != nil {
			m.enter(modePassword)
		}
		return m, nil
	case keyEsc:
		m.session.DismissError()
	}
	m.refresh()
	return m, nil
}

func (m *model) copySelected(field kv.Field) {
	n := m.selected()
	if n == nil || n.IsGroup() {
		return
	}
	// Failures are recorded as the session's last error.
	_ = m.session.Copy(n.ID, field)
}

func (m *model) updatePassword(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case keyEnter:
		password := m.passwordInput.Value()
		m.passwordInput.Reset()
		m.session.StartUnlock(password)
		m.refresh()
		return m, nil
	case keyEsc:
		m.session.DismissError()
		m.enter(modeBrowse)
		m.refresh()
		return m, nil
	}
	var cmd tea.Cmd
	m.passwordInput, cmd = m.passwordInput.Update(msg)
	return m, cmd
}

func (m *model) updateImport(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case keyEnter:
		url := m.urlInput.Value()
		if url == "" {
			return m, nil
		}
		m.session.StartImport(url)
		m.enter(modeBrowse)
		m.refresh()
		return m, nil
	case keyEsc:
		m.enter(modeBrowse)
		return m, nil
	}
	var cmd tea.Cmd
	m.urlInput, cmd = m.urlInput.Update(msg)
	return m, cmd
}

func (m *model) updateHistory(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case keyUp, "k":
		if m.historyCursor > 0 {
			m.historyCursor--
		}
	case keyDown, "j":
		if m.historyCursor < len(m.history)-1 {
			m.historyCursor++
		}
	case keyEnter:
		if m.historyCursor < len(m.history) {
			id := m.history[m.historyCursor].ID
			if m.state.Current != nil && m.state.Current.ID == id {
				m.enter(modeBrowse)
				return m, nil
			}
			if err := m.session.SelectImport(id); err == nil {
				m.cursor = 0
				m.enter(modePassword)
			}
			m.refresh()
		}
	case keyEsc, "q":
		m.enter(modeBrowse)
	}
	return m, nil
}

// quit wipes the clipboard if it still holds the copied secret and stops
// the program. The caller closes the session.
func (m *model) quit() (tea.Model, tea.Cmd) {
	_ = m.session.ClearClipboard()
	m.cancel()
	m.quitting = true
	return m, tea.Quit
}
