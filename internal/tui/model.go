// Package tui is the interactive terminal front end over kv.Session.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"kv-go/internal/kv"
)

type mode int

const (
	modeBrowse mode = iota
	modePassword
	modeImport
	modeHistory
)

// HistorySource publishes the import history.
type HistorySource interface {
	Subscribe(ctx context.Context) (<-chan []*kv.ImportRecord, error)
}

type model struct {
	session *kv.Session
	cancel  context.CancelFunc

	state kv.SessionState
	mode  mode
	rows  []kv.VisibleRow

	cursor int

	passwordInput textinput.Model
	urlInput      textinput.Model

	history       []*kv.ImportRecord
	historyCursor int
	historyCh     <-chan []*kv.ImportRecord

	quitting bool
}

func newModel(session *kv.Session, feed HistorySource) (*model, error) {
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := feed.Subscribe(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	password := textinput.New()
	password.Placeholder = "master password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 256

	url := textinput.New()
	url.Placeholder = "https://example.com/vault.kdbx"
	url.CharLimit = 2048
	url.Width = 60

	m := &model{
		session:       session,
		cancel:        cancel,
		passwordInput: password,
		urlInput:      url,
		historyCh:     ch,
	}
	m.refresh()
	if m.state.Current == nil {
		m.enter(modeImport)
	} else {
		m.enter(modePassword)
	}
	return m, nil
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(m.session.Events()),
		waitForHistory(m.historyCh),
		tick(),
		textinput.Blink,
	)
}

// refresh copies the session state and rebuilds the visible rows.
func (m *model) refresh() {
	m.state = m.session.Snapshot()
	m.rows = nil
	if m.state.Tree != nil {
		m.rows = m.state.Tree.Visible(m.state.View)
	}
	if m.cursor >= len(m.rows) {
		m.cursor = max(len(m.rows)-1, 0)
	}
}

func (m *model) enter(next mode) {
	m.mode = next
	m.passwordInput.Blur()
	m.urlInput.Blur()
	switch next {
	case modePassword:
		m.passwordInput.Reset()
		m.passwordInput.Focus()
	case modeImport:
		m.urlInput.Reset()
		m.urlInput.Focus()
	case modeHistory:
		m.historyCursor = 0
		for i, rec := range m.history {
			if m.state.Current != nil && rec.ID == m.state.Current.ID {
				m.historyCursor = i
			}
		}
	}
}

// selected returns the node under the cursor, or nil.
func (m *model) selected() *kv.Node {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil
	}
	return m.rows[m.cursor].Node
}
