package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"kv-go/internal/kv"
	"kv-go/internal/testutil"
)

const (
	testURL      = "https://files.example.com/MyVault.kdbx"
	testPassword = "correct horse"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m *model, msgs ...tea.Msg) {
	t.Helper()
	for _, msg := range msgs {
		m.Update(msg)
	}
}

// nextEvent reads the session's events until kind arrives and feeds every
// event to the model, as the program loop would.
func nextEvent(t *testing.T, m *model, kind kv.EventKind) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-m.session.Events():
			if !ok {
				t.Fatal("session events closed")
			}
			m.Update(sessionEventMsg{ev: ev})
			if ev.Kind == kind {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for event %d", kind)
		}
	}
}

func newTestModel(t *testing.T, imported bool) (*model, *testutil.Harness) {
	t.Helper()
	h := testutil.NewHarness(t)
	if imported {
		h.Downloader.Serve(testURL, []byte("vault"))
		if _, err := h.Service.Import(context.Background(), testURL); err != nil {
			t.Fatalf("Import() error = %v", err)
		}
	}
	h.Loader.Accept(testPassword, testutil.SampleVault())

	feed := kv.NewHistoryFeed(h.Store, kv.NewNopLogger())
	m, err := newModel(h.NewSession(t), feed)
	if err != nil {
		t.Fatalf("newModel() error = %v", err)
	}
	t.Cleanup(m.cancel)
	return m, h
}

func unlock(t *testing.T, m *model) {
	t.Helper()
	m.passwordInput.SetValue(testPassword)
	press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	nextEvent(t, m, kv.EventUnlocked)
}

func TestModel_StartsInImportModeWithoutHistory(t *testing.T) {
	m, _ := newTestModel(t, false)

	if m.mode != modeImport {
		t.Errorf("mode = %d, want modeImport", m.mode)
	}
	if view := m.View(); !strings.Contains(view, "URL to import") {
		t.Errorf("View() = %q, want import prompt", view)
	}

	press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if view := m.View(); !strings.Contains(view, "No database imported") {
		t.Errorf("View() = %q, want empty-history hint", view)
	}
}

func TestModel_UnlockBrowseAndCopy(t *testing.T) {
	m, h := newTestModel(t, true)

	if m.mode != modePassword {
		t.Fatalf("mode = %d, want modePassword", m.mode)
	}
	unlock(t, m)
	if m.mode != modeBrowse {
		t.Fatalf("mode after unlock = %d, want modeBrowse", m.mode)
	}

	view := m.View()
	if !strings.Contains(view, "Email") || strings.Contains(view, "Gmail") {
		t.Errorf("View() = %q, want collapsed Email group", view)
	}

	// root, email, bank: move to email and expand it.
	press(t, m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyEnter})
	if !strings.Contains(m.View(), "Gmail") {
		t.Fatalf("View() after expanding = %q, want Gmail", m.View())
	}

	press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if n := m.selected(); n == nil || n.ID != "gmail" {
		t.Fatalf("selected = %+v, want gmail", n)
	}
	view = m.View()
	if !strings.Contains(view, kv.MaskSecret("p@ss")) || strings.Contains(view, "p@ss") {
		t.Errorf("detail pane does not mask the secret: %q", view)
	}

	press(t, m, runes("c"))
	if got := h.Clipboard.Content(); got != "p@ss" {
		t.Errorf("clipboard = %q, want %q", got, "p@ss")
	}
	if !strings.Contains(m.View(), "Clipboard clears in 10s") {
		t.Errorf("View() = %q, want clipboard countdown", m.View())
	}

	press(t, m, runes("u"))
	if got := h.Clipboard.Content(); got != "alice" {
		t.Errorf("clipboard = %q, want %q", got, "alice")
	}

	press(t, m, runes("q"))
	if !m.quitting {
		t.Error("q did not quit")
	}
	if got := h.Clipboard.Content(); got != "" {
		t.Errorf("clipboard after quit = %q, want empty", got)
	}
}

func TestModel_WrongPassword(t *testing.T) {
	m, _ := newTestModel(t, true)

	m.passwordInput.SetValue("nope")
	press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	nextEvent(t, m, kv.EventUnlockFailed)

	if m.mode != modePassword {
		t.Errorf("mode = %d, want modePassword", m.mode)
	}
	if !strings.Contains(m.View(), "Wrong password.") {
		t.Errorf("View() = %q, want wrong password message", m.View())
	}
}

func TestModel_SwitchImport(t *testing.T) {
	m, h := newTestModel(t, true)
	unlock(t, m)

	h.Clock.Advance(time.Second)
	h.Downloader.Serve("https://files.example.com/Other.kdbx", []byte("other"))
	press(t, m, runes("i"))
	m.urlInput.SetValue("https://files.example.com/Other.kdbx")
	press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	nextEvent(t, m, kv.EventImported)

	if m.mode != modePassword || m.state.Current.OriginalName != "Other.kdbx" {
		t.Fatalf("after import mode = %d current = %+v", m.mode, m.state.Current)
	}

	list, err := h.Store.ListAll()
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	press(t, m, historyMsg{list: list}, tea.KeyMsg{Type: tea.KeyEsc}, runes("s"))
	if m.mode != modeHistory {
		t.Fatalf("mode = %d, want modeHistory", m.mode)
	}
	if view := m.View(); !strings.Contains(view, "Other.kdbx  [current]") {
		t.Errorf("View() = %q, want current marker on Other.kdbx", view)
	}

	press(t, m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyEnter})
	if m.mode != modePassword {
		t.Errorf("mode = %d, want modePassword", m.mode)
	}
	if !m.state.Pinned || m.state.Current.OriginalName != "MyVault.kdbx" {
		t.Errorf("current = %+v pinned = %v, want MyVault.kdbx pinned", m.state.Current, m.state.Pinned)
	}
	if !strings.Contains(m.View(), "[pinned]") {
		t.Errorf("View() = %q, want pinned marker", m.View())
	}
}

func TestModel_SessionClosed(t *testing.T) {
	m, _ := newTestModel(t, false)
	_, cmd := m.Update(sessionClosedMsg{})
	if cmd == nil || !m.quitting {
		t.Error("closing the session did not quit the program")
	}
}
