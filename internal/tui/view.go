package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"kv-go/internal/kv"
)

const timeLayout = "2006-01-02 15:04:05"

func (m *model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.viewHeader())
	b.WriteString("\n\n")

	switch m.mode {
	case modePassword:
		b.WriteString(m.viewPassword())
	case modeImport:
		b.WriteString(m.viewImport())
	case modeHistory:
		b.WriteString(m.viewHistory())
	default:
		b.WriteString(m.viewBrowse())
	}

	if m.state.LastError != nil {
		b.WriteString("\n\n")
		b.WriteString(errorStyle.Render(kv.UserMessage(m.state.LastError)))
	}
	b.WriteString("\n\n")
	b.WriteString(subtleStyle.Render(m.help()))
	return docStyle.Render(b.String())
}

func (m *model) viewHeader() string {
	title := titleStyle.Render("kv")
	cur := m.state.Current
	if cur == nil {
		return title + subtleStyle.Render("  no import")
	}
	line := fmt.Sprintf("%s  %s (#%d, %s)", title, cur.OriginalName, cur.ID, cur.ImportedAt.Local().Format(timeLayout))
	if m.state.Pinned {
		line += subtleStyle.Render("  [pinned]")
	}
	var status []string
	if m.state.Importing {
		status = append(status, "importing…")
	}
	if m.state.Unlocking {
		status = append(status, "unlocking…")
	}
	if len(status) > 0 {
		line += "  " + statusStyle.Render(strings.Join(status, " "))
	}
	return line
}

func (m *model) viewBrowse() string {
	if m.state.Current == nil {
		return "No database imported. Press i to import one."
	}
	if m.state.Tree == nil {
		return "Locked. Press p to enter the master password."
	}

	var tree strings.Builder
	for i, row := range m.rows {
		tree.WriteString(strings.Repeat("  ", row.Depth))
		label := row.Node.Title
		if label == "" {
			label = "(untitled)"
		}
		if row.Node.IsGroup() {
			marker := "▸ "
			if row.Expanded {
				marker = "▾ "
			}
			label = groupStyle.Render(marker + label)
		} else {
			label = "  " + label
		}
		if i == m.cursor {
			label = selectedStyle.Render("> ") + label
		} else {
			label = "  " + label
		}
		tree.WriteString(label)
		tree.WriteString("\n")
	}
	fmt.Fprintf(&tree, "\n%s", subtleStyle.Render(fmt.Sprintf("%d entries", m.state.Tree.CountEntries())))

	return lipgloss.JoinHorizontal(lipgloss.Top, tree.String(), m.viewDetail())
}

func (m *model) viewDetail() string {
	n := m.selected()
	if n == nil || n.IsGroup() {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", titleStyle.Render(n.Title))
	fmt.Fprintf(&b, "Path:     %s\n", strings.Join(m.state.Tree.Path(n.ID), " / "))
	fmt.Fprintf(&b, "Username: %s\n", n.Username)
	fmt.Fprintf(&b, "Password: %s\n", kv.MaskSecret(n.Secret))
	if n.URL != "" {
		fmt.Fprintf(&b, "URL:      %s\n", n.URL)
	}
	if n.Notes != "" {
		fmt.Fprintf(&b, "Notes:    %s\n", n.Notes)
	}
	if m.state.Clipboard.Holding {
		secs := int(math.Ceil(m.state.ClipboardRemaining.Seconds()))
		fmt.Fprintf(&b, "\n%s", statusStyle.Render(fmt.Sprintf("Clipboard clears in %ds", secs)))
	}
	return detailStyle.Render(b.String())
}

func (m *model) viewPassword() string {
	name := "the current import"
	if m.state.Current != nil {
		name = m.state.Current.OriginalName
	}
	return fmt.Sprintf("Master password for %s:\n%s", name, m.passwordInput.View())
}

func (m *model) viewImport() string {
	return "URL to import:\n" + m.urlInput.View()
}

func (m *model) viewHistory() string {
	if len(m.history) == 0 {
		return "No imports yet."
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Imports"))
	b.WriteString("\n")
	for i, rec := range m.history {
		prefix := "  "
		if i == m.historyCursor {
			prefix = selectedStyle.Render("> ")
		}
		line := fmt.Sprintf("#%d  %s  %s", rec.ID, rec.ImportedAt.Local().Format(timeLayout), rec.OriginalName)
		if m.state.Current != nil && rec.ID == m.state.Current.ID {
			line += "  [current]"
		}
		b.WriteString(prefix + line + "\n")
	}
	return b.String()
}

func (m *model) help() string {
	switch m.mode {
	case modePassword:
		return "enter unlock • esc cancel"
	case modeImport:
		return "enter import • esc cancel"
	case modeHistory:
		return "↑/↓ move • enter switch • esc back"
	default:
		return "↑/↓ move • enter expand • c copy password • u copy username • s switch • i import • p password • q quit"
	}
}
