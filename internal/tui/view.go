package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/PreetKumarPanchani/voice-client/internal/connection"
)

const maxResultRows = 10

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	youStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	botStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	sqlStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("229"))
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("SQL Voice Assistant"))
	b.WriteString("  ")
	b.WriteString(m.connLine())
	b.WriteString("\n\n")

	b.WriteString(m.transcriptView())

	if m.sql != "" {
		b.WriteString(dimStyle.Render("sql> "))
		b.WriteString(sqlStyle.Render(m.sql))
		b.WriteString("\n")
	}
	if len(m.rows) > 0 {
		b.WriteString(m.resultsView())
	}

	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(promptStyle.Render("> "))
	b.WriteString(m.input)
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("enter send · ctrl+r mic · ctrl+t mute · esc interrupt · ctrl+e example · ctrl+c quit"))
	return b.String()
}

func (m Model) connLine() string {
	label := m.connState.String()
	if m.connDetail != "" {
		label = m.connDetail
	}
	switch m.connState {
	case connection.StateOpen:
		return okStyle.Render("● " + label)
	case connection.StateConnecting, connection.StateReconnecting:
		return warnStyle.Render("◌ " + label)
	case connection.StateFailed:
		return failStyle.Render("✗ " + label)
	default:
		return dimStyle.Render("○ " + label)
	}
}

func (m Model) transcriptView() string {
	if len(m.transcript) == 0 {
		return dimStyle.Render("Type a question about your data, or press ctrl+r and speak.") + "\n\n"
	}

	visible := m.transcript
	if limit := m.transcriptLimit(); len(visible) > limit {
		visible = visible[len(visible)-limit:]
	}

	var b strings.Builder
	for _, l := range visible {
		switch l.who {
		case "you":
			b.WriteString(youStyle.Render("you  ") + l.text)
		case "assistant":
			b.WriteString(botStyle.Render("bot  " + l.text))
		case "error":
			b.WriteString(errStyle.Render("err  " + l.text))
		default:
			b.WriteString(dimStyle.Render("sys  " + l.text))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

// transcriptLimit leaves room for the header, results and input lines.
func (m Model) transcriptLimit() int {
	if m.height == 0 {
		return 12
	}
	limit := m.height - 10 - len(m.rows)
	if limit < 3 {
		limit = 3
	}
	return limit
}

func (m Model) resultsView() string {
	cols := make([]string, 0, len(m.rows[0]))
	for k := range m.rows[0] {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = len(c)
	}
	rows := m.rows
	truncated := false
	if len(rows) > maxResultRows {
		rows = rows[:maxResultRows]
		truncated = true
	}
	cells := make([][]string, len(rows))
	for r, row := range rows {
		cells[r] = make([]string, len(cols))
		for i, c := range cols {
			v := fmt.Sprintf("%v", row[c])
			cells[r][i] = v
			if len(v) > widths[i] {
				widths[i] = len(v)
			}
		}
	}

	var b strings.Builder
	for i, c := range cols {
		b.WriteString(headerStyle.Render(pad(c, widths[i])))
		if i < len(cols)-1 {
			b.WriteString("  ")
		}
	}
	b.WriteString("\n")
	for _, row := range cells {
		for i, v := range row {
			b.WriteString(pad(v, widths[i]))
			if i < len(row)-1 {
				b.WriteString("  ")
			}
		}
		b.WriteString("\n")
	}
	if truncated {
		b.WriteString(dimStyle.Render(fmt.Sprintf("… %d more rows", len(m.rows)-maxResultRows)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) statusLine() string {
	parts := make([]string, 0, 3)
	if m.listening {
		parts = append(parts, okStyle.Render("MIC ON"))
	} else {
		parts = append(parts, dimStyle.Render("mic off"))
	}
	if m.muted {
		parts = append(parts, warnStyle.Render("MUTED"))
	} else {
		parts = append(parts, dimStyle.Render("sound on"))
	}
	if m.speaking {
		parts = append(parts, okStyle.Render("SPEAKING"))
	}
	return strings.Join(parts, "  ")
}

func pad(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}
