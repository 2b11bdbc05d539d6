package quiz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"satforge/internal/models"
)

// View renders either the browse table or the practice card.
func (m Model) View() string {
	if m.mode == modePractice {
		return m.practiceView()
	}
	return m.browseView()
}

func (m Model) browseView() string {
	header := m.stylize(fmt.Sprintf("Question Bank: %d of %d shown", len(m.visible), len(m.questions)), lipgloss.Color("33"))
	filter := ""
	if m.flagged {
		filter = m.stylize("Filter: needs review", lipgloss.Color("214"))
	}
	footer := m.stylize("enter: practice  f: toggle flagged  q: quit", lipgloss.Color("242"))
	return lipgloss.JoinVertical(lipgloss.Left, header, filter, m.table.View(), footer)
}

func (m Model) practiceView() string {
	q := m.current()
	if q == nil {
		return "No questions to show."
	}

	var b strings.Builder

	title := fmt.Sprintf("%s  [%d/%d]", q.ID, m.selected+1, len(m.visible))
	if q.Domain != "" {
		title += "  " + q.Domain
		if q.Skill != "" {
			title += " / " + q.Skill
		}
	}
	if q.NeedsReview {
		title += "  ⚑"
	}
	b.WriteString(m.stylize(title, lipgloss.Color("33")))
	b.WriteString("\n\n")

	b.WriteString(wrap(q.QuestionText, m.width-2))
	b.WriteString("\n\n")

	for _, opt := range q.Options {
		line := fmt.Sprintf("  %s) %s", opt.ID, opt.Text)
		switch {
		case m.revealed && opt.ID == q.CorrectAnswer:
			line = m.stylize(line, lipgloss.Color("42"))
		case m.revealed && opt.ID == m.chosen:
			line = m.stylize(line, lipgloss.Color("196"))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if len(q.Options) == 0 {
		b.WriteString(m.stylize("  (free response)", lipgloss.Color("242")))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString(m.stylize(m.status, lipgloss.Color("214")))
		b.WriteString("\n")
	}
	if m.revealed && q.Explanation != "" {
		b.WriteString("\n")
		b.WriteString(m.stylize("Explanation", lipgloss.Color("252")))
		b.WriteString("\n")
		b.WriteString(wrap(q.Explanation, m.width-2))
		b.WriteString("\n")
	}

	if m.answered > 0 {
		b.WriteString(m.stylize(fmt.Sprintf("Session: %d/%d correct", m.correct, m.answered), lipgloss.Color("252")))
		b.WriteString("\n")
	}

	help := "a-d: answer  space: reveal  n/p: next/prev  esc: back  q: quit"
	if m.rate != nil && m.revealed {
		help = "1: again  2: hard  3: good  4: easy  " + help
	}
	b.WriteString("\n")
	b.WriteString(m.stylize(help, lipgloss.Color("242")))

	return b.String()
}

func (m Model) stylize(text string, color lipgloss.Color) string {
	if m.noColor || text == "" {
		return text
	}
	return lipgloss.NewStyle().Foreground(color).Render(text)
}

func tableStyles(noColor bool) table.Styles {
	styles := table.DefaultStyles()
	if noColor {
		return styles
	}
	styles.Header = styles.Header.Foreground(lipgloss.Color("252"))
	styles.Selected = styles.Selected.Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	return styles
}

func browseColumns(width int) []table.Column {
	textWidth := max(width-44, 20)
	return []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Question", Width: textWidth},
		{Title: "Domain", Width: 16},
		{Title: "Ans", Width: 3},
		{Title: "Status", Width: 8},
	}
}

func browseRows(questions []models.QuestionRecord, visible []int) []table.Row {
	rows := make([]table.Row, 0, len(visible))
	for _, idx := range visible {
		q := questions[idx]
		status := "ok"
		if q.NeedsReview {
			status = "review"
		}
		rows = append(rows, table.Row{
			q.ID,
			firstLine(q.QuestionText),
			q.Domain,
			q.CorrectAnswer,
			status,
		})
	}
	return rows
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	return text
}

// wrap reflows text to the given width, preserving paragraph breaks.
func wrap(text string, width int) string {
	if width < 20 {
		width = 20
	}
	var out []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := words[0]
		for _, word := range words[1:] {
			if len(line)+1+len(word) > width {
				out = append(out, line)
				line = word
				continue
			}
			line += " " + word
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
