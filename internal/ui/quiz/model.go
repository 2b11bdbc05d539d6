// Package quiz renders an interactive terminal viewer for a question
// bank: a browsable table of questions, a practice view that checks
// answers, and an optional spaced-repetition rating flow.
package quiz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	fsrs "github.com/open-spaced-repetition/go-fsrs"

	"satforge/internal/models"
)

type mode int

const (
	modeBrowse mode = iota
	modePractice
)

// RateFunc submits a spaced-repetition rating for a question. When nil
// the rating keys are disabled and the viewer is browse-only.
type RateFunc func(questionID string, rating fsrs.Rating) error

// Options configures the quiz model.
type Options struct {
	Rate    RateFunc
	NoColor bool
}

// Model is the Bubble Tea model for the question viewer.
type Model struct {
	questions []models.QuestionRecord
	visible   []int
	table     table.Model
	mode      mode
	selected  int
	chosen    string
	revealed  bool
	flagged   bool
	rate      RateFunc
	status    string
	answered  int
	correct   int
	noColor   bool
	width     int
	height    int
}

// NewModel constructs a viewer over an already-loaded question set.
func NewModel(questions []models.QuestionRecord, opts Options) Model {
	t := table.New(
		table.WithColumns(browseColumns(80)),
		table.WithRows([]table.Row{}),
		table.WithFocused(true),
	)
	t.SetStyles(tableStyles(opts.NoColor))

	m := Model{
		questions: questions,
		table:     t,
		rate:      opts.Rate,
		noColor:   opts.NoColor,
		width:     80,
		height:    24,
	}
	m.refilter()
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		m.table.SetWidth(typed.Width)
		m.table.SetHeight(max(typed.Height-6, 3))
		m.table.SetColumns(browseColumns(typed.Width))
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(typed)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.mode {
	case modeBrowse:
		switch key {
		case "q", "esc":
			return m, tea.Quit
		case "f":
			m.flagged = !m.flagged
			m.refilter()
			return m, nil
		case "enter":
			if idx, ok := m.cursorQuestion(); ok {
				m = m.openPractice(idx)
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd

	case modePractice:
		switch key {
		case "q":
			return m, tea.Quit
		case "esc":
			m.mode = modeBrowse
			m.status = ""
			return m, nil
		case "a", "b", "c", "d", "A", "B", "C", "D":
			m = m.answer(strings.ToUpper(key))
			return m, nil
		case " ":
			m.revealed = true
			return m, nil
		case "n", "right":
			m = m.advance(1)
			return m, nil
		case "p", "left":
			m = m.advance(-1)
			return m, nil
		case "1", "2", "3", "4":
			m = m.submitRating(key)
			return m, nil
		}
	}
	return m, nil
}

// answer records the chosen option and reveals the result.
func (m Model) answer(choice string) Model {
	q := m.current()
	if q == nil {
		return m
	}
	m.chosen = choice
	m.revealed = true
	if q.CorrectAnswer == "" {
		m.status = "No answer key for this question."
		return m
	}
	m.answered++
	if choice == q.CorrectAnswer {
		m.correct++
		m.status = "Correct!"
	} else {
		m.status = fmt.Sprintf("Incorrect. The answer is %s.", q.CorrectAnswer)
	}
	return m
}

func (m Model) submitRating(key string) Model {
	if m.rate == nil || !m.revealed {
		return m
	}
	q := m.current()
	if q == nil {
		return m
	}
	rating := map[string]fsrs.Rating{
		"1": fsrs.Again,
		"2": fsrs.Hard,
		"3": fsrs.Good,
		"4": fsrs.Easy,
	}[key]
	if err := m.rate(q.ID, rating); err != nil {
		m.status = "Rating failed: " + err.Error()
		return m
	}
	m.status = "Rated. Next question scheduled."
	return m.advance(1)
}

func (m Model) advance(delta int) Model {
	if len(m.visible) == 0 {
		return m
	}
	m.selected = (m.selected + delta + len(m.visible)) % len(m.visible)
	m.chosen = ""
	m.revealed = false
	m.status = ""
	return m
}

func (m Model) openPractice(idx int) Model {
	m.mode = modePractice
	m.selected = idx
	m.chosen = ""
	m.revealed = false
	m.status = ""
	return m
}

// current returns the question under practice, or nil outside bounds.
func (m Model) current() *models.QuestionRecord {
	if m.selected < 0 || m.selected >= len(m.visible) {
		return nil
	}
	return &m.questions[m.visible[m.selected]]
}

func (m Model) cursorQuestion() (int, bool) {
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(m.visible) {
		return 0, false
	}
	return cursor, true
}

// refilter rebuilds the visible index list and table rows, honoring
// the flagged-only toggle.
func (m *Model) refilter() {
	m.visible = m.visible[:0]
	for i, q := range m.questions {
		if m.flagged && !q.NeedsReview {
			continue
		}
		m.visible = append(m.visible, i)
	}
	m.table.SetRows(browseRows(m.questions, m.visible))
	if m.selected >= len(m.visible) {
		m.selected = 0
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
