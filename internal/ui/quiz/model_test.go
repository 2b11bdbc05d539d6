package quiz

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	fsrs "github.com/open-spaced-repetition/go-fsrs"

	"satforge/internal/models"
)

func sampleQuestions() []models.QuestionRecord {
	return []models.QuestionRecord{
		{
			ID:           "q_001",
			QuestionText: "What is 2+2?",
			Options: []models.Option{
				{ID: "A", Text: "3"},
				{ID: "B", Text: "4"},
			},
			CorrectAnswer: "B",
			Explanation:   "Choice B is correct because 2+2=4.",
			Domain:        "Algebra",
			IsComplete:    true,
		},
		{
			ID:           "q_002",
			QuestionText: "Solve x+1=2.",
			NeedsReview:  true,
		},
	}
}

func keyMsg(key string) tea.KeyMsg {
	switch key {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
}

func update(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, key := range keys {
		next, _ := m.Update(keyMsg(key))
		var ok bool
		m, ok = next.(Model)
		if !ok {
			t.Fatalf("Update returned %T", next)
		}
	}
	return m
}

func TestFlaggedFilter(t *testing.T) {
	m := NewModel(sampleQuestions(), Options{NoColor: true})
	if len(m.visible) != 2 {
		t.Fatalf("expected 2 visible questions, got %d", len(m.visible))
	}

	m = update(t, m, "f")
	if len(m.visible) != 1 || m.questions[m.visible[0]].ID != "q_002" {
		t.Fatalf("flagged filter should leave only q_002, got %v", m.visible)
	}

	m = update(t, m, "f")
	if len(m.visible) != 2 {
		t.Fatalf("toggling back should restore all questions, got %d", len(m.visible))
	}
}

func TestPracticeAnswering(t *testing.T) {
	m := NewModel(sampleQuestions(), Options{NoColor: true})
	m = update(t, m, "enter")
	if m.mode != modePractice {
		t.Fatal("enter should open the practice view")
	}

	m = update(t, m, "b")
	if !m.revealed || m.status != "Correct!" {
		t.Errorf("correct answer not recognized: revealed=%v status=%q", m.revealed, m.status)
	}
	view := m.View()
	if !strings.Contains(view, "Choice B is correct") {
		t.Error("explanation should be shown after answering")
	}

	m = update(t, m, "n", "a")
	if m.status != "No answer key for this question." {
		t.Errorf("question without answer key: status=%q", m.status)
	}

	m = update(t, m, "esc")
	if m.mode != modeBrowse {
		t.Error("esc should return to the browse table")
	}
}

func TestWrongAnswerMessage(t *testing.T) {
	m := NewModel(sampleQuestions(), Options{NoColor: true})
	m = update(t, m, "enter", "a")
	if m.status != "Incorrect. The answer is B." {
		t.Errorf("status = %q", m.status)
	}
}

func TestRatingFlow(t *testing.T) {
	var gotID string
	var gotRating fsrs.Rating
	rate := func(id string, rating fsrs.Rating) error {
		gotID = id
		gotRating = rating
		return nil
	}

	m := NewModel(sampleQuestions(), Options{NoColor: true, Rate: rate})
	m = update(t, m, "enter")

	// Rating before revealing is ignored.
	m = update(t, m, "3")
	if gotID != "" {
		t.Fatal("rating should require a revealed answer")
	}

	m = update(t, m, "b", "3")
	if gotID != "q_001" || gotRating != fsrs.Good {
		t.Errorf("rate called with (%q, %v)", gotID, gotRating)
	}
	// Rating advances to the next question.
	if q := m.current(); q == nil || q.ID != "q_002" {
		t.Errorf("expected to advance to q_002, got %+v", q)
	}
}

func TestViewListsOptions(t *testing.T) {
	m := NewModel(sampleQuestions(), Options{NoColor: true})
	m = update(t, m, "enter")
	view := m.View()
	for _, want := range []string{"What is 2+2?", "A) 3", "B) 4"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if strings.Contains(view, "Explanation") {
		t.Error("explanation must stay hidden before answering")
	}
}
