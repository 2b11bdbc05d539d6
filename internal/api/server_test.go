package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"satforge/internal/db"
	"satforge/internal/models"
	"satforge/internal/services"
)

func newTestServer(t *testing.T) (*Server, *services.QuestionService) {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	questions := services.NewQuestionService(conn)
	reviews := services.NewReviewService(conn)
	extraction := services.NewExtractionService(
		services.NewPDFService(),
		services.NewAIService("", "gpt-4o-mini", ""),
		10, 2, 1,
	)
	srv := NewServer(extraction, questions, reviews, t.TempDir(), t.TempDir())
	return srv, questions
}

func seedQuestions(t *testing.T, questions *services.QuestionService) {
	t.Helper()
	ds := &models.Dataset{
		TotalCount: 1,
		Questions: []models.QuestionRecord{
			{
				ID:            "q_001",
				QuestionText:  "What is 2+2?",
				Options:       []models.Option{{ID: "A", Text: "3"}, {ID: "B", Text: "4"}},
				CorrectAnswer: "B",
				Domain:        "Algebra",
				IsComplete:    true,
			},
		},
	}
	if _, err := questions.ImportDataset(t.Context(), ds); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /api/health status = %d", rec.Code)
	}
}

func TestListAndGetQuestions(t *testing.T) {
	srv, questions := newTestServer(t)
	seedQuestions(t, questions)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/questions", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var listing struct {
		TotalCount int                     `json:"totalCount"`
		Questions  []models.QuestionRecord `json:"questions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if listing.TotalCount != 1 || len(listing.Questions) != 1 {
		t.Fatalf("unexpected listing: %+v", listing)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/questions/q_001", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get question status = %d", rec.Code)
	}
	var q models.QuestionRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &q); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if q.CorrectAnswer != "B" {
		t.Errorf("unexpected question: %+v", q)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/questions/q_999", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing question status = %d", rec.Code)
	}
}

func TestJobStatusNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/no-such-job", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestExtractRejectsEmptyUpload(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/extract", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSubmitReviewValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/review", strings.NewReader(`{"rating":"good"}`))
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing questionId status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/review", strings.NewReader(`{"questionId":"q_001","rating":"someday"}`))
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad rating status = %d", rec.Code)
	}
}

func TestJobManagerLifecycle(t *testing.T) {
	m := NewJobManager()
	id, snapshot := m.CreateJob()
	if snapshot.Status != JobStatusPending {
		t.Fatalf("new job status = %q", snapshot.Status)
	}

	m.UpdateProgress(id, "extract", "Processed part01.pdf", 1, 4)
	job, ok := m.GetJob(id)
	if !ok {
		t.Fatal("job disappeared")
	}
	if job.Status != JobStatusProcessing || job.Percent != 25 {
		t.Errorf("unexpected progress: %+v", job)
	}

	m.MarkCompleted(id, RunSummary{TotalQuestions: 12, OutputPath: "out.json"})
	job, _ = m.GetJob(id)
	if job.Status != JobStatusComplete || job.Percent != 100 {
		t.Errorf("unexpected completed job: %+v", job)
	}
	if job.Summary == nil || job.Summary.TotalQuestions != 12 {
		t.Errorf("summary not recorded: %+v", job.Summary)
	}

	// Snapshots are copies, mutating one must not leak back.
	job.Summary.TotalQuestions = 0
	again, _ := m.GetJob(id)
	if again.Summary.TotalQuestions != 12 {
		t.Error("job snapshot shares state with the manager")
	}

	m.MarkFailed(id, "  boom  ")
	job, _ = m.GetJob(id)
	if job.Status != JobStatusFailed || job.Error != "boom" {
		t.Errorf("unexpected failed job: %+v", job)
	}
}
