package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	fsrs "github.com/open-spaced-repetition/go-fsrs"

	"satforge/internal/dataset"
	"satforge/internal/models"
	"satforge/internal/services"
)

const maxMultipartMemory = 32 << 20 // 32 MB

const (
	UploadCombined  = "combined"
	UploadSeparated = "separated"
)

type Server struct {
	mux        *http.ServeMux
	extraction *services.ExtractionService
	questions  *services.QuestionService
	reviews    *services.ReviewService
	jobs       *JobManager
	uploadDir  string
	dataDir    string
}

func NewServer(
	extraction *services.ExtractionService,
	questions *services.QuestionService,
	reviews *services.ReviewService,
	uploadDir, dataDir string,
) *Server {
	s := &Server{
		mux:        http.NewServeMux(),
		extraction: extraction,
		questions:  questions,
		reviews:    reviews,
		jobs:       NewJobManager(),
		uploadDir:  uploadDir,
		dataDir:    dataDir,
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/extract", s.handleExtract)
	s.mux.HandleFunc("/api/jobs/", s.handleJobStatus)
	s.mux.HandleFunc("/api/questions", s.handleListQuestions)
	s.mux.HandleFunc("/api/questions/", s.handleGetQuestion)
	s.mux.HandleFunc("/api/stats", s.handleStats)
	s.mux.HandleFunc("/api/review/next", s.handleNextReview)
	s.mux.HandleFunc("/api/review", s.handleSubmitReview)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleExtract accepts uploaded PDF files and starts a background
// extraction job. With uploadType "combined" the question PDFs are also
// scanned for explanations; with "separated" the explanation PDFs come
// in their own form field.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	form := r.MultipartForm
	if form == nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer form.RemoveAll()

	uploadType := r.FormValue("uploadType")
	if uploadType == "" {
		uploadType = UploadSeparated
	}
	if uploadType != UploadCombined && uploadType != UploadSeparated {
		writeError(w, http.StatusBadRequest, "uploadType must be 'combined' or 'separated'")
		return
	}

	questionFiles := form.File["questions"]
	explanationFiles := form.File["explanations"]
	if len(questionFiles) == 0 {
		writeError(w, http.StatusBadRequest, "no question files uploaded")
		return
	}
	if uploadType == UploadCombined && len(explanationFiles) > 0 {
		writeError(w, http.StatusBadRequest, "combined uploads must not include separate explanation files")
		return
	}

	jobID, snapshot := s.jobs.CreateJob()

	jobDir := filepath.Join(s.uploadDir, jobID)
	questionsDir := filepath.Join(jobDir, "questions")
	if err := saveUploads(questionsDir, questionFiles); err != nil {
		s.jobs.MarkFailed(jobID, err.Error())
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	explanationsDir := ""
	if uploadType == UploadCombined {
		// The same PDFs carry both questions and explanations.
		explanationsDir = questionsDir
	} else if len(explanationFiles) > 0 {
		explanationsDir = filepath.Join(jobDir, "explanations")
		if err := saveUploads(explanationsDir, explanationFiles); err != nil {
			s.jobs.MarkFailed(jobID, err.Error())
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	go s.runExtractionJob(context.Background(), jobID, questionsDir, explanationsDir)

	writeJSON(w, http.StatusAccepted, snapshot)
}

func (s *Server) runExtractionJob(ctx context.Context, jobID, questionsDir, explanationsDir string) {
	s.jobs.MarkProcessing(jobID)

	progress := func(step, message string, current, total int) {
		s.jobs.UpdateProgress(jobID, step, message, current, total)
	}

	records, report, err := s.extraction.ExtractDirectory(ctx, questionsDir, models.RecordQuestion, progress)
	if err != nil {
		s.jobs.MarkFailed(jobID, err.Error())
		return
	}

	if explanationsDir != "" {
		expRecords, expReport, err := s.extraction.ExtractDirectory(ctx, explanationsDir, models.RecordExplanation, progress)
		if err != nil {
			s.jobs.MarkFailed(jobID, err.Error())
			return
		}
		records = append(records, expRecords...)
		if explanationsDir != questionsDir {
			report.Files = append(report.Files, expReport.Files...)
			report.Successful = append(report.Successful, expReport.Successful...)
			report.Failed = append(report.Failed, expReport.Failed...)
		}
	}

	s.jobs.UpdateProgress(jobID, "reconcile", "Merging and deduplicating records", 0, 0)
	ds, stats := s.extraction.Reconcile(records, report, time.Now())

	outputPath := filepath.Join(s.dataDir, fmt.Sprintf("sat_questions_%s.json", jobID))
	if err := dataset.Save(outputPath, &ds); err != nil {
		s.jobs.MarkFailed(jobID, err.Error())
		return
	}

	if _, err := s.questions.ImportDataset(ctx, &ds); err != nil {
		s.jobs.MarkFailed(jobID, err.Error())
		return
	}

	s.jobs.MarkCompleted(jobID, RunSummary{
		TotalQuestions:        ds.TotalCount,
		FilesProcessed:        len(report.Files),
		FilesSuccessful:       len(report.Successful),
		FilesFailed:           len(report.Failed),
		RecordsMerged:         stats.Merged,
		DuplicatesRemoved:     stats.Deduplicated,
		UnmatchedExplanations: stats.Unmatched,
		OutputPath:            outputPath,
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	jobID = strings.Trim(jobID, "/")
	if jobID == "" {
		http.NotFound(w, r)
		return
	}

	job, ok := s.jobs.GetJob(jobID)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	questions, err := s.questions.ListQuestions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"totalCount": len(questions),
		"questions":  questions,
	})
}

func (s *Server) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/questions/")
	id = strings.Trim(id, "/")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	q, err := s.questions.GetQuestion(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "question not found")
		return
	}

	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	total, err := s.questions.CountQuestions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	breakdown, err := s.questions.DomainBreakdown(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	due, err := s.reviews.DueCount(r.Context(), time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"totalQuestions": total,
		"domains":        breakdown,
		"dueReviews":     due,
	})
}

func (s *Server) handleNextReview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	if _, err := s.reviews.EnsureCards(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	q, err := s.reviews.NextDue(r.Context(), time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if q == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"question": nil,
			"message":  "No questions due. Come back later!",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"question": q})
}

type reviewRequest struct {
	QuestionID string `json:"questionId"`
	Rating     string `json:"rating"`
}

func (s *Server) handleSubmitReview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if payload.QuestionID == "" {
		writeError(w, http.StatusBadRequest, "questionId is required")
		return
	}

	rating, err := parseRating(payload.Rating)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	card, err := s.reviews.SubmitReview(r.Context(), payload.QuestionID, rating)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"questionId": card.QuestionID,
		"due":        nullTimeToString(card.Due),
		"reps":       card.Reps,
		"state":      card.State,
	})
}

func saveUploads(dir string, files []*multipart.FileHeader) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create upload dir %s: %w", dir, err)
	}
	for _, file := range files {
		if err := saveUpload(dir, file); err != nil {
			return err
		}
	}
	return nil
}

func saveUpload(dir string, file *multipart.FileHeader) error {
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("open upload %s: %w", file.Filename, err)
	}
	defer src.Close()

	name := filepath.Base(file.Filename)
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func parseRating(raw string) (fsrs.Rating, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "again":
		return fsrs.Again, nil
	case "hard":
		return fsrs.Hard, nil
	case "good":
		return fsrs.Good, nil
	case "easy":
		return fsrs.Easy, nil
	default:
		return 0, fmt.Errorf("unknown rating %q", raw)
	}
}

const timeLayout = time.RFC3339

func nullTimeToString(t sql.NullTime) *string {
	if t.Valid {
		str := t.Time.Format(timeLayout)
		return &str
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
