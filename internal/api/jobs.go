package api

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusComplete   = "complete"
	JobStatusFailed     = "failed"
)

// RunSummary is the result payload of a finished extraction job.
type RunSummary struct {
	TotalQuestions        int    `json:"totalQuestions"`
	FilesProcessed        int    `json:"filesProcessed"`
	FilesSuccessful       int    `json:"filesSuccessful"`
	FilesFailed           int    `json:"filesFailed"`
	RecordsMerged         int    `json:"recordsMerged"`
	DuplicatesRemoved     int    `json:"duplicatesRemoved"`
	UnmatchedExplanations int    `json:"unmatchedExplanations"`
	OutputPath            string `json:"outputPath"`
}

// ExtractionJob tracks one background extraction request that the
// client polls for progress.
type ExtractionJob struct {
	ID        string      `json:"jobId"`
	Status    string      `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
	Step      string      `json:"step,omitempty"`
	Message   string      `json:"message,omitempty"`
	Current   int         `json:"current"`
	Total     int         `json:"total"`
	Percent   int         `json:"percent"`
	Summary   *RunSummary `json:"summary,omitempty"`
	Error     string      `json:"error,omitempty"`
}

type JobManager struct {
	mu   sync.RWMutex
	jobs map[string]*ExtractionJob
}

func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*ExtractionJob),
	}
}

func (m *JobManager) CreateJob() (string, *ExtractionJob) {
	job := &ExtractionJob{
		ID:        uuid.NewString(),
		Status:    JobStatusPending,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	return job.ID, job.clone()
}

func (m *JobManager) GetJob(id string) (*ExtractionJob, bool) {
	m.mu.RLock()
	job, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return job.clone(), true
}

func (m *JobManager) MarkProcessing(id string) {
	m.withJob(id, func(job *ExtractionJob) {
		job.Status = JobStatusProcessing
	})
}

func (m *JobManager) UpdateProgress(id, step, message string, current, total int) {
	m.withJob(id, func(job *ExtractionJob) {
		job.Status = JobStatusProcessing
		job.Step = step
		job.Message = message
		job.Current = current
		job.Total = total
		job.Percent = percent(current, total)
	})
}

func (m *JobManager) MarkCompleted(id string, summary RunSummary) {
	m.withJob(id, func(job *ExtractionJob) {
		job.Status = JobStatusComplete
		job.Step = "complete"
		job.Message = "Extraction complete"
		job.Percent = 100
		job.Summary = &summary
	})
}

func (m *JobManager) MarkFailed(id string, msg string) {
	m.withJob(id, func(job *ExtractionJob) {
		job.Status = JobStatusFailed
		job.Error = strings.TrimSpace(msg)
	})
}

func (m *JobManager) withJob(id string, fn func(job *ExtractionJob)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return
	}
	fn(job)
	job.UpdatedAt = time.Now().UTC()
}

func (job *ExtractionJob) clone() *ExtractionJob {
	if job == nil {
		return nil
	}
	copyJob := *job
	if job.Summary != nil {
		summary := *job.Summary
		copyJob.Summary = &summary
	}
	return &copyJob
}

func percent(current, total int) int {
	if total <= 0 {
		if current <= 0 {
			return 0
		}
		if current > 100 {
			return 100
		}
		return current
	}
	if current <= 0 {
		return 0
	}
	if current >= total {
		return 100
	}
	return int((float64(current) / float64(total)) * 100)
}
