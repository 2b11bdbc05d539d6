package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"satforge/internal/models"
	"satforge/internal/reconcile"
)

// ProgressCallback is called during batch extraction to report progress.
type ProgressCallback func(step, message string, current, total int)

// RunReport tracks per-file outcomes of one batch extraction.
type RunReport struct {
	Files      []string
	Successful []string
	Failed     []string
}

// ExtractionService coordinates PDF chunking, AI extraction, and
// reconciliation for a directory of split PDFs. Files are processed
// concurrently; the reconciler sorts by (file, sequence) afterwards, so
// completion order does not matter.
type ExtractionService struct {
	pdf           *PDFService
	ai            *AIService
	reconciler    *reconcile.Reconciler
	chunkPages    int
	maxConcurrent int
	maxRetries    int
}

func NewExtractionService(pdf *PDFService, ai *AIService, chunkPages, maxConcurrent, maxRetries int) *ExtractionService {
	if chunkPages <= 0 {
		chunkPages = 10
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ExtractionService{
		pdf:           pdf,
		ai:            ai,
		reconciler:    reconcile.New(),
		chunkPages:    chunkPages,
		maxConcurrent: maxConcurrent,
		maxRetries:    maxRetries,
	}
}

// ListPDFs returns the sorted PDF paths under dir. Sorting keeps file
// indices stable between runs, which the merge pass depends on.
func ListPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// ExtractDirectory runs extraction of one record type over every PDF in
// dir and returns the raw records plus a per-file report. A failed file
// never aborts the batch.
func (s *ExtractionService) ExtractDirectory(ctx context.Context, dir string, recordType models.RecordType, progress ProgressCallback) ([]models.RawRecord, RunReport, error) {
	files, err := ListPDFs(dir)
	if err != nil {
		return nil, RunReport{}, err
	}
	if len(files) == 0 {
		return nil, RunReport{}, fmt.Errorf("no pdf files found in %s", dir)
	}

	report := RunReport{Files: files}

	type fileResult struct {
		index   int
		records []models.RawRecord
		err     error
	}
	results := make([]fileResult, len(files))

	var wg sync.WaitGroup
	var mu sync.Mutex
	completed := 0
	semaphore := make(chan struct{}, s.maxConcurrent)

	for i, path := range files {
		wg.Add(1)
		go func(idx int, pdfPath string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			records, err := s.extractFileWithRetry(ctx, pdfPath, idx+1, recordType)
			results[idx] = fileResult{index: idx, records: records, err: err}

			mu.Lock()
			completed++
			if progress != nil {
				progress("extract", fmt.Sprintf("Processed %s", filepath.Base(pdfPath)), completed, len(files))
			}
			mu.Unlock()
		}(i, path)
	}

	wg.Wait()

	var all []models.RawRecord
	for _, res := range results {
		name := filepath.Base(files[res.index])
		if res.err != nil {
			fmt.Fprintf(os.Stderr, "extraction failed for %s: %v\n", name, res.err)
			report.Failed = append(report.Failed, name)
			continue
		}
		report.Successful = append(report.Successful, name)
		all = append(all, res.records...)
	}
	return all, report, nil
}

// extractFileWithRetry chunks one PDF and extracts every chunk, retrying
// transient failures with linear backoff (2s, 4s, 6s).
func (s *ExtractionService) extractFileWithRetry(ctx context.Context, path string, fileIndex int, recordType models.RecordType) ([]models.RawRecord, error) {
	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		records, err := s.extractFile(ctx, path, fileIndex, recordType)
		if err == nil {
			return records, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt < s.maxRetries {
			wait := time.Duration(attempt) * 2 * time.Second
			fmt.Fprintf(os.Stderr, "attempt %d/%d failed for %s, waiting %s: %v\n",
				attempt, s.maxRetries, filepath.Base(path), wait, err)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, fmt.Errorf("failed after %d attempts: %w", s.maxRetries, lastErr)
}

func (s *ExtractionService) extractFile(ctx context.Context, path string, fileIndex int, recordType models.RecordType) ([]models.RawRecord, error) {
	chunks, err := s.pdf.Chunk(path, s.chunkPages)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(path)
	var records []models.RawRecord
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk.Text) == "" {
			continue
		}
		var chunkRecords []models.RawRecord
		if recordType == models.RecordExplanation {
			chunkRecords, err = s.ai.ExtractExplanations(ctx, chunk, name, fileIndex)
		} else {
			chunkRecords, err = s.ai.ExtractQuestions(ctx, chunk, name, fileIndex)
		}
		if err != nil {
			return nil, fmt.Errorf("chunk %d (pages %d-%d): %w", chunk.Index, chunk.StartPage, chunk.EndPage, err)
		}
		records = append(records, chunkRecords...)
	}
	return records, nil
}

// Reconcile runs the merge/dedupe/link pipeline over collected records
// and fills in the run-level metadata.
func (s *ExtractionService) Reconcile(records []models.RawRecord, report RunReport, now time.Time) (models.Dataset, reconcile.Stats) {
	ds, stats := s.reconciler.Run(records)

	ds.Metadata.TotalFilesProcessed = len(report.Files)
	ds.Metadata.TotalFilesSuccessful = len(report.Successful)
	ds.Metadata.TotalFilesFailed = len(report.Failed)
	ds.Metadata.SuccessfulFiles = report.Successful
	ds.Metadata.FailedFiles = report.Failed
	ds.Metadata.ExtractionDate = now.UTC().Format("2006-01-02 15:04:05")
	ds.Metadata.ModelUsed = s.ai.Model()
	return ds, stats
}
