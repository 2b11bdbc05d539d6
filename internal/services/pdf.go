package services

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

type PDFService struct{}

func NewPDFService() *PDFService {
	return &PDFService{}
}

func (s *PDFService) ReadPDFBytes(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	return data, nil
}

func (s *PDFService) PageCount(path string) (int, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open pdf for page count: %w", err)
	}
	defer f.Close()
	return r.NumPage(), nil
}

// ExtractPageTexts pulls the plain text of every page, 1-based order.
// Pages the parser cannot decode come back empty rather than failing
// the whole file.
func (s *PDFService) ExtractPageTexts(path string) ([]string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	numPages := r.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}

	texts := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			texts = append(texts, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			texts = append(texts, "")
			continue
		}
		texts = append(texts, text)
	}
	return texts, nil
}

// PDFChunk is a contiguous group of pages treated as one extraction unit.
// Splitting keeps each model call small; the reconciler later repairs
// questions cut at chunk boundaries.
type PDFChunk struct {
	Index     int
	StartPage int
	EndPage   int
	Text      string
}

// ChunkPages groups page texts into chunks of pagesPerChunk pages.
func ChunkPages(pages []string, pagesPerChunk int) []PDFChunk {
	if pagesPerChunk <= 0 {
		pagesPerChunk = 10
	}
	var chunks []PDFChunk
	for start := 0; start < len(pages); start += pagesPerChunk {
		end := start + pagesPerChunk
		if end > len(pages) {
			end = len(pages)
		}
		chunks = append(chunks, PDFChunk{
			Index:     len(chunks),
			StartPage: start + 1,
			EndPage:   end,
			Text:      strings.Join(pages[start:end], "\n"),
		})
	}
	return chunks
}

// Chunk extracts page texts and splits them in one step.
func (s *PDFService) Chunk(path string, pagesPerChunk int) ([]PDFChunk, error) {
	pages, err := s.ExtractPageTexts(path)
	if err != nil {
		return nil, err
	}
	return ChunkPages(pages, pagesPerChunk), nil
}
