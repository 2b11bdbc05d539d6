package services

import (
	"os"
	"path/filepath"
	"testing"
)

func TestChunkPages(t *testing.T) {
	pages := []string{"p1", "p2", "p3", "p4", "p5"}

	t.Run("even split with remainder", func(t *testing.T) {
		chunks := ChunkPages(pages, 2)
		if len(chunks) != 3 {
			t.Fatalf("expected 3 chunks, got %d", len(chunks))
		}
		if chunks[0].StartPage != 1 || chunks[0].EndPage != 2 {
			t.Errorf("chunk 0 pages = %d-%d", chunks[0].StartPage, chunks[0].EndPage)
		}
		if chunks[2].StartPage != 5 || chunks[2].EndPage != 5 {
			t.Errorf("chunk 2 pages = %d-%d", chunks[2].StartPage, chunks[2].EndPage)
		}
		if chunks[1].Text != "p3\np4" {
			t.Errorf("chunk 1 text = %q", chunks[1].Text)
		}
	})

	t.Run("chunk larger than document", func(t *testing.T) {
		chunks := ChunkPages(pages, 100)
		if len(chunks) != 1 || chunks[0].EndPage != 5 {
			t.Fatalf("expected a single chunk covering all pages, got %+v", chunks)
		}
	})

	t.Run("zero size falls back to default", func(t *testing.T) {
		chunks := ChunkPages(pages, 0)
		if len(chunks) != 1 {
			t.Fatalf("expected 1 chunk with default size, got %d", len(chunks))
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if chunks := ChunkPages(nil, 10); chunks != nil {
			t.Fatalf("expected no chunks, got %+v", chunks)
		}
	})
}

func TestListPDFs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"part02.pdf", "part01.PDF", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.pdf"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := ListPDFs(dir)
	if err != nil {
		t.Fatalf("list pdfs: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 pdfs, got %v", files)
	}
	// Sorted order keeps file indices stable between runs.
	if filepath.Base(files[0]) != "part01.PDF" || filepath.Base(files[1]) != "part02.pdf" {
		t.Errorf("unexpected order: %v", files)
	}
}
