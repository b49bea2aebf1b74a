package keyword

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/torikomi/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "bleve"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func chunk(content, filePath string, index int) models.DocumentChunk {
	return models.DocumentChunk{
		Content: content,
		Index:   index,
		Metadata: models.IngestionMetadata{
			FileName:   filepath.Base(filePath),
			FileType:   ".pdf",
			FilePath:   filePath,
			PageNumber: "1",
			Source:     models.SourceLocal,
		},
	}
}

func TestUpsertAndSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	chunks := []models.DocumentChunk{
		chunk("kubernetes cluster networking", "/docs/a.pdf", 0),
		chunk("postgres replication setup", "/docs/a.pdf", 1),
		chunk("kubernetes ingress controllers", "/docs/b.pdf", 0),
	}
	if err := s.Upsert(ctx, chunks); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	results, err := s.Search(ctx, "kubernetes", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Metadata.FilePath == "" || r.RetrievalScore <= 0 {
			t.Errorf("result missing metadata or score: %+v", r)
		}
	}
}

func TestUpsertOverwritesByWriteKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, []models.DocumentChunk{chunk("first version", "/docs/a.pdf", 0)}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.Upsert(ctx, []models.DocumentChunk{chunk("second version", "/docs/a.pdf", 0)}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	count, err := s.DocCount()
	if err != nil {
		t.Fatalf("DocCount: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 doc after overwrite, got %d", count)
	}

	results, err := s.Search(ctx, "second", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Content != "second version" {
		t.Fatalf("expected overwritten content, got %+v", results)
	}
}

func TestDeleteByIdentity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, []models.DocumentChunk{
		chunk("alpha", "/docs/a.pdf", 0),
		chunk("beta", "/docs/a.pdf", 1),
		chunk("gamma", "/docs/b.pdf", 0),
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if err := s.DeleteByIdentity(ctx, "/docs/a.pdf"); err != nil {
		t.Fatalf("DeleteByIdentity: %v", err)
	}

	count, err := s.DocCount()
	if err != nil {
		t.Fatalf("DocCount: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 doc remaining, got %d", count)
	}
}

func TestDeleteByIdentityMissingIndex(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.DeleteCollection(context.Background()); err != nil {
		t.Fatalf("DeleteCollection: %v", err)
	}
	if err := s.DeleteByIdentity(context.Background(), "/docs/a.pdf"); err != nil {
		t.Fatalf("DeleteByIdentity on missing index: %v", err)
	}
}

func TestDeleteCollectionAndRebuild(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, []models.DocumentChunk{chunk("alpha", "/docs/a.pdf", 0)}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	existed, err := s.DeleteCollection(ctx)
	if err != nil {
		t.Fatalf("DeleteCollection: %v", err)
	}
	if !existed {
		t.Fatal("expected DeleteCollection to report an existing index")
	}

	existed, err = s.DeleteCollection(ctx)
	if err != nil {
		t.Fatalf("second DeleteCollection: %v", err)
	}
	if existed {
		t.Fatal("expected second DeleteCollection to report no index")
	}

	// Upsert after deletion rebuilds an empty index.
	if err := s.Upsert(ctx, []models.DocumentChunk{chunk("beta", "/docs/b.pdf", 0)}); err != nil {
		t.Fatalf("Upsert after delete: %v", err)
	}
	count, err := s.DocCount()
	if err != nil {
		t.Fatalf("DocCount: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rebuilt index with 1 doc, got %d", count)
	}
}

func TestSearchZeroSize(t *testing.T) {
	s := newTestStore(t)
	results, err := s.Search(context.Background(), "anything", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results != nil {
		t.Fatalf("expected nil results for zero size, got %v", results)
	}
}
