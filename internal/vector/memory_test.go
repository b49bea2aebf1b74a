package vector

import (
	"context"
	"testing"

	"github.com/hyperjump/torikomi/internal/embedding"
	"github.com/hyperjump/torikomi/internal/models"
)

func embedded(t *testing.T, e embedding.Embedder, content, filePath string, index int) models.DocumentChunk {
	t.Helper()
	vecs, err := e.Embed(context.Background(), []string{content})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	return models.DocumentChunk{
		Content:   content,
		Embedding: vecs[0],
		Index:     index,
		Metadata: models.IngestionMetadata{
			FilePath: filePath,
			FileName: "doc",
			Source:   models.SourceLocal,
		},
	}
}

func TestMemoryStoreRanksExactMatchFirst(t *testing.T) {
	e := embedding.NewMockEmbedder(32)
	s := NewMemoryStore(e)
	ctx := context.Background()

	if err := s.Upsert(ctx, []models.DocumentChunk{
		embedded(t, e, "database replication", "/docs/a.pdf", 0),
		embedded(t, e, "network routing tables", "/docs/a.pdf", 1),
		embedded(t, e, "container orchestration", "/docs/b.pdf", 0),
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	results, err := s.Search(ctx, "database replication", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Content != "database replication" {
		t.Fatalf("expected exact match first, got %q", results[0].Content)
	}
}

func TestMemoryStoreSkipsChunksWithoutEmbedding(t *testing.T) {
	s := NewMemoryStore(embedding.NewMockEmbedder(32))
	if err := s.Upsert(context.Background(), []models.DocumentChunk{
		{Content: "no vector", Metadata: models.IngestionMetadata{FilePath: "/docs/a.pdf"}},
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("expected unembedded chunk to be skipped, got %d stored", s.Len())
	}
}

func TestMemoryStoreDeleteByIdentity(t *testing.T) {
	e := embedding.NewMockEmbedder(32)
	s := NewMemoryStore(e)
	ctx := context.Background()

	if err := s.Upsert(ctx, []models.DocumentChunk{
		embedded(t, e, "alpha", "/docs/a.pdf", 0),
		embedded(t, e, "beta", "/docs/a.pdf", 1),
		embedded(t, e, "gamma", "/docs/b.pdf", 0),
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if err := s.DeleteByIdentity(ctx, "/docs/a.pdf"); err != nil {
		t.Fatalf("DeleteByIdentity: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 chunk remaining, got %d", s.Len())
	}
}

func TestMemoryStoreUpsertOverwrites(t *testing.T) {
	e := embedding.NewMockEmbedder(32)
	s := NewMemoryStore(e)
	ctx := context.Background()

	if err := s.Upsert(ctx, []models.DocumentChunk{embedded(t, e, "v1", "/docs/a.pdf", 0)}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.Upsert(ctx, []models.DocumentChunk{embedded(t, e, "v2", "/docs/a.pdf", 0)}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected overwrite to keep 1 chunk, got %d", s.Len())
	}
}

func TestMemoryStoreDeleteCollection(t *testing.T) {
	e := embedding.NewMockEmbedder(32)
	s := NewMemoryStore(e)
	ctx := context.Background()

	existed, err := s.DeleteCollection(ctx)
	if err != nil {
		t.Fatalf("DeleteCollection: %v", err)
	}
	if existed {
		t.Fatal("expected empty store to report not existed")
	}

	if err := s.Upsert(ctx, []models.DocumentChunk{embedded(t, e, "alpha", "/docs/a.pdf", 0)}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	existed, err = s.DeleteCollection(ctx)
	if err != nil {
		t.Fatalf("DeleteCollection: %v", err)
	}
	if !existed || s.Len() != 0 {
		t.Fatalf("expected populated store cleared, existed=%v len=%d", existed, s.Len())
	}
}
