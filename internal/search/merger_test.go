package search

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/hyperjump/torikomi/internal/models"
)

// stubStore returns canned search results and counts calls.
type stubStore struct {
	results []models.DocumentChunk
	err     error
	calls   atomic.Int32
}

func (s *stubStore) EnsureCollectionExists(ctx context.Context) error { return nil }

func (s *stubStore) Upsert(ctx context.Context, chunks []models.DocumentChunk) error { return nil }

func (s *stubStore) DeleteCollection(ctx context.Context) (bool, error) { return false, nil }

func (s *stubStore) DeleteByIdentity(ctx context.Context, identityPath string) error { return nil }

func (s *stubStore) Search(ctx context.Context, query string, size int) ([]models.DocumentChunk, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.results) > size {
		return s.results[:size], nil
	}
	return s.results, nil
}

func named(content string) models.DocumentChunk {
	return models.DocumentChunk{
		Content: content,
		Metadata: models.IngestionMetadata{
			FilePath: "/docs/a.pdf",
			FileName: "a.pdf",
			Source:   models.SourceLocal,
		},
	}
}

func contents(chunks []models.DocumentChunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Content
	}
	return out
}

func TestSearchMergesVectorFirst(t *testing.T) {
	vec := &stubStore{results: []models.DocumentChunk{named("a"), named("b"), named("c")}}
	kw := &stubStore{results: []models.DocumentChunk{named("b"), named("c"), named("d")}}
	m := NewMerger(kw, vec)

	results, err := m.Search(context.Background(), "query", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	got := contents(results)
	want := []string{"a", "b", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("results = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("results = %v, want %v", got, want)
		}
	}
}

func TestSearchRespectsLimit(t *testing.T) {
	vec := &stubStore{results: []models.DocumentChunk{named("a"), named("b")}}
	kw := &stubStore{results: []models.DocumentChunk{named("c"), named("d")}}
	m := NewMerger(kw, vec)

	results, err := m.Search(context.Background(), "query", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %v", contents(results))
	}
	if results[0].Content != "a" || results[1].Content != "b" || results[2].Content != "c" {
		t.Fatalf("results = %v", contents(results))
	}
}

func TestSearchZeroLimitSkipsStores(t *testing.T) {
	vec := &stubStore{results: []models.DocumentChunk{named("a")}}
	kw := &stubStore{results: []models.DocumentChunk{named("b")}}
	m := NewMerger(kw, vec)

	results, err := m.Search(context.Background(), "query", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results != nil {
		t.Fatalf("expected no results, got %v", contents(results))
	}
	if vec.calls.Load() != 0 || kw.calls.Load() != 0 {
		t.Fatalf("expected no store calls, got vector=%d keyword=%d", vec.calls.Load(), kw.calls.Load())
	}
}

func TestSearchPropagatesStoreError(t *testing.T) {
	storeErr := errors.New("index unavailable")
	vec := &stubStore{err: storeErr}
	kw := &stubStore{results: []models.DocumentChunk{named("a")}}
	m := NewMerger(kw, vec)

	_, err := m.Search(context.Background(), "query", 5)
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestDedupDistinguishesPages(t *testing.T) {
	page := func(content, pageNumber string) models.DocumentChunk {
		c := named(content)
		c.Metadata.PageNumber = pageNumber
		return c
	}
	vec := &stubStore{results: []models.DocumentChunk{page("a", "1")}}
	kw := &stubStore{results: []models.DocumentChunk{page("a", "2")}}
	m := NewMerger(kw, vec)

	results, err := m.Search(context.Background(), "query", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("same content on different pages should not dedup, got %v", contents(results))
	}
}

type reverseReranker struct{}

func (reverseReranker) Rerank(ctx context.Context, query string, chunks []models.DocumentChunk) ([]models.DocumentChunk, error) {
	out := make([]models.DocumentChunk, len(chunks))
	for i, c := range chunks {
		out[len(chunks)-1-i] = c
	}
	return out, nil
}

func TestSearchAppliesReranker(t *testing.T) {
	vec := &stubStore{results: []models.DocumentChunk{named("a"), named("b")}}
	kw := &stubStore{}
	m := NewMerger(kw, vec, WithReranker(reverseReranker{}))

	results, err := m.Search(context.Background(), "query", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results[0].Content != "b" || results[1].Content != "a" {
		t.Fatalf("expected reranked order, got %v", contents(results))
	}
}

type failingReranker struct{}

func (failingReranker) Rerank(ctx context.Context, query string, chunks []models.DocumentChunk) ([]models.DocumentChunk, error) {
	return nil, errors.New("model offline")
}

func TestSearchKeepsOrderWhenRerankFails(t *testing.T) {
	vec := &stubStore{results: []models.DocumentChunk{named("a"), named("b")}}
	kw := &stubStore{}
	m := NewMerger(kw, vec, WithReranker(failingReranker{}))

	results, err := m.Search(context.Background(), "query", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 || results[0].Content != "a" {
		t.Fatalf("expected merge order preserved, got %v", contents(results))
	}
}
