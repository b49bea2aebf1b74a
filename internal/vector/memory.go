package vector

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/hyperjump/torikomi/internal/embedding"
	"github.com/hyperjump/torikomi/internal/models"
	"github.com/hyperjump/torikomi/internal/store"
)

// MemoryStore is an in-memory store.Store keyed by chunk write key. It ranks
// search results by cosine similarity against the query embedding. Intended
// for tests and running without a Qdrant server.
type MemoryStore struct {
	embedder embedding.Embedder

	mu     sync.RWMutex
	chunks map[string]models.DocumentChunk
}

func NewMemoryStore(embedder embedding.Embedder) *MemoryStore {
	return &MemoryStore{
		embedder: embedder,
		chunks:   make(map[string]models.DocumentChunk),
	}
}

func (s *MemoryStore) EnsureCollectionExists(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chunks == nil {
		s.chunks = make(map[string]models.DocumentChunk)
	}
	return nil
}

func (s *MemoryStore) Upsert(ctx context.Context, chunks []models.DocumentChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		s.chunks[c.WriteKey()] = c
	}
	return nil
}

func (s *MemoryStore) DeleteCollection(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existed := len(s.chunks) > 0
	s.chunks = make(map[string]models.DocumentChunk)
	return existed, nil
}

func (s *MemoryStore) DeleteByIdentity(ctx context.Context, identityPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, c := range s.chunks {
		if c.Metadata.FilePath == identityPath {
			delete(s.chunks, key)
		}
	}
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, query string, size int) ([]models.DocumentChunk, error) {
	if size <= 0 {
		return nil, nil
	}
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, store.NewError(StoreName, "embed query", err)
	}
	queryVec := vectors[0]

	s.mu.RLock()
	scored := make([]models.DocumentChunk, 0, len(s.chunks))
	for _, c := range s.chunks {
		c.RetrievalScore = cosineSimilarity(queryVec, c.Embedding)
		scored = append(scored, c)
	}
	s.mu.RUnlock()

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].RetrievalScore > scored[j].RetrievalScore
	})
	if len(scored) > size {
		scored = scored[:size]
	}
	return scored, nil
}

// Len returns the number of stored chunks.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var _ store.Store = (*MemoryStore)(nil)
