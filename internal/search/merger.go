// Package search merges keyword and vector retrieval into one ranked result.
package search

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/torikomi/internal/models"
	"github.com/hyperjump/torikomi/internal/store"
)

// Reranker reorders merged chunks by relevance to the query. Implementations
// may return fewer chunks than given.
type Reranker interface {
	Rerank(ctx context.Context, query string, chunks []models.DocumentChunk) ([]models.DocumentChunk, error)
}

// Merger runs a query against both stores concurrently and merges the
// results, vector hits first, deduplicated by content identity.
type Merger struct {
	keyword  store.Store
	vector   store.Store
	reranker Reranker
	logger   *zap.Logger
}

// Option configures a Merger.
type Option func(*Merger)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Merger) {
		m.logger = logger
	}
}

// WithReranker adds a rerank pass over the merged results.
func WithReranker(r Reranker) Option {
	return func(m *Merger) {
		m.reranker = r
	}
}

func NewMerger(keyword, vector store.Store, opts ...Option) *Merger {
	m := &Merger{
		keyword: keyword,
		vector:  vector,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Search queries both stores for up to limit chunks each, then merges: vector
// hits are taken first, keyword hits fill the remainder, and duplicates are
// dropped. The result never exceeds limit. A limit of zero returns nothing
// without touching either store.
func (m *Merger) Search(ctx context.Context, query string, limit int) ([]models.DocumentChunk, error) {
	if limit <= 0 {
		return nil, nil
	}

	var (
		wg             sync.WaitGroup
		vectorResults  []models.DocumentChunk
		keywordResults []models.DocumentChunk
		errChan        = make(chan error, 2)
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		results, err := m.vector.Search(ctx, query, limit)
		if err != nil {
			errChan <- fmt.Errorf("vector search: %w", err)
			return
		}
		vectorResults = results
	}()
	go func() {
		defer wg.Done()
		results, err := m.keyword.Search(ctx, query, limit)
		if err != nil {
			errChan <- fmt.Errorf("keyword search: %w", err)
			return
		}
		keywordResults = results
	}()
	wg.Wait()
	close(errChan)
	for err := range errChan {
		return nil, err
	}

	merged := mergeResults(vectorResults, keywordResults, limit)

	if m.reranker != nil && len(merged) > 0 {
		reranked, err := m.reranker.Rerank(ctx, query, merged)
		if err != nil {
			m.logger.Warn("rerank failed, keeping merge order", zap.Error(err))
		} else {
			merged = reranked
			if len(merged) > limit {
				merged = merged[:limit]
			}
		}
	}
	return merged, nil
}

// mergeResults streams vector hits first, then keyword hits, skipping chunks
// already seen, and stops as soon as limit chunks are collected.
func mergeResults(vectorResults, keywordResults []models.DocumentChunk, limit int) []models.DocumentChunk {
	seen := make(map[models.DedupKey]bool, limit)
	merged := make([]models.DocumentChunk, 0, limit)
	for _, list := range [][]models.DocumentChunk{vectorResults, keywordResults} {
		for _, c := range list {
			if len(merged) >= limit {
				return merged
			}
			key := c.DedupKey()
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, c)
		}
	}
	return merged
}
