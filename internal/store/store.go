// Package store defines the contract shared by the two chunk backing stores:
// the vector-similarity store and the keyword-relevance store.
package store

import (
	"context"

	"github.com/hyperjump/torikomi/internal/models"
)

// Store is implemented by each backing store. Both stores key every chunk by
// its deterministic write key (identity path + chunk index), so re-upserting
// the same chunk overwrites instead of appending.
type Store interface {
	// EnsureCollectionExists creates the collection/index if missing. Idempotent.
	EnsureCollectionExists(ctx context.Context) error

	// Upsert writes chunks using their deterministic write keys. A store may
	// skip chunks it cannot hold (the vector store skips chunks without an
	// embedding).
	Upsert(ctx context.Context, chunks []models.DocumentChunk) error

	// DeleteCollection drops the entire collection/index. Irreversible.
	// Reports whether a collection existed.
	DeleteCollection(ctx context.Context) (bool, error)

	// DeleteByIdentity removes every chunk whose identity path matches.
	// Deleting from a missing collection is not an error.
	DeleteByIdentity(ctx context.Context, identityPath string) error

	// Search returns up to size chunks ranked by the store's own relevance,
	// with RetrievalScore populated.
	Search(ctx context.Context, query string, size int) ([]models.DocumentChunk, error)
}
