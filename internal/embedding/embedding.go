// Package embedding turns text into dense vectors for the vector store.
package embedding

import "context"

// Embedder produces embedding vectors for texts. Implementations must return
// one vector per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
