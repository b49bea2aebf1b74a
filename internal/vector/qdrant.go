// Package vector provides vector-similarity stores over embedded chunks.
package vector

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/hyperjump/torikomi/internal/embedding"
	"github.com/hyperjump/torikomi/internal/models"
	"github.com/hyperjump/torikomi/internal/store"
)

// StoreName identifies this store in wrapped errors.
const StoreName = "vector"

// QdrantConfig holds connection settings for a Qdrant server.
type QdrantConfig struct {
	Host       string
	Port       int
	Collection string
	VectorSize uint64
	UseTLS     bool
}

// QdrantStore implements store.Store on a Qdrant collection. Point ids are
// UUIDv5 hashes of the chunk write key, so re-upserting the same chunk
// overwrites the existing point. Chunks without an embedding are skipped.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	vectorSize uint64
	embedder   embedding.Embedder
}

// NewQdrantStore connects to Qdrant and ensures the collection exists. The
// embedder is used to embed query text at search time.
func NewQdrantStore(cfg QdrantConfig, embedder embedding.Embedder) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}
	s := &QdrantStore{
		client:     client,
		collection: cfg.Collection,
		vectorSize: cfg.VectorSize,
		embedder:   embedder,
	}
	if err := s.EnsureCollectionExists(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *QdrantStore) EnsureCollectionExists(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return store.NewError(StoreName, "check collection", err)
	}
	if exists {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	return store.NewError(StoreName, "create collection", err)
}

// pointID derives a stable UUID from the chunk write key.
func pointID(writeKey string) *qdrant.PointId {
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(writeKey)).String())
}

func payload(c *models.DocumentChunk) map[string]*qdrant.Value {
	return map[string]*qdrant.Value{
		"content":      {Kind: &qdrant.Value_StringValue{StringValue: c.Content}},
		"fileName":     {Kind: &qdrant.Value_StringValue{StringValue: c.Metadata.FileName}},
		"fileType":     {Kind: &qdrant.Value_StringValue{StringValue: c.Metadata.FileType}},
		"filePath":     {Kind: &qdrant.Value_StringValue{StringValue: c.Metadata.FilePath}},
		"pageNumber":   {Kind: &qdrant.Value_StringValue{StringValue: c.Metadata.PageNumber}},
		"sectionTitle": {Kind: &qdrant.Value_StringValue{StringValue: c.Metadata.SectionTitle}},
		"sheetName":    {Kind: &qdrant.Value_StringValue{StringValue: c.Metadata.SheetName}},
		"rowIndex":     {Kind: &qdrant.Value_IntegerValue{IntegerValue: c.Metadata.RowIndex}},
		"source":       {Kind: &qdrant.Value_StringValue{StringValue: string(c.Metadata.Source)}},
		"index":        {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(c.Index)}},
	}
}

// Upsert writes embedded chunks as points. Chunks with no embedding are
// silently skipped; the keyword store still carries them.
func (s *QdrantStore) Upsert(ctx context.Context, chunks []models.DocumentChunk) error {
	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		if len(c.Embedding) == 0 {
			continue
		}
		points = append(points, &qdrant.PointStruct{
			Id:      pointID(c.WriteKey()),
			Vectors: qdrant.NewVectors(c.Embedding...),
			Payload: payload(c),
		})
	}
	if len(points) == 0 {
		return nil
	}
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	return store.NewError(StoreName, "upsert", err)
}

func (s *QdrantStore) DeleteCollection(ctx context.Context) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return false, store.NewError(StoreName, "check collection", err)
	}
	if !exists {
		return false, nil
	}
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return false, store.NewError(StoreName, "delete collection", err)
	}
	return true, nil
}

func (s *QdrantStore) DeleteByIdentity(ctx context.Context, identityPath string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("filePath", identityPath),
			},
		}),
		Wait: qdrant.PtrOf(true),
	})
	return store.NewError(StoreName, "delete by identity", err)
}

// Search embeds the query text and returns the size nearest chunks by cosine
// similarity.
func (s *QdrantStore) Search(ctx context.Context, query string, size int) ([]models.DocumentChunk, error) {
	if size <= 0 {
		return nil, nil
	}
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, store.NewError(StoreName, "embed query", err)
	}
	if len(vectors) == 0 {
		return nil, store.NewError(StoreName, "embed query", fmt.Errorf("embedder returned no vector"))
	}

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vectors[0]...),
		Limit:          qdrant.PtrOf(uint64(size)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, store.NewError(StoreName, "search", err)
	}

	out := make([]models.DocumentChunk, 0, len(points))
	for _, p := range points {
		out = append(out, chunkFromPayload(p.Payload, float64(p.Score)))
	}
	return out, nil
}

func chunkFromPayload(p map[string]*qdrant.Value, score float64) models.DocumentChunk {
	return models.DocumentChunk{
		Content:        payloadString(p, "content"),
		Index:          int(payloadInt(p, "index")),
		RetrievalScore: score,
		Metadata: models.IngestionMetadata{
			FileName:     payloadString(p, "fileName"),
			FileType:     payloadString(p, "fileType"),
			FilePath:     payloadString(p, "filePath"),
			PageNumber:   payloadString(p, "pageNumber"),
			SectionTitle: payloadString(p, "sectionTitle"),
			SheetName:    payloadString(p, "sheetName"),
			RowIndex:     payloadInt(p, "rowIndex"),
			Source:       models.Source(payloadString(p, "source")),
		},
	}
}

func payloadString(p map[string]*qdrant.Value, key string) string {
	if v, ok := p[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func payloadInt(p map[string]*qdrant.Value, key string) int64 {
	if v, ok := p[key]; ok {
		return v.GetIntegerValue()
	}
	return 0
}

// Close releases the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

var _ store.Store = (*QdrantStore)(nil)
