// Package keyword provides the Bleve-backed keyword-relevance store.
package keyword

import (
	"context"
	"os"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/torikomi/internal/models"
	"github.com/hyperjump/torikomi/internal/store"
)

// StoreName identifies this store in wrapped errors.
const StoreName = "keyword"

// deleteBatchSize bounds how many chunk ids are collected per pass when
// deleting by identity.
const deleteBatchSize = 500

// Store implements store.Store on a Bleve index. Chunks are indexed under
// their deterministic write key, so re-upserts overwrite.
type Store struct {
	path string

	mu    sync.Mutex
	index bleve.Index
}

// chunkDoc is the flat shape indexed into Bleve. Fields are stored so search
// hits can be rebuilt into models.DocumentChunk.
type chunkDoc struct {
	Content      string  `json:"content"`
	FileName     string  `json:"fileName"`
	FileType     string  `json:"fileType"`
	FilePath     string  `json:"filePath"`
	PageNumber   string  `json:"pageNumber"`
	SectionTitle string  `json:"sectionTitle"`
	SheetName    string  `json:"sheetName"`
	RowIndex     float64 `json:"rowIndex"`
	Source       string  `json:"source"`
	Index        float64 `json:"index"`
}

// NewStore creates or opens a Bleve index at path. An existing index is
// reused so chunks survive restarts.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.EnsureCollectionExists(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func indexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so query terms
	// match the exact words that were indexed.
	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textField)
	docMapping.AddFieldMappingsAt("fileName", textField)
	docMapping.AddFieldMappingsAt("sectionTitle", textField)
	docMapping.AddFieldMappingsAt("sheetName", textField)

	// Identity fields must match exactly, not be tokenized: filePath is the
	// delete-by-identity key.
	keywordField := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("filePath", keywordField)
	docMapping.AddFieldMappingsAt("source", keywordField)
	docMapping.AddFieldMappingsAt("fileType", keywordField)
	docMapping.AddFieldMappingsAt("pageNumber", keywordField)

	numField := bleve.NewNumericFieldMapping()
	docMapping.AddFieldMappingsAt("rowIndex", numField)
	docMapping.AddFieldMappingsAt("index", numField)

	im.AddDocumentMapping("chunk", docMapping)
	im.DefaultType = "chunk"
	im.DefaultMapping = docMapping
	return im
}

// EnsureCollectionExists opens or creates the index. Idempotent; called again
// after DeleteCollection to rebuild an empty index.
func (s *Store) EnsureCollectionExists(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked()
}

func (s *Store) ensureLocked() error {
	if s.index != nil {
		return nil
	}
	if _, err := os.Stat(s.path); err == nil {
		index, openErr := bleve.Open(s.path)
		if openErr != nil {
			return store.NewError(StoreName, "open index", openErr)
		}
		s.index = index
		return nil
	}
	index, err := bleve.New(s.path, indexMapping())
	if err != nil {
		return store.NewError(StoreName, "create index", err)
	}
	s.index = index
	return nil
}

// Upsert indexes chunks under their write keys in one batch.
func (s *Store) Upsert(ctx context.Context, chunks []models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLocked(); err != nil {
		return err
	}

	batch := s.index.NewBatch()
	for i := range chunks {
		c := &chunks[i]
		doc := chunkDoc{
			Content:      c.Content,
			FileName:     c.Metadata.FileName,
			FileType:     c.Metadata.FileType,
			FilePath:     c.Metadata.FilePath,
			PageNumber:   c.Metadata.PageNumber,
			SectionTitle: c.Metadata.SectionTitle,
			SheetName:    c.Metadata.SheetName,
			RowIndex:     float64(c.Metadata.RowIndex),
			Source:       string(c.Metadata.Source),
			Index:        float64(c.Index),
		}
		if err := batch.Index(c.WriteKey(), doc); err != nil {
			return store.NewError(StoreName, "batch index", err)
		}
	}
	if err := s.index.Batch(batch); err != nil {
		return store.NewError(StoreName, "upsert", err)
	}
	return nil
}

// DeleteCollection closes the index and removes it from disk.
func (s *Store) DeleteCollection(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		if _, err := os.Stat(s.path); err != nil {
			return false, nil
		}
		if err := os.RemoveAll(s.path); err != nil {
			return false, store.NewError(StoreName, "delete index", err)
		}
		return true, nil
	}
	if err := s.index.Close(); err != nil {
		return false, store.NewError(StoreName, "close index", err)
	}
	s.index = nil
	if err := os.RemoveAll(s.path); err != nil {
		return false, store.NewError(StoreName, "delete index", err)
	}
	return true, nil
}

// DeleteByIdentity removes every chunk whose filePath matches identityPath.
// A missing index is treated as already empty.
func (s *Store) DeleteByIdentity(ctx context.Context, identityPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		return nil
	}

	q := blevequery.NewTermQuery(identityPath)
	q.SetField("filePath")

	for {
		req := bleve.NewSearchRequest(q)
		req.Size = deleteBatchSize
		res, err := s.index.Search(req)
		if err != nil {
			return store.NewError(StoreName, "delete by identity", err)
		}
		if len(res.Hits) == 0 {
			return nil
		}
		batch := s.index.NewBatch()
		for _, hit := range res.Hits {
			batch.Delete(hit.ID)
		}
		if err := s.index.Batch(batch); err != nil {
			return store.NewError(StoreName, "delete by identity", err)
		}
	}
}

// Search runs a match query over content and the textual metadata fields and
// returns up to size chunks ranked by Bleve's relevance score.
func (s *Store) Search(ctx context.Context, query string, size int) ([]models.DocumentChunk, error) {
	if size <= 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLocked(); err != nil {
		return nil, err
	}

	fields := []string{"content", "fileName", "sectionTitle", "sheetName"}
	queries := make([]blevequery.Query, 0, len(fields))
	for _, f := range fields {
		mq := bleve.NewMatchQuery(query)
		mq.SetField(f)
		queries = append(queries, mq)
	}
	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(queries...))
	req.Size = size
	req.Fields = []string{"*"}

	res, err := s.index.Search(req)
	if err != nil {
		return nil, store.NewError(StoreName, "search", err)
	}

	out := make([]models.DocumentChunk, 0, len(res.Hits))
	for _, hit := range res.Hits {
		out = append(out, models.DocumentChunk{
			Content:        fieldString(hit.Fields, "content"),
			Index:          int(fieldFloat(hit.Fields, "index")),
			RetrievalScore: hit.Score,
			Metadata: models.IngestionMetadata{
				FileName:     fieldString(hit.Fields, "fileName"),
				FileType:     fieldString(hit.Fields, "fileType"),
				FilePath:     fieldString(hit.Fields, "filePath"),
				PageNumber:   fieldString(hit.Fields, "pageNumber"),
				SectionTitle: fieldString(hit.Fields, "sectionTitle"),
				SheetName:    fieldString(hit.Fields, "sheetName"),
				RowIndex:     int64(fieldFloat(hit.Fields, "rowIndex")),
				Source:       models.Source(fieldString(hit.Fields, "source")),
			},
		})
	}
	return out, nil
}

// Close closes the underlying Bleve index.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		return nil
	}
	err := s.index.Close()
	s.index = nil
	return err
}

// DocCount returns the number of chunks currently indexed.
func (s *Store) DocCount() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		return 0, nil
	}
	return s.index.DocCount()
}

func fieldString(fields map[string]interface{}, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

func fieldFloat(fields map[string]interface{}, key string) float64 {
	if v, ok := fields[key].(float64); ok {
		return v
	}
	return 0
}

var _ store.Store = (*Store)(nil)
