// Package models defines core data structures for document chunks, ingestion
// metadata, and progress records.
package models

import "fmt"

// Source identifies where a document originated.
type Source string

const (
	SourceLocal       Source = "Local"
	SourceGoogleDrive Source = "GoogleDrive"
	SourceSharePoint  Source = "SharePoint"
	SourceOneDrive    Source = "OneDrive"
	SourceDropbox     Source = "Dropbox"
)

// IngestionMetadata carries contextual information about a chunk's source
// document: file identity, position within the document, and provenance.
type IngestionMetadata struct {
	FileName     string `json:"fileName"`
	FileType     string `json:"fileType"`
	FilePath     string `json:"filePath"`
	PageNumber   string `json:"pageNumber,omitempty"`
	SectionTitle string `json:"sectionTitle,omitempty"`
	SheetName    string `json:"sheetName,omitempty"`
	RowIndex     int64  `json:"rowIndex,omitempty"`
	Source       Source `json:"source"`
}

// DocumentChunk is a bounded unit of extracted document content. Index is
// 0-based and per-document. Embedding may be nil for chunks that could not be
// embedded; such chunks are still keyword-searchable but never enter the
// vector store. RetrievalScore is transient and only populated on chunks
// returned from a store query.
type DocumentChunk struct {
	Content        string            `json:"content"`
	Embedding      []float32         `json:"-"`
	Index          int               `json:"index"`
	Metadata       IngestionMetadata `json:"metadata"`
	RetrievalScore float64           `json:"retrievalScore,omitempty"`
}

// WriteKey returns the deterministic storage key for the chunk. Both backing
// stores use this as their write key so repeated upserts overwrite rather
// than append.
func (c *DocumentChunk) WriteKey() string {
	return fmt.Sprintf("%s#%d", c.Metadata.FilePath, c.Index)
}

// DedupKey identifies a retrieved chunk for cross-store deduplication.
type DedupKey struct {
	Content    string
	Source     Source
	FileName   string
	FilePath   string
	PageNumber string
}

// DedupKey returns the deduplication key used when merging vector and
// keyword results.
func (c *DocumentChunk) DedupKey() DedupKey {
	return DedupKey{
		Content:    c.Content,
		Source:     c.Metadata.Source,
		FileName:   c.Metadata.FileName,
		FilePath:   c.Metadata.FilePath,
		PageNumber: c.Metadata.PageNumber,
	}
}
