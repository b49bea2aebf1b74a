// Package processor extracts text from document files, splits it into
// overlapping chunks, and embeds the chunks for the vector store.
package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/torikomi/internal/embedding"
	"github.com/hyperjump/torikomi/internal/models"
)

// ErrUnsupportedFormat is returned when a file's extension has no extractor.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// supportedExtensions lists the file types the processor can extract.
var supportedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".xlsx": true,
	".txt":  true,
	".md":   true,
	".html": true,
}

// Supported reports whether the extension (with leading dot, any case) has an
// extractor.
func Supported(ext string) bool {
	return supportedExtensions[strings.ToLower(ext)]
}

// SupportedExtensions returns the extractable extensions.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(supportedExtensions))
	for ext := range supportedExtensions {
		exts = append(exts, ext)
	}
	return exts
}

// segment is a unit of extracted text with its location inside the document.
// Chunking never crosses segment boundaries, so a chunk's page or row
// metadata stays accurate.
type segment struct {
	text         string
	pageNumber   string
	sectionTitle string
	sheetName    string
	rowIndex     int64
}

// Processor turns document files into embedded chunks.
type Processor struct {
	chunker  *Chunker
	embedder embedding.Embedder
	logger   *zap.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// NewProcessor creates a processor that chunks with the given word window and
// embeds chunk content with embedder.
func NewProcessor(chunkSize, chunkOverlap int, embedder embedding.Embedder, opts ...Option) *Processor {
	p := &Processor{
		chunker:  NewChunker(chunkSize, chunkOverlap),
		embedder: embedder,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process reads the file at localPath, extracts its text, splits it into
// chunks, and embeds them. Chunk indices are sequential across the whole
// document. The caller stamps identity and provenance metadata; the processor
// only sees the local copy.
func (p *Processor) Process(ctx context.Context, localPath string) ([]models.DocumentChunk, error) {
	ext := strings.ToLower(filepath.Ext(localPath))
	if !Supported(ext) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	content, err := os.ReadFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	segments, err := p.extract(content, ext)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", ext, err)
	}

	fileName := filepath.Base(localPath)
	chunks := make([]models.DocumentChunk, 0)
	index := 0
	for _, seg := range segments {
		for _, text := range p.chunker.Chunk(seg.text) {
			chunks = append(chunks, models.DocumentChunk{
				Content: text,
				Index:   index,
				Metadata: models.IngestionMetadata{
					FileName:     fileName,
					FileType:     ext,
					PageNumber:   seg.pageNumber,
					SectionTitle: seg.sectionTitle,
					SheetName:    seg.sheetName,
					RowIndex:     seg.rowIndex,
				},
			})
			index++
		}
	}
	if len(chunks) == 0 {
		p.logger.Warn("document yielded no chunks", zap.String("path", localPath))
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}
	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		// Keep the chunks for keyword indexing; the vector store skips
		// chunks without an embedding.
		p.logger.Warn("embedding failed, chunks will be keyword-only",
			zap.String("path", localPath), zap.Error(err))
		return chunks, nil
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}
	return chunks, nil
}

func (p *Processor) extract(content []byte, ext string) ([]segment, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".xlsx":
		return extractExcel(content)
	case ".html":
		return extractHTML(content)
	case ".txt", ".md":
		return extractPlain(content)
	default:
		return nil, ErrUnsupportedFormat
	}
}
