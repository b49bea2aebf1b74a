// Package ingest orchestrates document ingestion into the keyword and vector
// stores.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/torikomi/internal/models"
	"github.com/hyperjump/torikomi/internal/processor"
	"github.com/hyperjump/torikomi/internal/progress"
	"github.com/hyperjump/torikomi/internal/resolver"
	"github.com/hyperjump/torikomi/internal/store"
)

// ErrFolderNotFound is returned by IngestFolder for a missing directory.
var ErrFolderNotFound = errors.New("folder not found")

// defaultConcurrency bounds how many documents are processed at once.
const defaultConcurrency = 4

// Orchestrator drives an ingestion run: resolve references, clear stale
// chunks, process documents concurrently, and write each document's chunks to
// both stores while reporting progress.
type Orchestrator struct {
	keyword     store.Store
	vector      store.Store
	registry    *resolver.Registry
	processor   *processor.Processor
	tracker     *progress.Tracker
	concurrency int
	logger      *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithConcurrency bounds concurrent document processing.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

func NewOrchestrator(keyword, vector store.Store, registry *resolver.Registry, proc *processor.Processor, tracker *progress.Tracker, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		keyword:     keyword,
		vector:      vector,
		registry:    registry,
		processor:   proc,
		tracker:     tracker,
		concurrency: defaultConcurrency,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// IngestFolder ingests every supported document under dir. A missing
// directory fails with ErrFolderNotFound.
func (o *Orchestrator) IngestFolder(ctx context.Context, dir string) (*Report, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFolderNotFound, dir)
		}
		return nil, fmt.Errorf("stat folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrFolderNotFound, dir)
	}

	var refs []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if processor.Supported(filepath.Ext(path)) {
			refs = append(refs, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk folder: %w", err)
	}
	sort.Strings(refs)

	o.logger.Info("ingesting folder", zap.String("dir", dir), zap.Int("documents", len(refs)))
	return o.IngestDocuments(ctx, refs)
}

// IngestDocuments ingests the referenced documents. A reference that cannot
// be resolved aborts the whole call before any store write; failures while
// processing or persisting an individual document are isolated and collected
// in the report. Progress counts every attempted document, so the terminal
// record always reads completed == total.
func (o *Orchestrator) IngestDocuments(ctx context.Context, refs []string) (*Report, error) {
	if err := o.keyword.EnsureCollectionExists(ctx); err != nil {
		return nil, fmt.Errorf("prepare keyword store: %w", err)
	}
	if err := o.vector.EnsureCollectionExists(ctx); err != nil {
		return nil, fmt.Errorf("prepare vector store: %w", err)
	}

	// Resolve everything up front so total is known before the first
	// progress event. Cancellation stops adding entries; already-resolved
	// entries get their leases released below on every exit path, aborts
	// included.
	var entries []*resolver.PlanEntry
	defer func() {
		for _, entry := range entries {
			if err := entry.Lease.Release(); err != nil {
				o.logger.Warn("failed to release document lease",
					zap.String("path", entry.IdentityPath), zap.Error(err))
			}
		}
	}()
	for _, ref := range refs {
		if ctx.Err() != nil {
			break
		}
		entry, err := o.registry.Resolve(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", ref, err)
		}
		entries = append(entries, entry)
	}

	total := len(entries)
	report := &Report{Total: total}
	o.tracker.Publish(models.IngestionProgress{Total: total})

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		completed int
		sem       = make(chan struct{}, o.concurrency)
	)
	for _, entry := range entries {
		wg.Add(1)
		sem <- struct{}{}
		go func(entry *resolver.PlanEntry) {
			defer wg.Done()
			defer func() { <-sem }()

			chunks, err := o.ingestOne(ctx, entry)

			mu.Lock()
			defer mu.Unlock()
			completed++
			switch {
			case err == nil:
				report.Ingested++
				report.Chunks += chunks
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				// Cancellation truncates the batch; it is not a
				// document failure.
				report.Truncated++
			default:
				report.Failures = append(report.Failures, DocumentError{Ref: entry.IdentityPath, Err: err})
				o.logger.Warn("document ingestion failed",
					zap.String("path", entry.IdentityPath), zap.Error(err))
			}
			o.tracker.Publish(models.IngestionProgress{
				FilePath:  entry.IdentityPath,
				Completed: completed,
				Total:     total,
			})
		}(entry)
	}
	wg.Wait()

	o.tracker.Complete(models.IngestionProgress{Completed: total, Total: total})
	o.logger.Info("ingestion run finished",
		zap.Int("ingested", report.Ingested),
		zap.Int("failed", len(report.Failures)),
		zap.Int("chunks", report.Chunks))
	return report, nil
}

// ingestOne clears stale chunks for the document's identity in both stores,
// processes it, stamps each chunk with the entry's identity and provenance,
// and writes the fresh chunks to both stores. Returns the chunk count.
func (o *Orchestrator) ingestOne(ctx context.Context, entry *resolver.PlanEntry) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := o.keyword.DeleteByIdentity(ctx, entry.IdentityPath); err != nil {
		return 0, err
	}
	if err := o.vector.DeleteByIdentity(ctx, entry.IdentityPath); err != nil {
		return 0, err
	}

	chunks, err := o.processor.Process(ctx, entry.LocalPath)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	// The processor only knows the local copy; identity and provenance are
	// stamped here so store keys use the stable identity path.
	for i := range chunks {
		chunks[i].Metadata.FilePath = entry.IdentityPath
		chunks[i].Metadata.Source = entry.Source
	}

	if err := o.keyword.Upsert(ctx, chunks); err != nil {
		return 0, err
	}
	if err := o.vector.Upsert(ctx, chunks); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// Flush deletes both collections and clears the progress record, then
// recreates empty collections so the engine stays usable.
func (o *Orchestrator) Flush(ctx context.Context) error {
	if _, err := o.keyword.DeleteCollection(ctx); err != nil {
		return fmt.Errorf("flush keyword store: %w", err)
	}
	if _, err := o.vector.DeleteCollection(ctx); err != nil {
		return fmt.Errorf("flush vector store: %w", err)
	}
	o.tracker.Flush()
	if err := o.keyword.EnsureCollectionExists(ctx); err != nil {
		return fmt.Errorf("recreate keyword store: %w", err)
	}
	if err := o.vector.EnsureCollectionExists(ctx); err != nil {
		return fmt.Errorf("recreate vector store: %w", err)
	}
	return nil
}

// GetProgress returns the current ingestion progress record.
func (o *Orchestrator) GetProgress() models.IngestionProgress {
	return o.tracker.GetProgress()
}
