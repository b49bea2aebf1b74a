package rag

import (
	"context"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"github.com/hyperjump/torikomi/internal/models"
	"github.com/hyperjump/torikomi/internal/search"
)

type stubCompleter struct {
	prompt string
	answer string
}

func (s *stubCompleter) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	s.prompt = prompt
	return s.answer, nil
}

type stubSearchStore struct {
	results []models.DocumentChunk
}

func (s *stubSearchStore) EnsureCollectionExists(ctx context.Context) error { return nil }

func (s *stubSearchStore) Upsert(ctx context.Context, chunks []models.DocumentChunk) error {
	return nil
}

func (s *stubSearchStore) DeleteCollection(ctx context.Context) (bool, error) { return false, nil }

func (s *stubSearchStore) DeleteByIdentity(ctx context.Context, identityPath string) error {
	return nil
}

func (s *stubSearchStore) Search(ctx context.Context, query string, size int) ([]models.DocumentChunk, error) {
	if len(s.results) > size {
		return s.results[:size], nil
	}
	return s.results, nil
}

func TestAskBuildsPromptFromRetrievedChunks(t *testing.T) {
	chunks := []models.DocumentChunk{
		{
			Content: "The warranty covers two years.",
			Metadata: models.IngestionMetadata{
				FileName:   "warranty.pdf",
				FilePath:   "/docs/warranty.pdf",
				PageNumber: "2",
				Source:     models.SourceLocal,
			},
		},
	}
	merger := search.NewMerger(&stubSearchStore{}, &stubSearchStore{results: chunks})
	completer := &stubCompleter{answer: "Two years."}
	svc := NewService(merger, completer, 5)

	answer, err := svc.Ask(context.Background(), "How long is the warranty?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer.Answer != "Two years." {
		t.Errorf("answer = %q", answer.Answer)
	}
	if !strings.Contains(completer.prompt, "The warranty covers two years.") {
		t.Error("expected chunk content in prompt")
	}
	if len(answer.References) != 1 {
		t.Fatalf("references = %+v", answer.References)
	}
	ref := answer.References[0]
	if ref.FilePath != "/docs/warranty.pdf" || ref.FileName != "warranty.pdf" {
		t.Errorf("reference = %+v", ref)
	}
	if len(ref.Pages) != 1 || ref.Pages[0] != "2" {
		t.Errorf("pages = %v", ref.Pages)
	}
}

func TestBuildReferencesGroupsByFilePath(t *testing.T) {
	chunks := []models.DocumentChunk{
		{Metadata: models.IngestionMetadata{FilePath: "/a.pdf", FileName: "a.pdf", PageNumber: "1"}},
		{Metadata: models.IngestionMetadata{FilePath: "/b.pdf", FileName: "b.pdf"}},
		{Metadata: models.IngestionMetadata{FilePath: "/a.pdf", FileName: "a.pdf", PageNumber: "4"}},
		{Metadata: models.IngestionMetadata{FilePath: "/a.pdf", FileName: "a.pdf", PageNumber: "1"}},
	}
	refs := buildReferences(chunks)
	if len(refs) != 2 {
		t.Fatalf("refs = %+v", refs)
	}
	if refs[0].FilePath != "/a.pdf" || refs[1].FilePath != "/b.pdf" {
		t.Fatalf("expected first-seen order, got %+v", refs)
	}
	if len(refs[0].Pages) != 2 || refs[0].Pages[0] != "1" || refs[0].Pages[1] != "4" {
		t.Fatalf("pages = %v", refs[0].Pages)
	}
}
