package rag

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"

	"github.com/hyperjump/torikomi/internal/models"
	"github.com/hyperjump/torikomi/internal/search"
)

// Completer generates a completion for a prompt. *ollama.LLM satisfies this.
type Completer interface {
	Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error)
}

// Reference points the caller back at a source document used for an answer.
type Reference struct {
	FilePath string        `json:"filePath"`
	FileName string        `json:"fileName"`
	Source   models.Source `json:"source"`
	Pages    []string      `json:"pages,omitempty"`
}

// Answer is a grounded response with its supporting documents.
type Answer struct {
	Answer     string      `json:"answer"`
	References []Reference `json:"references"`
}

// Service answers questions by retrieving chunks and prompting a completion
// model with them.
type Service struct {
	merger    *search.Merger
	completer Completer
	limit     int
	logger    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a service that retrieves up to limit chunks per
// question.
func NewService(merger *search.Merger, completer Completer, limit int, opts ...Option) *Service {
	s := &Service{
		merger:    merger,
		completer: completer,
		limit:     limit,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ask retrieves chunks for the question, prompts the model, and returns the
// answer with references to the documents the chunks came from.
func (s *Service) Ask(ctx context.Context, question string) (*Answer, error) {
	chunks, err := s.merger.Search(ctx, question, s.limit)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	s.logger.Debug("retrieved context", zap.Int("chunks", len(chunks)))

	prompt := BuildPrompt(chunks, question)
	answer, err := s.completer.Call(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &Answer{
		Answer:     answer,
		References: buildReferences(chunks),
	}, nil
}

// buildReferences groups chunks by file path, preserving first-seen order and
// collecting the distinct pages each document contributed.
func buildReferences(chunks []models.DocumentChunk) []Reference {
	byPath := make(map[string]int)
	refs := make([]Reference, 0)
	for _, c := range chunks {
		path := c.Metadata.FilePath
		idx, ok := byPath[path]
		if !ok {
			byPath[path] = len(refs)
			refs = append(refs, Reference{
				FilePath: path,
				FileName: c.Metadata.FileName,
				Source:   c.Metadata.Source,
			})
			idx = len(refs) - 1
		}
		if page := c.Metadata.PageNumber; page != "" && !containsString(refs[idx].Pages, page) {
			refs[idx].Pages = append(refs[idx].Pages, page)
		}
	}
	return refs
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
