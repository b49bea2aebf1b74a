package rag

import (
	"strings"
	"testing"

	"github.com/hyperjump/torikomi/internal/models"
)

func TestBuildPromptEmptyChunks(t *testing.T) {
	prompt := BuildPrompt(nil, "What is the refund policy?")
	if !strings.Contains(prompt, "No document chunks available for analysis.") {
		t.Error("expected no-chunks placeholder")
	}
	if !strings.Contains(prompt, "Question: What is the refund policy?") {
		t.Error("expected question appended")
	}
	if !strings.Contains(prompt, AbstentionSentence) {
		t.Error("expected abstention sentence in policy")
	}
}

func TestBuildPromptNumbersChunks(t *testing.T) {
	chunks := []models.DocumentChunk{
		{
			Content: "First chunk text.",
			Metadata: models.IngestionMetadata{
				FileName:   "report.pdf",
				FilePath:   "/docs/report.pdf",
				PageNumber: "3",
			},
		},
		{
			Content: "Second chunk text.",
			Metadata: models.IngestionMetadata{
				FileName:     "notes.docx",
				FilePath:     "/docs/notes.docx",
				SectionTitle: "Summary",
			},
		},
	}
	prompt := BuildPrompt(chunks, "question")

	if !strings.Contains(prompt, "--- Document Chunk 1 ---") ||
		!strings.Contains(prompt, "--- Document Chunk 2 ---") {
		t.Error("expected numbered chunk headers")
	}
	if !strings.Contains(prompt, "Source: report.pdf (Page 3) - FilePath: /docs/report.pdf") {
		t.Errorf("unexpected source line for first chunk:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Source: notes.docx - Summary - FilePath: /docs/notes.docx") {
		t.Errorf("unexpected source line for second chunk:\n%s", prompt)
	}
	if strings.Index(prompt, "First chunk text.") > strings.Index(prompt, "Second chunk text.") {
		t.Error("expected chunks in input order")
	}
}

func TestBuildPromptCitationLine(t *testing.T) {
	prompt := BuildPrompt(nil, "q")
	if !strings.Contains(prompt, `"Citations: <chunk numbers used>"`) {
		t.Error("expected citation line instruction")
	}
}

func TestBuildPromptTrimsContentAndQuestion(t *testing.T) {
	chunks := []models.DocumentChunk{
		{Content: "  padded content  ", Metadata: models.IngestionMetadata{FileName: "a.txt"}},
	}
	prompt := BuildPrompt(chunks, "  spaced question  ")
	if !strings.Contains(prompt, "\npadded content\n") {
		t.Error("expected trimmed chunk content")
	}
	if !strings.Contains(prompt, "Question: spaced question") {
		t.Error("expected trimmed question")
	}
}

func TestBuildPromptSkipsBlankChunks(t *testing.T) {
	chunks := []models.DocumentChunk{
		{Content: "   ", Metadata: models.IngestionMetadata{FileName: "a.txt"}},
	}
	prompt := BuildPrompt(chunks, "q")
	if !strings.Contains(prompt, "No document chunks available for analysis.") {
		t.Error("expected placeholder when all chunks are blank")
	}
}

func TestBuildPromptUnknownFileName(t *testing.T) {
	chunks := []models.DocumentChunk{{Content: "text"}}
	prompt := BuildPrompt(chunks, "q")
	if !strings.Contains(prompt, "Source: Unknown") {
		t.Error("expected Unknown source for missing file name")
	}
}
