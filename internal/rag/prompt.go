// Package rag assembles retrieval-grounded prompts and answers questions over
// retrieved document chunks.
package rag

import (
	"fmt"
	"strings"

	"github.com/hyperjump/torikomi/internal/models"
)

// AbstentionSentence is the exact answer required when no chunk is relevant.
// Downstream consumers match on it, so it must not change.
const AbstentionSentence = "The provided document chunks do not contain information relevant to the question."

// noChunksPlaceholder fills the context slot when retrieval returned nothing.
const noChunksPlaceholder = "No document chunks available for analysis."

// promptTemplate wraps the retrieved context and the question. The chunk
// header format and the citation line are parsed by consumers and must be
// reproduced exactly.
const promptTemplate = `You are a document analysis AI assistant. Answer strictly and only using the text within the provided document chunks. Do not use external knowledge or make assumptions.

ANSWERING POLICY:
- Carefully review ALL chunks for relevant information, including paraphrases and synonyms.
- Prioritize chunks with direct relevance to the question.
- If any chunk contains directly relevant information, answer concisely using that information.
- If multiple chunks provide relevant information, synthesize a comprehensive answer.
- If no chunks are relevant, respond with "` + AbstentionSentence + `" in the same language as the question.
- Don't copy text verbatim; synthesize a concise answer.
- If multiple chunks provide relevant but conflicting information, note the discrepancy and summarize the differing viewpoints.
- Always answer in the same language as the question.
- If the question is vague or ambiguous, answer based on the most likely interpretation supported by the chunks.
- If the question is unrelated to the document chunks, respond with "` + AbstentionSentence + `" in the same language as the question.
- Use proper grammar and spelling.
- If the question is a yes/no question and the answer is contained in the chunks, respond with "Yes" or "No" only.
- End your answer with a final line "Citations: <chunk numbers used>", or "Citations: none" when no chunk was used.

Document Chunks:
%s

Question: %s`

// BuildPrompt renders the chunks and question into the fixed prompt. Chunks
// are numbered in input order starting at 1; each gets a header naming its
// source file, page, and section where known.
func BuildPrompt(chunks []models.DocumentChunk, question string) string {
	question = strings.TrimSpace(question)
	if len(chunks) == 0 {
		return fmt.Sprintf(promptTemplate, noChunksPlaceholder, question)
	}

	var b strings.Builder
	for i, chunk := range chunks {
		if strings.TrimSpace(chunk.Content) == "" {
			continue
		}
		fmt.Fprintf(&b, "--- Document Chunk %d ---\n", i+1)
		b.WriteString(sourceLine(chunk.Metadata))
		b.WriteByte('\n')
		b.WriteString(strings.TrimSpace(chunk.Content))
		b.WriteString("\n\n")
	}
	context := strings.TrimRight(b.String(), "\n")
	if context == "" {
		context = noChunksPlaceholder
	}
	return fmt.Sprintf(promptTemplate, context, question)
}

func sourceLine(m models.IngestionMetadata) string {
	name := m.FileName
	if name == "" {
		name = "Unknown"
	}
	var b strings.Builder
	b.WriteString("Source: ")
	b.WriteString(name)
	if m.PageNumber != "" {
		fmt.Fprintf(&b, " (Page %s)", m.PageNumber)
	}
	if m.SectionTitle != "" {
		fmt.Fprintf(&b, " - %s", m.SectionTitle)
	}
	if m.FilePath != "" {
		fmt.Fprintf(&b, " - FilePath: %s", m.FilePath)
	}
	return b.String()
}
