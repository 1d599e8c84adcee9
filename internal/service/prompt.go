package service

import (
	"strconv"
	"strings"

	"askdoc/internal/domain"
)

const promptPreamble = "You are an AI assistant helping users understand documents. " +
	"Please answer the following question about the document content."

const promptInstructions = "Please provide a clear, helpful, and accurate answer based on the relevant document content. " +
	"If the question cannot be answered from the provided content, please say so. " +
	"Keep your response concise but informative."

// BuildPrompt assembles the generation prompt from document metadata, the
// selected chunks, the keyword summary and the user's question.
func BuildPrompt(question string, entry *domain.IndexEntry, relevant []domain.ScoredChunk) string {
	var b strings.Builder
	b.WriteString(promptPreamble)
	b.WriteString("\n\nDocument Information:")
	b.WriteString("\n- File Name: " + entry.DisplayName)
	b.WriteString("\n- File Type: " + entry.MimeType)
	if len(relevant) > 0 {
		b.WriteString("\n- Relevant Content Chunks Used: " + strconv.Itoa(len(relevant)))
	}
	if len(entry.Keywords) > 0 {
		b.WriteString("\n- Key Topics: " + strings.Join(entry.Keywords, ", "))
	}
	b.WriteString("\n\nRelevant Document Content:\n")
	for i, sc := range relevant {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(sc.Chunk.Text)
	}
	b.WriteString("\n\nUser Question: " + question)
	b.WriteString("\n\n" + promptInstructions)
	return b.String()
}
