package chain

import (
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/resumeai-go/internal/rag"
)

// NoContext is the context block sent when retrieval found nothing usable.
// The system prompt tells the model what it means.
const NoContext = "NO_CONTEXT"

// systemPrompt is the fixed instruction block of every request.
const systemPrompt = `You are a recruitment assistant. Use ONLY the provided resume snippets.
- Cite like [source: <filename>] next to each claim.
- If context is insufficient, say so.
- If the context is exactly NO_CONTEXT, no resumes matched: say that you have no resume information to answer from and do not cite any source.
- Be concise and factual; do not invent details.`

// humanTemplate is the final user turn; question and context are FString
// variables.
const humanTemplate = "User question:\n{question}\n\nContext:\n{context}"

const (
	varQuestion = "question"
	varContext  = "context"
	varHistory  = "history"
)

// newTemplate builds the chat template: system instructions, the optional
// history placeholder, then the question with its context.
func newTemplate() prompt.ChatTemplate {
	return prompt.FromMessages(schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.MessagesPlaceholder(varHistory, true),
		schema.UserMessage(humanTemplate),
	)
}

// FormatContext renders retrieved chunks as labelled blocks in the order
// given, separated by a blank line. Chunks whose text is blank are skipped;
// if none remain the NoContext sentinel is returned.
func FormatContext(results []rag.SearchResult) string {
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		text := strings.TrimSpace(r.Chunk.Text)
		if text == "" {
			continue
		}
		blocks = append(blocks, "[source: "+sourceOf(r.Chunk.Metadata)+"]\n"+text)
	}
	if len(blocks) == 0 {
		return NoContext
	}
	return strings.Join(blocks, "\n\n")
}

// Sources returns the distinct source names of results in first-seen order.
func Sources(results []rag.SearchResult) []string {
	seen := make(map[string]bool, len(results))
	out := make([]string, 0, len(results))
	for _, r := range results {
		if strings.TrimSpace(r.Chunk.Text) == "" {
			continue
		}
		src := sourceOf(r.Chunk.Metadata)
		if seen[src] {
			continue
		}
		seen[src] = true
		out = append(out, src)
	}
	return out
}

func sourceOf(m rag.Metadata) string {
	if m.Source != "" {
		return m.Source
	}
	if f := m.Extra[rag.KeyFile]; f != "" {
		return f
	}
	return "unknown"
}
