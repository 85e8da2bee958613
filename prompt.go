package recall

import (
	"fmt"
	"strings"
)

// BuildPrompt flattens a retrieval context into a single prompt for the
// generation step. Empty sections are omitted so a degraded context
// still yields a usable prompt.
func BuildPrompt(systemPrompt string, query string, retrieved RetrievalContext) string {
	var b strings.Builder

	if len(strings.TrimSpace(systemPrompt)) > 0 {
		b.WriteString(systemPrompt)
		b.WriteString("\n\n")
	}

	if len(retrieved.MemoryHits) > 0 {
		b.WriteString("Relevant long-term memories:\n")
		for _, record := range retrieved.MemoryHits {
			b.WriteString(fmt.Sprintf("- %s\n", record.Text))
		}
		b.WriteString("\n")
	}

	if len(retrieved.CacheHits) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, turn := range retrieved.CacheHits {
			b.WriteString(fmt.Sprintf("%s: %s\n", turn.Role, turn.Content))
		}
		b.WriteString("\n")
	}

	b.WriteString("user: ")
	b.WriteString(query)

	return b.String()
}
