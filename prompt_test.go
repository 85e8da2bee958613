package recall_test

import (
	"strings"
	"testing"

	"github.com/m-v-k/recall"
	"github.com/m-v-k/recall/cachestore"
	"github.com/m-v-k/recall/vectorstore"
)

func TestBuildPromptFullContext(t *testing.T) {
	retrieved := recall.RetrievalContext{
		CacheHits: []cachestore.Turn{
			{Role: "user", Content: "what is my name?"},
			{Role: "assistant", Content: "You told me it is Sam."},
		},
		MemoryHits: []vectorstore.Record{
			{Text: "the user's name is Sam"},
		},
	}

	prompt := recall.BuildPrompt("Be brief.", "and my favourite colour?", retrieved)

	for _, want := range []string{
		"Be brief.",
		"the user's name is Sam",
		"assistant: You told me it is Sam.",
		"user: and my favourite colour?",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}

	if strings.Index(prompt, "Relevant long-term memories") > strings.Index(prompt, "Recent conversation") {
		t.Fatalf("memories must precede the conversation:\n%s", prompt)
	}
}

func TestBuildPromptDegradedContext(t *testing.T) {
	prompt := recall.BuildPrompt("", "hello", recall.RetrievalContext{})

	if prompt != "user: hello" {
		t.Fatalf("expected the bare query, got %q", prompt)
	}
	if strings.Contains(prompt, "memories") || strings.Contains(prompt, "conversation") {
		t.Fatalf("empty sections must be omitted: %q", prompt)
	}
}
