package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-v-k/recall/vectorstore"
	"github.com/m-v-k/recall/vectorstore/memory"
)

func TestUpsertAssignsFreshId(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	record := vectorstore.Record{
		Id:        "caller-chosen",
		Embedding: []float32{1, 0},
		Text:      "a memory",
	}

	first, err := store.Upsert(ctx, record)
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	second, err := store.Upsert(ctx, record)
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	if first == "caller-chosen" || second == "caller-chosen" {
		t.Fatalf("store must assign its own ids, got %q and %q", first, second)
	}
	if first == second {
		t.Fatalf("every write must create a new record, both got %q", first)
	}
}

func TestQueryRanksBySimilarity(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	for _, record := range []vectorstore.Record{
		{Embedding: []float32{0, 1}, Text: "orthogonal"},
		{Embedding: []float32{1, 0}, Text: "exact"},
		{Embedding: []float32{1, 1}, Text: "diagonal"},
	} {
		if _, err := store.Upsert(ctx, record); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
	}

	records, err := store.Query(ctx, []float32{1, 0}, 2, nil)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Text != "exact" || records[1].Text != "diagonal" {
		t.Fatalf("expected ranking exact, diagonal; got %q, %q", records[0].Text, records[1].Text)
	}
	if records[0].Score < records[1].Score {
		t.Fatalf("scores out of order: %f before %f", records[0].Score, records[1].Score)
	}
}

func TestQueryFiltersOnMetadata(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	for _, record := range []vectorstore.Record{
		{Embedding: []float32{1, 0}, Text: "kept", Metadata: map[string]any{"topic": "go"}},
		{Embedding: []float32{1, 0}, Text: "dropped", Metadata: map[string]any{"topic": "rust"}},
		{Embedding: []float32{1, 0}, Text: "no metadata"},
	} {
		if _, err := store.Upsert(ctx, record); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
	}

	records, err := store.Query(ctx, []float32{1, 0}, 10, vectorstore.Filter{"topic": "go"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Text != "kept" {
		t.Fatalf("expected the matching record, got %q", records[0].Text)
	}
}

func TestQueryTieBreaksAreDeterministic(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	for _, record := range []vectorstore.Record{
		{Embedding: []float32{1, 0}, Text: "older", CreatedAt: older},
		{Embedding: []float32{1, 0}, Text: "newer", CreatedAt: newer},
	} {
		if _, err := store.Upsert(ctx, record); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
	}

	for range 5 {
		records, err := store.Query(ctx, []float32{1, 0}, 2, nil)
		if err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		// Equal scores resolve by recency, so re-running the query can
		// never reshuffle the result.
		if records[0].Text != "newer" || records[1].Text != "older" {
			t.Fatalf("tie break not deterministic: got %q, %q", records[0].Text, records[1].Text)
		}
	}
}

func TestQueryZeroTopK(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	if _, err := store.Upsert(ctx, vectorstore.Record{Embedding: []float32{1, 0}, Text: "a memory"}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	records, err := store.Query(ctx, []float32{1, 0}, 0, nil)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
}
