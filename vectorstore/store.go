package vectorstore

import (
	"context"
	"time"
)

// Store is the contract a long-term semantic memory backend must satisfy.
// Records are immutable once written: Upsert always creates a new record
// under a fresh id so retrieval stays reproducible for a given query run.
type Store interface {
	Ping(ctx context.Context) error
	Upsert(ctx context.Context, record Record) (string, error)
	Query(ctx context.Context, embedding []float32, topK int, filter Filter) ([]Record, error)
}

type Record struct {
	Id        string         `json:"id"`
	Embedding []float32      `json:"embedding,omitempty"`
	Text      string         `json:"text"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Score     float32        `json:"score"`
	CreatedAt time.Time      `json:"created_at"`
}

// Filter is an equality match over record metadata.
type Filter map[string]any
