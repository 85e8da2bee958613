package cachestore

import (
	"context"
	"time"
)

// Store is the contract a short-term cache / chat-history backend must
// satisfy. Key/value expiry is the backing store's job; clients never
// re-implement it. Missing keys surface as fault.KindNotFound.
type Store interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) (Entry, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	AppendTurn(ctx context.Context, sessionId string, turn Turn) error
	History(ctx context.Context, sessionId string, limit int) ([]Turn, error)
}

type Entry struct {
	Key       string        `json:"key"`
	Value     string        `json:"value"`
	TTL       time.Duration `json:"ttl"`
	WrittenAt time.Time     `json:"written_at"`
}

// Turn is one message in a session's append-only chat history. Ordering
// is insertion order per session.
type Turn struct {
	SessionId string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
