package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/m-v-k/recall/vectorstore"
)

type memoryStore struct {
	options vectorstore.Options
	records map[string]vectorstore.Record
	mtx     sync.RWMutex
}

func (s *memoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *memoryStore) Upsert(ctx context.Context, record vectorstore.Record) (string, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	// Writes are append-only: a fresh id per write keeps existing records
	// immutable.
	record.Id = uuid.New().String()

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	cpy := make([]float32, len(record.Embedding))
	copy(cpy, record.Embedding)
	record.Embedding = cpy

	s.records[record.Id] = record

	return record.Id, nil
}

func (s *memoryStore) Query(ctx context.Context, embedding []float32, topK int, filter vectorstore.Filter) ([]vectorstore.Record, error) {
	if topK < 1 {
		return nil, nil
	}

	s.mtx.RLock()
	defer s.mtx.RUnlock()

	candidates := make([]vectorstore.Record, 0, len(s.records))

	for _, record := range s.records {
		if !vectorstore.Matches(record.Metadata, filter) {
			continue
		}
		record.Score = float32(vectorstore.CosineSimilarity(embedding, record.Embedding))
		candidates = append(candidates, record)
	}

	vectorstore.Rank(candidates)

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	return candidates, nil
}

func NewStore(opts ...vectorstore.Option) vectorstore.Store {
	options := vectorstore.NewOptions(opts...)

	return &memoryStore{
		options: options,
		records: map[string]vectorstore.Record{},
	}
}
