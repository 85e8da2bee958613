package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-v-k/recall/cachestore"
	"github.com/m-v-k/recall/fault"
)

const component = "memory cache"

type memoryStore struct {
	options cachestore.Options
	entries map[string]cachestore.Entry
	expiry  map[string]time.Time
	turns   map[string][]cachestore.Turn
	mtx     sync.Mutex
}

func (s *memoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *memoryStore) Get(ctx context.Context, key string) (cachestore.Entry, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return cachestore.Entry{}, fault.New(fault.KindNotFound, component, "key not found")
	}

	// Lazy expiry: this package is the backing store, so enforcing the
	// deadline here is store behavior, not client behavior.
	if deadline, ok := s.expiry[key]; ok && time.Now().After(deadline) {
		delete(s.entries, key)
		delete(s.expiry, key)
		return cachestore.Entry{}, fault.New(fault.KindNotFound, component, "key expired")
	}

	return entry, nil
}

func (s *memoryStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.entries[key] = cachestore.Entry{
		Key:       key,
		Value:     value,
		TTL:       ttl,
		WrittenAt: time.Now().UTC(),
	}

	if ttl > 0 {
		s.expiry[key] = time.Now().Add(ttl)
	} else {
		delete(s.expiry, key)
	}

	return nil
}

func (s *memoryStore) AppendTurn(ctx context.Context, sessionId string, turn cachestore.Turn) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	turn.SessionId = sessionId
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}

	s.turns[sessionId] = append(s.turns[sessionId], turn)

	return nil
}

func (s *memoryStore) History(ctx context.Context, sessionId string, limit int) ([]cachestore.Turn, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	turns := s.turns[sessionId]

	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}

	cpy := make([]cachestore.Turn, len(turns))
	copy(cpy, turns)

	return cpy, nil
}

func NewStore(opts ...cachestore.Option) cachestore.Store {
	options := cachestore.NewOptions(opts...)

	return &memoryStore{
		options: options,
		entries: map[string]cachestore.Entry{},
		expiry:  map[string]time.Time{},
		turns:   map[string][]cachestore.Turn{},
	}
}
