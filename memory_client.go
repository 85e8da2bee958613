package recall

import (
	"context"

	"github.com/m-v-k/recall/fault"
	"github.com/m-v-k/recall/health"
	"github.com/m-v-k/recall/vectorstore"
)

// MemoryClient fronts the long-term semantic store. There is no safe
// local fallback: when the component is not healthy, queries report the
// source unavailable and writes are rejected rather than queued, since
// buffering upserts behind a health flag risks unbounded growth and
// stale data on recovery. Callers retry upserts.
type MemoryClient struct {
	store  vectorstore.Store
	health *health.Controller
	name   string
}

// QueryResult separates "no relevant memories" from "memory unavailable".
type QueryResult struct {
	Records         []vectorstore.Record
	SourceAvailable bool
}

func NewMemoryClient(store vectorstore.Store, controller *health.Controller, component string) *MemoryClient {
	return &MemoryClient{
		store:  store,
		health: controller,
		name:   component,
	}
}

func (m *MemoryClient) Query(ctx context.Context, embedding []float32, topK int, filter vectorstore.Filter) (QueryResult, error) {
	return m.query(ctx, m.health.Current(), embedding, topK, filter)
}

func (m *MemoryClient) query(ctx context.Context, snapshot health.SystemHealth, embedding []float32, topK int, filter vectorstore.Filter) (QueryResult, error) {
	if !m.usable(snapshot) {
		return QueryResult{}, nil
	}

	records, err := m.store.Query(ctx, embedding, topK, filter)
	if err != nil {
		return QueryResult{}, fault.Convert(m.name, err)
	}

	return QueryResult{Records: records, SourceAvailable: true}, nil
}

func (m *MemoryClient) Upsert(ctx context.Context, record vectorstore.Record) (string, error) {
	if !m.usable(m.health.Current()) {
		return "", fault.New(fault.KindUnavailable, m.name, "vector store is not available; retry after recovery")
	}

	id, err := m.store.Upsert(ctx, record)
	if err != nil {
		return "", fault.Convert(m.name, err)
	}

	return id, nil
}

// Unlike the cache, the vector store is optional capability: it is only
// consulted when its component is fully healthy.
func (m *MemoryClient) usable(snapshot health.SystemHealth) bool {
	if m.store == nil {
		return false
	}
	status, ok := snapshot.Components[m.name]
	if !ok {
		return false
	}
	return status.State == health.StateHealthy
}
