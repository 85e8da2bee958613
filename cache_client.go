package recall

import (
	"context"
	"errors"
	"time"

	"github.com/m-v-k/recall/cachestore"
	"github.com/m-v-k/recall/fault"
	"github.com/m-v-k/recall/health"
)

// CacheClient fronts the short-term cache / chat-history store. Every
// operation consults the current health aggregate first: when the cache
// component is failed, reads come back explicitly unavailable and writes
// are rejected. No in-memory fallback is substituted for a downed store.
type CacheClient struct {
	store  cachestore.Store
	health *health.Controller
	name   string
}

// ValueResult distinguishes three outcomes that must never share a
// representation: a hit, a miss, and "could not check".
type ValueResult struct {
	Entry     cachestore.Entry
	Found     bool
	Available bool
}

type HistoryResult struct {
	Turns     []cachestore.Turn
	Available bool
}

func NewCacheClient(store cachestore.Store, controller *health.Controller, component string) *CacheClient {
	return &CacheClient{
		store:  store,
		health: controller,
		name:   component,
	}
}

func (c *CacheClient) Get(ctx context.Context, key string) (ValueResult, error) {
	return c.get(ctx, c.health.Current(), key)
}

func (c *CacheClient) get(ctx context.Context, snapshot health.SystemHealth, key string) (ValueResult, error) {
	if !c.usable(snapshot) {
		return ValueResult{}, nil
	}

	entry, err := c.store.Get(ctx, key)
	if err != nil {
		if fault.IsNotFound(err) {
			return ValueResult{Available: true}, nil
		}
		return ValueResult{}, fault.Convert(c.name, err)
	}

	return ValueResult{Entry: entry, Found: true, Available: true}, nil
}

func (c *CacheClient) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if !c.usable(c.health.Current()) {
		return fault.New(fault.KindUnavailable, c.name, "cache store is not available")
	}

	if err := c.store.Set(ctx, key, value, ttl); err != nil {
		return fault.Convert(c.name, err)
	}

	return nil
}

func (c *CacheClient) AppendTurn(ctx context.Context, sessionId string, turn cachestore.Turn) error {
	if len(sessionId) == 0 {
		return errors.New("session id is required")
	}

	if !c.usable(c.health.Current()) {
		return fault.New(fault.KindUnavailable, c.name, "cache store is not available")
	}

	if err := c.store.AppendTurn(ctx, sessionId, turn); err != nil {
		return fault.Convert(c.name, err)
	}

	return nil
}

func (c *CacheClient) History(ctx context.Context, sessionId string, limit int) (HistoryResult, error) {
	return c.history(ctx, c.health.Current(), sessionId, limit)
}

func (c *CacheClient) history(ctx context.Context, snapshot health.SystemHealth, sessionId string, limit int) (HistoryResult, error) {
	if !c.usable(snapshot) {
		return HistoryResult{}, nil
	}

	turns, err := c.store.History(ctx, sessionId, limit)
	if err != nil {
		return HistoryResult{}, fault.Convert(c.name, err)
	}

	return HistoryResult{Turns: turns, Available: true}, nil
}

// The cache is consulted unless its component is outright failed; a
// degraded or not-yet-probed store still gets the attempt.
func (c *CacheClient) usable(snapshot health.SystemHealth) bool {
	if c.store == nil {
		return false
	}
	status, ok := snapshot.Components[c.name]
	if !ok {
		return false
	}
	return status.State != health.StateFailed
}
