package health

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"
)

// Controller owns the process-wide health aggregate. It is the single
// writer: probes run here, results are combined here, and the finished
// snapshot is swapped in as one immutable value.
type Controller struct {
	targets []Target
	mtx     sync.Mutex
	current atomic.Pointer[SystemHealth]
}

func NewController(targets ...Target) *Controller {
	c := &Controller{
		targets: targets,
	}

	now := time.Now().UTC()

	components := make(map[string]ComponentStatus, len(targets))
	for _, target := range targets {
		components[target.Name] = ComponentStatus{
			Name:        target.Name,
			Essential:   target.Essential,
			State:       StateUnknown,
			LastChecked: now,
		}
	}

	initial := SystemHealth{
		Overall:    Aggregate(components),
		Components: components,
		ComputedAt: now,
	}

	c.current.Store(&initial)

	return c
}

// RunStartupCheck probes every configured store before the host accepts
// traffic and reports the result. Whether an overall failure aborts the
// process or starts it degraded is the caller's policy, not ours.
func (c *Controller) RunStartupCheck(ctx context.Context) SystemHealth {
	snapshot := c.Refresh(ctx)

	for _, status := range snapshot.Components {
		if status.State == StateHealthy {
			slog.InfoContext(ctx, "store is healthy", "component", status.Name, "latency_ms", status.LatencyMs)
			continue
		}
		slog.WarnContext(ctx, "store is not healthy", "component", status.Name, "state", status.State, "essential", status.Essential, "detail", status.Detail)
	}

	slog.InfoContext(ctx, "startup health check complete", "overall", snapshot.Overall)

	return snapshot
}

// Refresh re-probes all stores concurrently, so total latency is bounded
// by the slowest single probe. The aggregate is published only after
// every probe has completed or timed out.
func (c *Controller) Refresh(ctx context.Context) SystemHealth {
	results := make([]ComponentStatus, len(c.targets))

	var wg sync.WaitGroup
	for i, target := range c.targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = Probe(ctx, target)
		}()
	}
	wg.Wait()

	components := make(map[string]ComponentStatus, len(results))
	for _, status := range results {
		components[status.Name] = status
	}

	snapshot := SystemHealth{
		Overall:    Aggregate(components),
		Components: components,
		ComputedAt: time.Now().UTC(),
	}

	c.publish(snapshot)

	return snapshot
}

// Current is a cheap read of the last computed aggregate. It never
// re-probes.
func (c *Controller) Current() SystemHealth {
	snapshot := c.current.Load()

	out := *snapshot
	out.Components = maps.Clone(snapshot.Components)

	return out
}

// publish swaps in a new aggregate unless a newer one already landed.
// Concurrent refreshes are idempotent; a slow probe run must not clobber
// a faster, more recent result.
func (c *Controller) publish(snapshot SystemHealth) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if current := c.current.Load(); current != nil && current.ComputedAt.After(snapshot.ComputedAt) {
		return
	}

	c.current.Store(&snapshot)
}
