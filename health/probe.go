package health

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const DefaultProbeTimeout = 3 * time.Second

// Prober is the capability check a backing store exposes: the cheapest
// operation that proves the store is reachable and answering.
type Prober interface {
	Ping(ctx context.Context) error
}

// Target is one configured backing store in the health registry.
type Target struct {
	Name      string
	Essential bool
	Timeout   time.Duration
	Prober    Prober
}

// Probe runs a single bounded-time check against one target and converts
// every possible failure into a status value. It never retries; retry
// policy belongs to the caller.
func Probe(ctx context.Context, target Target) ComponentStatus {
	status := ComponentStatus{
		Name:        target.Name,
		Essential:   target.Essential,
		LastChecked: time.Now().UTC(),
	}

	// A store whose client never initialized is reported distinctly from
	// one that is configured but unreachable.
	if target.Prober == nil {
		status.State = StateFailed
		status.Detail = "client not available"
		return status
	}

	timeout := target.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := ping(ctx, target.Prober)
	status.LatencyMs = time.Since(start).Milliseconds()
	status.LastChecked = time.Now().UTC()

	if err != nil {
		status.State = StateFailed
		if errors.Is(err, context.DeadlineExceeded) {
			status.Detail = fmt.Sprintf("probe timed out after %s", timeout)
		} else {
			status.Detail = err.Error()
		}
		return status
	}

	status.State = StateHealthy
	return status
}

func ping(ctx context.Context, prober Prober) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("probe panic: %v", r)
		}
	}()
	return prober.Ping(ctx)
}
