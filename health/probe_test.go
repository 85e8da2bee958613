package health_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/m-v-k/recall/health"
)

type stubProber struct {
	err   error
	delay time.Duration
}

func (p *stubProber) Ping(ctx context.Context) error {
	if p.delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.delay):
		}
	}
	return p.err
}

func TestProbeHealthy(t *testing.T) {
	status := health.Probe(context.Background(), health.Target{
		Name:   "cache",
		Prober: &stubProber{},
	})

	if status.State != health.StateHealthy {
		t.Fatalf("expected healthy, got %s", status.State)
	}
	if status.Name != "cache" {
		t.Fatalf("expected name cache, got %s", status.Name)
	}
	if status.LatencyMs < 0 {
		t.Fatalf("expected non-negative latency, got %d", status.LatencyMs)
	}
	if status.LastChecked.IsZero() {
		t.Fatalf("expected last checked to be set")
	}
}

func TestProbeFailure(t *testing.T) {
	status := health.Probe(context.Background(), health.Target{
		Name:   "cache",
		Prober: &stubProber{err: errors.New("connection refused")},
	})

	if status.State != health.StateFailed {
		t.Fatalf("expected failed, got %s", status.State)
	}
	if status.Detail != "connection refused" {
		t.Fatalf("expected detail to carry the error, got %q", status.Detail)
	}
}

func TestProbeNilProber(t *testing.T) {
	status := health.Probe(context.Background(), health.Target{
		Name: "vector",
	})

	if status.State != health.StateFailed {
		t.Fatalf("expected failed, got %s", status.State)
	}
	if status.Detail != "client not available" {
		t.Fatalf("expected client not available, got %q", status.Detail)
	}
}

func TestProbeTimeout(t *testing.T) {
	start := time.Now()

	status := health.Probe(context.Background(), health.Target{
		Name:    "cache",
		Timeout: 50 * time.Millisecond,
		Prober:  &stubProber{delay: 5 * time.Second},
	})

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("probe did not respect timeout, took %s", elapsed)
	}
	if status.State != health.StateFailed {
		t.Fatalf("expected failed, got %s", status.State)
	}
	if !strings.Contains(status.Detail, "timed out") {
		t.Fatalf("expected timeout detail, got %q", status.Detail)
	}
}

func TestProbeIdempotent(t *testing.T) {
	target := health.Target{
		Name:   "cache",
		Prober: &stubProber{},
	}

	first := health.Probe(context.Background(), target)
	second := health.Probe(context.Background(), target)

	if first.State != health.StateHealthy || second.State != health.StateHealthy {
		t.Fatalf("expected healthy both times, got %s then %s", first.State, second.State)
	}
	if first.LatencyMs < 0 || second.LatencyMs < 0 {
		t.Fatalf("expected comparable latencies, got %d and %d", first.LatencyMs, second.LatencyMs)
	}
}

func TestProbeRecoversPanic(t *testing.T) {
	status := health.Probe(context.Background(), health.Target{
		Name:   "cache",
		Prober: panicProber{},
	})

	if status.State != health.StateFailed {
		t.Fatalf("expected failed, got %s", status.State)
	}
	if !strings.Contains(status.Detail, "panic") {
		t.Fatalf("expected panic detail, got %q", status.Detail)
	}
}

type panicProber struct{}

func (panicProber) Ping(ctx context.Context) error {
	panic("driver not initialized")
}
