package health

import (
	"time"
)

type State string

const (
	StateUnknown  State = "unknown"
	StateHealthy  State = "healthy"
	StateDegraded State = "degraded"
	StateFailed   State = "failed"
)

// ComponentStatus is the probe result for one backing store. Only the
// controller writes these; everyone else is a read-only consumer.
type ComponentStatus struct {
	Name        string    `json:"name"`
	State       State     `json:"state"`
	Essential   bool      `json:"essential"`
	LatencyMs   int64     `json:"latency_ms"`
	Detail      string    `json:"detail,omitempty"`
	LastChecked time.Time `json:"last_checked"`
}

// SystemHealth is the aggregate over all configured stores. A computation
// replaces the whole value at once; readers never see a partial update.
type SystemHealth struct {
	Overall    State                      `json:"overall"`
	Components map[string]ComponentStatus `json:"components"`
	ComputedAt time.Time                  `json:"computed_at"`
}

// Aggregate derives the overall state. Failed only when an essential
// component failed; anything short of all-healthy is degraded. The
// essential tag, not component identity, drives the rule.
func Aggregate(components map[string]ComponentStatus) State {
	overall := StateHealthy

	for _, status := range components {
		if status.State == StateFailed && status.Essential {
			return StateFailed
		}
		if status.State != StateHealthy {
			overall = StateDegraded
		}
	}

	return overall
}
