package fault

import (
	"context"
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	// KindConnectivity covers timeouts, refused connections, and any other
	// transport-level failure reaching a backing store.
	KindConnectivity
	// KindClientUnavailable means the store's client was never initialized,
	// as opposed to a store that is configured but down.
	KindClientUnavailable
	// KindNotFound is a valid miss, not a failure.
	KindNotFound
	// KindUnavailable means the operation was skipped because the owning
	// component is not healthy. Distinct from KindNotFound: the store was
	// never consulted.
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindConnectivity:
		return "connectivity failure"
	case KindClientUnavailable:
		return "client not available"
	case KindNotFound:
		return "not found"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

type Fault struct {
	Kind      Kind
	Component string
	Detail    string
	Err       error
}

func (f *Fault) Error() string {
	msg := fmt.Sprintf("%s: %s", f.Component, f.Kind)
	if len(f.Detail) > 0 {
		msg += ": " + f.Detail
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Fault) Unwrap() error {
	return f.Err
}

func New(kind Kind, component string, detail string) *Fault {
	return &Fault{
		Kind:      kind,
		Component: component,
		Detail:    detail,
	}
}

func Wrap(kind Kind, component string, err error) *Fault {
	return &Fault{
		Kind:      kind,
		Component: component,
		Err:       err,
	}
}

// Convert maps a raw store error onto the taxonomy. Timeouts are treated
// identically to connection failures. Faults pass through unchanged.
func Convert(component string, err error) error {
	if err == nil {
		return nil
	}

	var f *Fault
	if errors.As(err, &f) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Fault{
			Kind:      KindConnectivity,
			Component: component,
			Detail:    "timed out",
			Err:       err,
		}
	}

	return Wrap(KindConnectivity, component, err)
}

func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindUnknown
}

func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

func IsUnavailable(err error) bool {
	return KindOf(err) == KindUnavailable
}
