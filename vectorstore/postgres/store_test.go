package postgres

import (
	"testing"

	"github.com/m-v-k/recall/vectorstore"
)

func TestMarshalFilterAbsent(t *testing.T) {
	for _, filter := range []vectorstore.Filter{nil, {}} {
		bs, err := marshalFilter(filter)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		// An absent filter must encode to the empty object: jsonb
		// containment of null matches no row at all.
		if string(bs) != "{}" {
			t.Fatalf("expected {}, got %s", bs)
		}
	}
}

func TestMarshalFilterValues(t *testing.T) {
	bs, err := marshalFilter(vectorstore.Filter{"topic": "go"})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(bs) != `{"topic":"go"}` {
		t.Fatalf("expected the filter object, got %s", bs)
	}
}
