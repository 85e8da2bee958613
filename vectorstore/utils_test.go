package vectorstore_test

import (
	"testing"
	"time"

	"github.com/m-v-k/recall/vectorstore"
)

func TestCosineSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "mismatched lengths", a: []float32{1, 0}, b: []float32{1}, want: 0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 0}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := vectorstore.CosineSimilarity(tc.a, tc.b)
			if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("expected %f, got %f", tc.want, got)
			}
		})
	}
}

func TestRankOrdering(t *testing.T) {
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	records := []vectorstore.Record{
		{Id: "b", Score: 0.5, CreatedAt: older},
		{Id: "a", Score: 0.5, CreatedAt: older},
		{Id: "c", Score: 0.5, CreatedAt: newer},
		{Id: "d", Score: 0.9, CreatedAt: older},
	}

	vectorstore.Rank(records)

	want := []string{"d", "c", "a", "b"}
	for i, id := range want {
		if records[i].Id != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, records[i].Id)
		}
	}
}

func TestMatches(t *testing.T) {
	metadata := map[string]any{"topic": "go", "source": "chat"}

	if !vectorstore.Matches(metadata, nil) {
		t.Fatalf("empty filter must match everything")
	}
	if !vectorstore.Matches(metadata, vectorstore.Filter{"topic": "go"}) {
		t.Fatalf("expected matching key to pass")
	}
	if vectorstore.Matches(metadata, vectorstore.Filter{"topic": "rust"}) {
		t.Fatalf("expected differing value to fail")
	}
	if vectorstore.Matches(metadata, vectorstore.Filter{"missing": "x"}) {
		t.Fatalf("expected missing key to fail")
	}
	if vectorstore.Matches(nil, vectorstore.Filter{"topic": "go"}) {
		t.Fatalf("expected nil metadata to fail a non-empty filter")
	}
}
