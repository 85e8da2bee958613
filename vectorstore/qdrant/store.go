package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/m-v-k/recall/fault"
	getsafe "github.com/m-v-k/recall/util/get_safe"
	"github.com/m-v-k/recall/vectorstore"
)

const component = "qdrant vector store"

type qdrantStore struct {
	options vectorstore.Options
	client  *http.Client
}

// Ping doubles as the capability probe: a collection-existence check is
// the cheapest operation proving the store answers.
func (s *qdrantStore) Ping(ctx context.Context) error {
	path := fmt.Sprintf("/collections/%s", url.PathEscape(s.options.Collection))

	var rsp qdrantEnvelope[json.RawMessage]

	if err := s.do(ctx, http.MethodGet, path, nil, &rsp); err != nil {
		return fault.Convert(component, err)
	}

	if !strings.EqualFold(rsp.Status.State, "ok") {
		return fault.New(fault.KindConnectivity, component, rsp.Status.Error)
	}

	return nil
}

func (s *qdrantStore) Upsert(ctx context.Context, record vectorstore.Record) (string, error) {
	id := uuid.New().String()

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	payload := map[string]any{
		"text":       record.Text,
		"metadata":   record.Metadata,
		"created_at": createdAt.Format(time.RFC3339Nano),
	}

	point := map[string]any{
		"id":      id,
		"vector":  record.Embedding,
		"payload": payload,
	}

	req := map[string]any{
		"points": []map[string]any{point},
	}

	var rsp qdrantEnvelope[json.RawMessage]

	path := fmt.Sprintf("/collections/%s/points?wait=true", url.PathEscape(s.options.Collection))

	if err := s.do(ctx, http.MethodPut, path, req, &rsp); err != nil {
		return "", fault.Convert(component, err)
	}

	if !strings.EqualFold(rsp.Status.State, "ok") && len(rsp.Status.Error) > 0 {
		return "", fault.New(fault.KindConnectivity, component, rsp.Status.Error)
	}

	return id, nil
}

func (s *qdrantStore) Query(ctx context.Context, embedding []float32, topK int, filter vectorstore.Filter) ([]vectorstore.Record, error) {
	if topK < 1 {
		return nil, nil
	}

	req := map[string]any{
		"vector":       embedding,
		"limit":        topK,
		"with_vector":  false,
		"with_payload": true,
	}

	if len(filter) > 0 {
		must := make([]map[string]any, 0, len(filter))
		for key, value := range filter {
			must = append(must, map[string]any{
				"key":   "metadata." + key,
				"match": map[string]any{"value": value},
			})
		}
		req["filter"] = map[string]any{"must": must}
	}

	var rsp qdrantEnvelope[[]qdrantPointResult]

	path := fmt.Sprintf("/collections/%s/points/search", url.PathEscape(s.options.Collection))

	if err := s.do(ctx, http.MethodPost, path, req, &rsp); err != nil {
		return nil, fault.Convert(component, err)
	}

	records := make([]vectorstore.Record, 0, len(rsp.Result))

	for _, point := range rsp.Result {
		payload := point.Payload

		records = append(records, vectorstore.Record{
			Id:        point.Id,
			Text:      getsafe.String(payload, "text"),
			Metadata:  getsafe.Metadata(payload, "metadata"),
			Score:     float32(point.Score),
			CreatedAt: getsafe.Time(payload, "created_at"),
		})
	}

	// Qdrant orders by score; re-rank for the deterministic tie-break.
	vectorstore.Rank(records)

	return records, nil
}

func (s *qdrantStore) do(ctx context.Context, method string, path string, req any, rsp any) error {
	u := s.options.Location + path

	var buf io.Reader
	if req != nil {
		data, err := json.Marshal(req)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(data)
	}

	request, err := http.NewRequestWithContext(ctx, method, u, buf)
	if err != nil {
		return err
	}

	request.Header.Set("Content-Type", "application/json")

	if len(s.options.ApiKey) > 0 {
		request.Header.Set("api-key", s.options.ApiKey)
		request.Header.Set("Authorization", "Bearer "+s.options.ApiKey)
	}

	response, err := s.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}

	if response.StatusCode >= 400 {
		return fmt.Errorf("qdrant http %d: %s", response.StatusCode, string(payload))
	}

	if rsp != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, rsp); err != nil {
			return err
		}
	}

	return nil
}

func (s *qdrantStore) configure() error {
	exists, err := s.collectionExists()
	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	return s.createCollection()
}

func (s *qdrantStore) collectionExists() (bool, error) {
	path := fmt.Sprintf("/collections/%s", url.PathEscape(s.options.Collection))

	var rsp qdrantEnvelope[json.RawMessage]

	err := s.do(context.Background(), http.MethodGet, path, nil, &rsp)
	if err != nil {
		if strings.Contains(err.Error(), "404") {
			return false, nil
		}
		return false, err
	}

	return strings.EqualFold(rsp.Status.State, "ok"), nil
}

func (s *qdrantStore) createCollection() error {
	distance := s.options.Distance
	if len(distance) == 0 {
		distance = "Cosine"
	}

	req := map[string]any{
		"vectors": map[string]any{
			"size":     s.options.VectorSize,
			"distance": distance,
		},
	}

	path := fmt.Sprintf("/collections/%s", url.PathEscape(s.options.Collection))

	var rsp qdrantEnvelope[json.RawMessage]

	if err := s.do(context.Background(), http.MethodPut, path, req, &rsp); err != nil {
		return err
	}

	if !strings.EqualFold(rsp.Status.State, "ok") {
		return errors.New(rsp.Status.Error)
	}

	return nil
}

func NewStore(opts ...vectorstore.Option) vectorstore.Store {
	options := vectorstore.NewOptions(opts...)

	if len(options.Location) == 0 || options.VectorSize == 0 {
		panic("missing location or vector size for qdrant store")
	}

	s := &qdrantStore{
		options: options,
		client: &http.Client{
			Timeout: options.Timeout,
		},
	}

	// Collection setup failing at construction is a deployment problem;
	// probes will surface the store as failed either way.
	if err := s.configure(); err != nil {
		slog.ErrorContext(context.Background(), "failed to configure qdrant collection", "collection", options.Collection, "error", err)
	}

	return s
}
