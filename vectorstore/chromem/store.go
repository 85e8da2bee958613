package chromem

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/m-v-k/recall/fault"
	"github.com/m-v-k/recall/vectorstore"
)

const component = "chromem vector store"

// chromemStore wraps chromem-go, a pure Go embedded vector database.
// Useful when running without any external vector service.
type chromemStore struct {
	options    vectorstore.Options
	db         *chromem.DB
	collection *chromem.Collection
	mtx        sync.Mutex
}

func (s *chromemStore) Ping(ctx context.Context) error {
	if s.db == nil || s.collection == nil {
		return fault.New(fault.KindClientUnavailable, component, "client not available")
	}
	return nil
}

func (s *chromemStore) Upsert(ctx context.Context, record vectorstore.Record) (string, error) {
	if err := s.Ping(ctx); err != nil {
		return "", err
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	id := uuid.New().String()

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	// chromem metadata is string-valued; scalars are stringified and the
	// original values restored best-effort on read.
	metadata := map[string]string{
		"created_at": createdAt.Format(time.RFC3339Nano),
	}
	for key, value := range record.Metadata {
		metadata["meta."+key] = fmt.Sprint(value)
	}

	doc := chromem.Document{
		ID:        id,
		Content:   record.Text,
		Embedding: record.Embedding,
		Metadata:  metadata,
	}

	if err := s.collection.AddDocument(ctx, doc); err != nil {
		return "", fault.Convert(component, err)
	}

	return id, nil
}

func (s *chromemStore) Query(ctx context.Context, embedding []float32, topK int, filter vectorstore.Filter) ([]vectorstore.Record, error) {
	if topK < 1 {
		return nil, nil
	}

	if err := s.Ping(ctx); err != nil {
		return nil, err
	}

	where := map[string]string{}
	for key, value := range filter {
		where["meta."+key] = fmt.Sprint(value)
	}

	// chromem rejects nResults larger than the collection; shrink until
	// the query goes through.
	var results []chromem.Result
	for limit := topK; limit >= 1; limit-- {
		var err error
		results, err = s.collection.QueryEmbedding(ctx, embedding, limit, where, nil)
		if err == nil {
			break
		}
		if isInsufficientDocsError(err) {
			if limit == 1 {
				return nil, nil
			}
			continue
		}
		return nil, fault.Convert(component, err)
	}

	records := make([]vectorstore.Record, 0, len(results))

	for _, result := range results {
		metadata := map[string]any{}
		var createdAt time.Time
		for key, value := range result.Metadata {
			if key == "created_at" {
				createdAt, _ = time.Parse(time.RFC3339Nano, value)
				continue
			}
			if name, ok := strings.CutPrefix(key, "meta."); ok {
				metadata[name] = value
			}
		}

		records = append(records, vectorstore.Record{
			Id:        result.ID,
			Text:      result.Content,
			Metadata:  metadata,
			Score:     result.Similarity,
			CreatedAt: createdAt,
		})
	}

	vectorstore.Rank(records)

	return records, nil
}

func isInsufficientDocsError(err error) bool {
	return strings.Contains(err.Error(), "nResults") ||
		strings.Contains(err.Error(), "fewer than")
}

func NewStore(opts ...vectorstore.Option) vectorstore.Store {
	options := vectorstore.NewOptions(opts...)

	var db *chromem.DB
	if len(options.Location) > 0 {
		var err error
		db, err = chromem.NewPersistentDB(options.Location, false)
		if err != nil {
			detail := "failed to open persistent chromem db"
			slog.ErrorContext(context.Background(), detail, "location", options.Location, "error", err)
			panic(detail)
		}
	} else {
		db = chromem.NewDB()
	}

	collection, err := db.GetOrCreateCollection(options.Collection, nil, nil)
	if err != nil {
		detail := "failed to create chromem collection"
		slog.ErrorContext(context.Background(), detail, "collection", options.Collection, "error", err)
		panic(detail)
	}

	return &chromemStore{
		options:    options,
		db:         db,
		collection: collection,
	}
}
