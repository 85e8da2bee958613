package neo4j

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/m-v-k/recall/fault"
	getsafe "github.com/m-v-k/recall/util/get_safe"
	"github.com/m-v-k/recall/vectorstore"
)

const component = "neo4j vector store"

type neo4jStore struct {
	options vectorstore.Options
	driver  neo4j.DriverWithContext
}

func (s *neo4jStore) Ping(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return fault.Convert(component, err)
	}
	return nil
}

func (s *neo4jStore) Upsert(ctx context.Context, record vectorstore.Record) (string, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.options.Collection,
	})
	defer session.Close(ctx)

	metadata := record.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	jsonMeta, err := json.Marshal(metadata)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		createNode := `
			CREATE (m:Memory {id: $id})
			SET m.text = $text,
				m.metadata = $metadata,
				m.created_at = datetime(),
				m.embedding = $embedding
		`
		params := map[string]any{
			"id":        id,
			"text":      record.Text,
			"metadata":  string(jsonMeta),
			"embedding": record.Embedding,
		}

		_, err := tx.Run(ctx, createNode, params)
		return nil, err
	})
	if err != nil {
		return "", fault.Convert(component, err)
	}

	return id, nil
}

func (s *neo4jStore) Query(ctx context.Context, embedding []float32, topK int, filter vectorstore.Filter) ([]vectorstore.Record, error) {
	if topK < 1 {
		return nil, nil
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.options.Collection,
	})
	defer session.Close(ctx)

	query := `
		CALL db.index.vector.queryNodes($index, $k, $vec)
		YIELD node, score
		RETURN node, score
		LIMIT $finalLimit
	`

	params := map[string]any{
		"index":      s.options.VectorIndex,
		"k":          topK * 2,
		"vec":        embedding,
		"finalLimit": topK,
	}

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, fault.Convert(component, err)
	}

	var records []vectorstore.Record
	for result.Next(ctx) {
		if result.Err() != nil {
			return nil, fault.Convert(component, result.Err())
		}

		record := s.mapToRecord(result.Record())
		if !vectorstore.Matches(record.Metadata, filter) {
			continue
		}
		records = append(records, record)
	}

	// The vector index ranks by score; ties still need the deterministic
	// recency break.
	vectorstore.Rank(records)

	if len(records) > topK {
		records = records[:topK]
	}

	return records, nil
}

func (s *neo4jStore) mapToRecord(r *neo4j.Record) vectorstore.Record {
	nodeVal, _ := r.Get("node")

	node := neo4j.Node{}
	if n, ok := nodeVal.(neo4j.Node); ok {
		node = n
	}

	props := node.Props

	var meta map[string]any
	if v, ok := props["metadata"]; ok {
		if str, ok := v.(string); ok {
			json.Unmarshal([]byte(str), &meta)
		}
	}

	score := float32(0)
	if scoreVal, _ := r.Get("score"); scoreVal != nil {
		if f, ok := scoreVal.(float64); ok {
			score = float32(f)
		}
	}

	return vectorstore.Record{
		Id:        getsafe.String(props, "id"),
		Text:      getsafe.String(props, "text"),
		Metadata:  meta,
		Score:     score,
		CreatedAt: getsafe.Time(props, "created_at"),
	}
}

func (s *neo4jStore) configure(ctx context.Context) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.options.Collection,
	})
	defer session.Close(ctx)

	distance := s.options.Distance
	if len(distance) == 0 {
		distance = "cosine"
	}

	vectorQuery := fmt.Sprintf(
		"CREATE VECTOR INDEX %s IF NOT EXISTS "+
			"FOR (m:Memory) ON (m.embedding) "+
			"OPTIONS {indexConfig: {"+
			" `vector.dimensions`: %d,"+
			" `vector.similarity_function`: '%s'"+
			"}}",
		s.options.VectorIndex, s.options.VectorSize, distance,
	)

	if _, err := session.Run(ctx, vectorQuery, nil); err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}

	constraintQuery := `
		CREATE CONSTRAINT memory_id_unique IF NOT EXISTS
		FOR (m:Memory) REQUIRE m.id IS UNIQUE
	`
	if _, err := session.Run(ctx, constraintQuery, nil); err != nil {
		return fmt.Errorf("failed to create unique constraint: %w", err)
	}

	return nil
}

func NewStore(opts ...vectorstore.Option) vectorstore.Store {
	options := vectorstore.NewOptions(opts...)

	s := &neo4jStore{
		options: options,
	}

	driver, err := neo4j.NewDriverWithContext(
		s.options.Location,
		neo4j.NoAuth(),
	)
	if err != nil {
		detail := "failed to construct driver for neo4j vector store"
		slog.ErrorContext(context.Background(), detail, "error", err)
		panic(detail)
	}

	s.driver = driver

	// Index setup failing here is survivable: the probe reports the store
	// failed and the process degrades instead of dying.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.configure(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to configure neo4j vector index", "index", options.VectorIndex, "error", err)
	}

	return s
}
