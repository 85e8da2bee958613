package recall

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/m-v-k/recall/cachestore"
	"github.com/m-v-k/recall/embedder"
	"github.com/m-v-k/recall/health"
	"github.com/m-v-k/recall/vectorstore"
)

const (
	DefaultHistoryLimit = 8
	DefaultTopK         = 5
)

// Pipeline assembles per-query retrieval context from the chat history
// and the semantic memory, guarded by the current health aggregate.
// Degradation never fails a request: with both sources down it still
// returns a valid, empty context.
type Pipeline struct {
	cache        *CacheClient
	memory       *MemoryClient
	embedder     embedder.Embedder
	health       *health.Controller
	historyLimit int
	topK         int
}

// RetrievalContext is the per-query bundle handed to the generation
// step. SourcesUsed records exactly which components were consulted so
// downstream logging can report what informed the answer.
type RetrievalContext struct {
	CacheHits   []cachestore.Turn    `json:"cache_hits"`
	MemoryHits  []vectorstore.Record `json:"memory_hits"`
	SourcesUsed []string             `json:"sources_used"`
}

func NewPipeline(
	cache *CacheClient,
	memory *MemoryClient,
	embed embedder.Embedder,
	controller *health.Controller,
	historyLimit int,
	topK int,
) *Pipeline {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	return &Pipeline{
		cache:        cache,
		memory:       memory,
		embedder:     embed,
		health:       controller,
		historyLimit: historyLimit,
		topK:         topK,
	}
}

func (p *Pipeline) AnswerContext(ctx context.Context, query string, sessionId string) (RetrievalContext, error) {
	if len(strings.TrimSpace(query)) == 0 {
		return RetrievalContext{}, errors.New("query text is required")
	}

	// One health read per call. Re-checking mid-call could make the two
	// fetch decisions disagree within a single request.
	snapshot := p.health.Current()

	useCache := p.cache != nil && p.cache.usable(snapshot)
	useVector := p.memory != nil && p.embedder != nil && p.memory.usable(snapshot)

	var turns []cachestore.Turn
	var records []vectorstore.Record

	// The two stores are independent; fetch them concurrently and join
	// before assembly. The first result never short-circuits the other.
	var wg sync.WaitGroup

	if useCache {
		wg.Add(1)
		go func() {
			defer wg.Done()

			result, err := p.cache.history(ctx, snapshot, sessionId, p.historyLimit)
			if err != nil {
				slog.WarnContext(ctx, "chat history fetch failed", "session_id", sessionId, "error", err)
				return
			}
			if result.Available {
				turns = result.Turns
			}
		}()
	}

	if useVector {
		wg.Add(1)
		go func() {
			defer wg.Done()

			vector, err := p.embedder.Embed(ctx, query)
			if err != nil {
				slog.WarnContext(ctx, "query embedding failed", "error", err)
				return
			}

			result, err := p.memory.query(ctx, snapshot, vector, p.topK, nil)
			if err != nil {
				slog.WarnContext(ctx, "memory query failed", "error", err)
				return
			}
			if result.SourceAvailable {
				records = result.Records
			}
		}()
	}

	wg.Wait()

	retrieved := RetrievalContext{
		CacheHits:   []cachestore.Turn{},
		MemoryHits:  []vectorstore.Record{},
		SourcesUsed: []string{},
	}

	if useCache {
		if turns != nil {
			retrieved.CacheHits = turns
		}
		retrieved.SourcesUsed = append(retrieved.SourcesUsed, p.cache.name)
	}
	if useVector {
		if records != nil {
			retrieved.MemoryHits = records
		}
		retrieved.SourcesUsed = append(retrieved.SourcesUsed, p.memory.name)
	}

	sort.Strings(retrieved.SourcesUsed)

	return retrieved, nil
}
