package recall

import (
	"context"
	"log/slog"

	"github.com/m-v-k/recall/cachestore"
	"github.com/m-v-k/recall/embedder"
	"github.com/m-v-k/recall/fault"
	"github.com/m-v-k/recall/generator"
	"github.com/m-v-k/recall/health"
	"github.com/m-v-k/recall/vectorstore"
)

// Component names in the health registry.
const (
	ComponentCache  = "cache"
	ComponentVector = "vector"
)

// Recall wires the health controller, the two store clients, and the
// retrieval pipeline into one memory subsystem.
type Recall struct {
	options    Options
	controller *health.Controller
	cache      *CacheClient
	memory     *MemoryClient
	pipeline   *Pipeline
	generator  generator.Generator
	embedder   embedder.Embedder
}

// New accepts pre-configured store handles. A nil store is registered
// anyway and reported by the controller as "client not available", so
// operators can tell never-configured from down.
func New(
	cacheStore cachestore.Store,
	vectorStore vectorstore.Store,
	embed embedder.Embedder,
	gen generator.Generator,
	opts ...Option,
) *Recall {
	options := NewOptions(opts...)

	cacheTarget := health.Target{
		Name:      ComponentCache,
		Essential: options.CacheEssential,
		Timeout:   options.ProbeTimeout,
	}
	if cacheStore != nil {
		cacheTarget.Prober = cacheStore
	}

	vectorTarget := health.Target{
		Name:      ComponentVector,
		Essential: options.VectorEssential,
		Timeout:   options.ProbeTimeout,
	}
	if vectorStore != nil {
		vectorTarget.Prober = vectorStore
	}

	controller := health.NewController(cacheTarget, vectorTarget)

	cache := NewCacheClient(cacheStore, controller, ComponentCache)
	memory := NewMemoryClient(vectorStore, controller, ComponentVector)
	pipeline := NewPipeline(cache, memory, embed, controller, options.HistoryLimit, options.TopK)

	return &Recall{
		options:    options,
		controller: controller,
		cache:      cache,
		memory:     memory,
		pipeline:   pipeline,
		generator:  gen,
		embedder:   embed,
	}
}

// Start runs the startup health check. It reports the aggregate and
// leaves the refuse-or-degrade decision to the host process.
func (r *Recall) Start(ctx context.Context) health.SystemHealth {
	return r.controller.RunStartupCheck(ctx)
}

func (r *Recall) Health() health.SystemHealth {
	return r.controller.Current()
}

func (r *Recall) RefreshHealth(ctx context.Context) health.SystemHealth {
	return r.controller.Refresh(ctx)
}

func (r *Recall) Cache() *CacheClient {
	return r.cache
}

func (r *Recall) Memory() *MemoryClient {
	return r.memory
}

func (r *Recall) Pipeline() *Pipeline {
	return r.pipeline
}

// Respond runs retrieval, generation, and history bookkeeping for one
// user message. History writes during degradation are logged and
// dropped; a reduced-quality answer beats a refused one.
func (r *Recall) Respond(ctx context.Context, sessionId string, input string) (string, RetrievalContext, error) {
	retrieved, err := r.pipeline.AnswerContext(ctx, input, sessionId)
	if err != nil {
		return "", RetrievalContext{}, err
	}

	if r.generator == nil {
		return "", retrieved, fault.New(fault.KindClientUnavailable, "generator", "client not available")
	}

	prompt := BuildPrompt(r.options.SystemPrompt, input, retrieved)

	answer, err := r.generator.Generate(ctx, prompt)
	if err != nil {
		return "", retrieved, err
	}

	r.appendTurn(ctx, sessionId, "user", input)
	r.appendTurn(ctx, sessionId, "assistant", answer)

	return answer, retrieved, nil
}

// Remember embeds and stores one text in long-term memory. Rejected
// when the vector component is not healthy; the caller retries.
func (r *Recall) Remember(ctx context.Context, text string, metadata map[string]any) (string, error) {
	if r.embedder == nil {
		return "", fault.New(fault.KindClientUnavailable, "embedder", "client not available")
	}

	vector, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return "", err
	}

	return r.memory.Upsert(ctx, vectorstore.Record{
		Text:      text,
		Embedding: vector,
		Metadata:  metadata,
	})
}

func (r *Recall) History(ctx context.Context, sessionId string, limit int) (HistoryResult, error) {
	return r.cache.History(ctx, sessionId, limit)
}

func (r *Recall) appendTurn(ctx context.Context, sessionId string, role string, content string) {
	turn := cachestore.Turn{
		Role:    role,
		Content: content,
	}

	if err := r.cache.AppendTurn(ctx, sessionId, turn); err != nil {
		slog.WarnContext(ctx, "failed to append chat turn", "session_id", sessionId, "role", role, "error", err)
	}
}
