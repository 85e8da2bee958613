package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/m-v-k/recall"
	"github.com/m-v-k/recall/cachestore"
	cachememory "github.com/m-v-k/recall/cachestore/memory"
	cacheredis "github.com/m-v-k/recall/cachestore/redis"
	"github.com/m-v-k/recall/embedder"
	googleembedder "github.com/m-v-k/recall/embedder/google"
	openaiembedder "github.com/m-v-k/recall/embedder/openai"
	"github.com/m-v-k/recall/generator"
	anthropicgenerator "github.com/m-v-k/recall/generator/anthropic"
	googlegenerator "github.com/m-v-k/recall/generator/google"
	openaigenerator "github.com/m-v-k/recall/generator/openai"
	"github.com/m-v-k/recall/health"
	"github.com/m-v-k/recall/server"
	httpserver "github.com/m-v-k/recall/server/http"
	"github.com/m-v-k/recall/vectorstore"
	vectorchromem "github.com/m-v-k/recall/vectorstore/chromem"
	vectormemory "github.com/m-v-k/recall/vectorstore/memory"
	vectorneo4j "github.com/m-v-k/recall/vectorstore/neo4j"
	vectorpostgres "github.com/m-v-k/recall/vectorstore/postgres"
	vectorqdrant "github.com/m-v-k/recall/vectorstore/qdrant"
)

var (
	cfg struct {
		// Server config
		Address string `help:"Listen address for the HTTP server" default:":4000"`

		// Cache store config
		CacheBackend  string        `help:"Cache store backend (redis or memory)" default:"memory"`
		CacheLocation string        `help:"Cache store location" default:"redis://localhost:6379/0"`
		CacheTimeout  time.Duration `help:"Per-call timeout for the cache store" default:"3s"`

		// Vector store config
		VectorBackend  string `help:"Vector store backend (qdrant, postgres, neo4j, chromem, or memory)" default:"memory"`
		VectorLocation string `help:"Vector store location" default:""`
		VectorApiKey   string `help:"API key for the vector store" default:""`
		Collection     string `help:"Vector collection or database name" default:"memories"`
		VectorSize     int    `help:"Embedding dimensionality" default:"1536"`
		VectorIndex    string `help:"Vector index name (neo4j)" default:"memory_embeddings"`

		// Embedder config
		EmbedderProvider string `help:"Embedder provider (openai or google)" default:"openai"`
		EmbedderKey      string `help:"API key for the embedder" default:""`
		Embedder         string `help:"Model identifier for the embedder" default:"text-embedding-3-small"`

		// Generator config
		GeneratorProvider string `help:"Generator provider (openai, anthropic, or google)" default:"openai"`
		GeneratorKey      string `help:"API key for the generator" default:""`
		Generator         string `help:"Model identifier for the generator" default:"gpt-4o-mini"`

		// Retrieval config
		HistoryLimit int    `help:"Chat history turns per retrieval" default:"8"`
		TopK         int    `help:"Long-term memories per retrieval" default:"5"`
		SystemPrompt string `help:"System prompt for the generation step" default:"You are a helpful assistant with short-term and long-term memory."`

		// Health config
		ProbeTimeout      time.Duration `help:"Per-store probe timeout" default:"3s"`
		VectorEssential   bool          `help:"Treat the vector store as essential" default:"false"`
		RefuseOnUnhealthy bool          `help:"Refuse to start when an essential store is failed" default:"false"`
	}
)

func main() {
	_ = kong.Parse(&cfg)

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rec := recall.New(
		cacheStore(),
		vectorStore(),
		newEmbedder(),
		newGenerator(),
		recall.WithSystemPrompt(cfg.SystemPrompt),
		recall.WithHistoryLimit(cfg.HistoryLimit),
		recall.WithTopK(cfg.TopK),
		recall.WithProbeTimeout(cfg.ProbeTimeout),
		recall.WithVectorEssential(cfg.VectorEssential),
	)

	// Startup verification runs before the server accepts traffic. The
	// deployment decides whether an essential failure is fatal.
	snapshot := rec.Start(ctx)
	if snapshot.Overall == health.StateFailed {
		if cfg.RefuseOnUnhealthy {
			slog.ErrorContext(ctx, "refusing to start: essential store failed", "overall", snapshot.Overall)
			os.Exit(1)
		}
		slog.WarnContext(ctx, "starting in degraded mode: essential store failed", "overall", snapshot.Overall)
	}

	srv := httpserver.NewServer(rec, server.WithAddress(cfg.Address))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			slog.ErrorContext(ctx, "http server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		slog.InfoContext(ctx, "shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "shutdown failed", "error", err)
			os.Exit(1)
		}
	}
}

func cacheStore() cachestore.Store {
	opts := []cachestore.Option{
		cachestore.WithLocation(cfg.CacheLocation),
		cachestore.WithTimeout(cfg.CacheTimeout),
	}

	switch cfg.CacheBackend {
	case "redis":
		return cacheredis.NewStore(opts...)
	case "memory":
		return cachememory.NewStore(opts...)
	default:
		slog.Error("unknown cache backend", "backend", cfg.CacheBackend)
		os.Exit(1)
		return nil
	}
}

func vectorStore() vectorstore.Store {
	opts := []vectorstore.Option{
		vectorstore.WithLocation(cfg.VectorLocation),
		vectorstore.WithCollection(cfg.Collection),
		vectorstore.WithVectorSize(cfg.VectorSize),
		vectorstore.WithVectorIndex(cfg.VectorIndex),
		vectorstore.WithApiKey(cfg.VectorApiKey),
	}

	switch cfg.VectorBackend {
	case "qdrant":
		return vectorqdrant.NewStore(opts...)
	case "postgres":
		return vectorpostgres.NewStore(opts...)
	case "neo4j":
		return vectorneo4j.NewStore(opts...)
	case "chromem":
		return vectorchromem.NewStore(opts...)
	case "memory":
		return vectormemory.NewStore(opts...)
	default:
		slog.Error("unknown vector backend", "backend", cfg.VectorBackend)
		os.Exit(1)
		return nil
	}
}

func newEmbedder() embedder.Embedder {
	opts := []embedder.Option{
		embedder.WithApiKey(cfg.EmbedderKey),
		embedder.WithModel(cfg.Embedder),
	}

	switch cfg.EmbedderProvider {
	case "google":
		return googleembedder.NewEmbedder(opts...)
	default:
		return openaiembedder.NewEmbedder(opts...)
	}
}

func newGenerator() generator.Generator {
	opts := []generator.Option{
		generator.WithApiKey(cfg.GeneratorKey),
		generator.WithModel(cfg.Generator),
	}

	switch cfg.GeneratorProvider {
	case "anthropic":
		return anthropicgenerator.NewGenerator(opts...)
	case "google":
		return googlegenerator.NewGenerator(opts...)
	default:
		return openaigenerator.NewGenerator(opts...)
	}
}
