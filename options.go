package recall

import (
	"context"
	"time"

	"github.com/m-v-k/recall/health"
)

type Option func(*Options)

type Options struct {
	SystemPrompt    string
	HistoryLimit    int
	TopK            int
	ProbeTimeout    time.Duration
	CacheEssential  bool
	VectorEssential bool
	Context         context.Context
}

func WithSystemPrompt(prompt string) Option {
	return func(o *Options) {
		o.SystemPrompt = prompt
	}
}

func WithHistoryLimit(limit int) Option {
	return func(o *Options) {
		o.HistoryLimit = limit
	}
}

func WithTopK(topK int) Option {
	return func(o *Options) {
		o.TopK = topK
	}
}

func WithProbeTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.ProbeTimeout = timeout
	}
}

// WithCacheEssential controls whether a failed cache store fails the
// whole system. The essential tag drives health aggregation, not
// component identity.
func WithCacheEssential(essential bool) Option {
	return func(o *Options) {
		o.CacheEssential = essential
	}
}

func WithVectorEssential(essential bool) Option {
	return func(o *Options) {
		o.VectorEssential = essential
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		SystemPrompt:    "You are a helpful assistant with short-term and long-term memory.",
		HistoryLimit:    DefaultHistoryLimit,
		TopK:            DefaultTopK,
		ProbeTimeout:    health.DefaultProbeTimeout,
		CacheEssential:  true,
		VectorEssential: false,
		Context:         context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
