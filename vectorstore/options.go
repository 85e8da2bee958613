package vectorstore

import (
	"context"
	"time"
)

type Option func(*Options)

type Options struct {
	Location    string
	Collection  string
	VectorSize  int
	VectorIndex string
	Distance    string
	ApiKey      string
	Timeout     time.Duration
	Context     context.Context
}

func WithLocation(loc string) Option {
	return func(o *Options) {
		o.Location = loc
	}
}

func WithCollection(collection string) Option {
	return func(o *Options) {
		o.Collection = collection
	}
}

func WithVectorSize(size int) Option {
	return func(o *Options) {
		o.VectorSize = size
	}
}

func WithVectorIndex(index string) Option {
	return func(o *Options) {
		o.VectorIndex = index
	}
}

func WithDistance(distance string) Option {
	return func(o *Options) {
		o.Distance = distance
	}
}

func WithApiKey(apiKey string) Option {
	return func(o *Options) {
		o.ApiKey = apiKey
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.Timeout = timeout
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Collection:  "memories",
		VectorIndex: "memory_embeddings",
		Timeout:     15 * time.Second,
		Context:     context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
