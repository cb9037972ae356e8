package server

import (
	"net/http"
	"time"

	"github.com/bhoriuchi/graphql-ws/execution"
	"github.com/bhoriuchi/graphql-ws/graphqlws"
	"github.com/bhoriuchi/graphql-ws/logger"
	"github.com/bhoriuchi/graphql-ws/metrics"
)

type Option func(opts *serverOptions)

type serverOptions struct {
	LogFunc          logger.LogFunc
	KeepAlive        time.Duration
	Executor         graphqlws.SubscriptionExecutor
	Hooks            graphqlws.Hooks
	Metrics          *metrics.Metrics
	CheckOrigin      func(r *http.Request) bool
	RootValueFunc    execution.RootValueFunc
	ContextValueFunc execution.ContextValueFunc
}

func WithLogFunc(l logger.LogFunc) Option {
	return func(opts *serverOptions) {
		opts.LogFunc = l
	}
}

// WithKeepAlive enables the periodic ka frame. Zero or negative
// intervals disable it.
func WithKeepAlive(interval time.Duration) Option {
	return func(opts *serverOptions) {
		opts.KeepAlive = interval
	}
}

// WithExecutor replaces the graphql-go executor
func WithExecutor(e graphqlws.SubscriptionExecutor) Option {
	return func(opts *serverOptions) {
		opts.Executor = e
	}
}

func WithHooks(h graphqlws.Hooks) Option {
	return func(opts *serverOptions) {
		opts.Hooks = h
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(opts *serverOptions) {
		opts.Metrics = m
	}
}

func WithCheckOrigin(f func(r *http.Request) bool) Option {
	return func(opts *serverOptions) {
		opts.CheckOrigin = f
	}
}

func WithRootValueFunc(f execution.RootValueFunc) Option {
	return func(opts *serverOptions) {
		opts.RootValueFunc = f
	}
}

func WithContextValueFunc(f execution.ContextValueFunc) Option {
	return func(opts *serverOptions) {
		opts.ContextValueFunc = f
	}
}
