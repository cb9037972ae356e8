// Package graphqlws implements the server side of the legacy Apollo
// graphql-ws subscription subprotocol. The handler multiplexes any
// number of long-lived subscription operations over one connection:
// it classifies each inbound frame, updates the session state and
// returns the frame's outbound message sequence as a channel that the
// surrounding transport merges into the socket sink.
package graphqlws

import (
	"context"
	"time"

	"github.com/bhoriuchi/graphql-ws/logger"
	"github.com/bhoriuchi/graphql-ws/metrics"
	"github.com/bhoriuchi/graphql-ws/protocol"
)

// Subprotocol identifies the protocol during the websocket handshake
const Subprotocol = "graphql-ws"

// SubscriptionExecutor executes a GraphQL request and returns a lazy
// stream of results. The stream must honor context cancellation and
// close once the operation is finished.
type SubscriptionExecutor interface {
	ExecuteSubscription(ctx context.Context, req *protocol.Request) (<-chan *protocol.Response, error)
}

// Transport is the handle the websocket layer supplies for a single
// connection
type Transport interface {
	ID() string
	Close() error
}

// Config defines the configuration parameters of a protocol handler
type Config struct {
	Logger    *logger.LogWrapper
	Executor  SubscriptionExecutor
	Hooks     Hooks
	KeepAlive time.Duration
	Metrics   *metrics.Metrics
}

// Handler drives the graphql-ws state machine for every session it
// creates. It is safe to share one handler across connections.
type Handler struct {
	log       *logger.LogWrapper
	executor  SubscriptionExecutor
	hooks     Hooks
	keepAlive time.Duration
	metrics   *metrics.Metrics
}

// NewHandler creates a new protocol handler
func NewHandler(config Config) *Handler {
	if config.Logger == nil {
		config.Logger = logger.NewNoopLogger()
	}

	if config.Hooks == nil {
		config.Hooks = NoopHooks{}
	}

	return &Handler{
		log:       config.Logger,
		executor:  config.Executor,
		hooks:     config.Hooks,
		keepAlive: config.KeepAlive,
		metrics:   config.Metrics,
	}
}
