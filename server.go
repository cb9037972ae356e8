package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bhoriuchi/graphql-ws/execution"
	"github.com/bhoriuchi/graphql-ws/graphqlws"
	"github.com/bhoriuchi/graphql-ws/logger"
	"github.com/bhoriuchi/graphql-ws/ws"
	"github.com/gorilla/websocket"
	"github.com/graphql-go/graphql"
)

// Server upgrades HTTP requests and speaks the graphql-ws subprotocol
type Server struct {
	log      *logger.LogWrapper
	options  *serverOptions
	handler  *graphqlws.Handler
	upgrader websocket.Upgrader
}

// New creates a new server for the schema
func New(schema graphql.Schema, opts ...Option) *Server {
	options := &serverOptions{
		LogFunc: logger.NoopLogFunc,
	}

	for _, opt := range opts {
		opt(options)
	}

	l := logger.NewLogWrapper(options.LogFunc, nil)

	executor := options.Executor
	if executor == nil {
		executor = execution.NewExecutor(execution.Config{
			Schema:           &schema,
			RootValueFunc:    options.RootValueFunc,
			ContextValueFunc: options.ContextValueFunc,
		})
	}

	checkOrigin := options.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}

	return &Server{
		log:     l,
		options: options,
		handler: graphqlws.NewHandler(graphqlws.Config{
			Logger:    l,
			Executor:  executor,
			Hooks:     options.Hooks,
			KeepAlive: options.KeepAlive,
			Metrics:   options.Metrics,
		}),
		upgrader: websocket.Upgrader{
			CheckOrigin:  checkOrigin,
			Subprotocols: []string{graphqlws.Subprotocol},
		},
	}
}

// ServeHTTP provides the websocket entrypoint
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.log.Debugf("upgrading connection to websocket")
	socket, err := s.upgrader.Upgrade(w, r, nil)

	// Bail out if the WebSocket connection could not be established
	if err != nil {
		s.log.WithError(err).Warnf("failed to establish WebSocket connection")
		return
	}

	s.log.Debugf("client requested %q subprotocol", socket.Subprotocol())

	// Close the connection early if it doesn't implement the supported
	// protocol
	if socket.Subprotocol() != graphqlws.Subprotocol {
		s.closeWS(
			socket,
			websocket.CloseProtocolError,
			"connection does not implement the %q subprotocol",
			graphqlws.Subprotocol,
		)
		return
	}

	// net/http cancels the request context once ServeHTTP returns, so the
	// connection keeps only its values; the session ends when the socket
	// closes or the client terminates
	if _, err := ws.NewConnection(context.WithoutCancel(r.Context()), ws.Config{
		WS:      socket,
		Handler: s.handler,
		Logger:  s.log,
		Request: r,
		Metrics: s.options.Metrics,
	}); err != nil {
		s.log.WithError(err).Errorf("failed to establish connection")
	}
}

// closeWS closes the websocket with a reason
func (s *Server) closeWS(socket *websocket.Conn, code int, reason string, v ...interface{}) {
	deadline := time.Now().Add(100 * time.Millisecond)
	msg := websocket.FormatCloseMessage(
		code,
		fmt.Sprintf(reason, v...),
	)

	if err := socket.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		if err != websocket.ErrCloseSent {
			if err := socket.Close(); err != nil {
				s.log.WithError(err).Errorf("failed to close websocket")
			}
		}
	}
}
