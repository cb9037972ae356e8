// Package ws pumps frames between a gorilla websocket peer and the
// graphql-ws protocol handler.
package ws

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bhoriuchi/graphql-ws/graphqlws"
	"github.com/bhoriuchi/graphql-ws/logger"
	"github.com/bhoriuchi/graphql-ws/metrics"
	"github.com/bhoriuchi/graphql-ws/protocol"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Thresholds
const (
	ReadLimit    = 4096
	WriteTimeout = 10 * time.Second
)

// Config defines the dependencies of a websocket connection
type Config struct {
	WS      *websocket.Conn
	Handler *graphqlws.Handler
	Logger  *logger.LogWrapper
	Request *http.Request
	Metrics *metrics.Metrics
}

// Connection binds one websocket to one protocol session: the read
// loop hands each inbound text frame to the handler and the per-frame
// outbound sequences are merged into the write loop.
type Connection struct {
	id        string
	ws        *websocket.Conn
	handler   *graphqlws.Handler
	log       *logger.LogWrapper
	metrics   *metrics.Metrics
	session   *graphqlws.Session
	outgoing  chan protocol.OperationMessage
	done      chan struct{}
	closeOnce sync.Once
}

// NewConnection establishes a graphql-ws connection over an upgraded
// websocket
func NewConnection(ctx context.Context, config Config) (*Connection, error) {
	id := uuid.NewString()
	l := config.Logger.
		WithField("connectionId", id).
		WithField("subprotocol", graphqlws.Subprotocol)

	c := &Connection{
		id:       id,
		ws:       config.WS,
		handler:  config.Handler,
		log:      l,
		metrics:  config.Metrics,
		outgoing: make(chan protocol.OperationMessage),
		done:     make(chan struct{}),
	}

	// validate the subprotocol
	if c.ws.Subprotocol() != graphqlws.Subprotocol {
		err := fmt.Errorf("subprotocol %q not acceptable", c.ws.Subprotocol())
		c.log.WithError(err).Errorf("failed to create connection")
		deadline := time.Now().Add(100 * time.Millisecond)
		c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseProtocolError, err.Error()),
			deadline,
		)
		c.ws.Close()
		return nil, err
	}

	c.session = config.Handler.NewSession(ctx, c)
	c.metrics.ConnectionOpened()

	go c.writeLoop()
	go c.readLoop()

	return c, nil
}

// ID implements graphqlws.Transport
func (c *Connection) ID() string {
	return c.id
}

// Session returns the protocol session bound to this connection
func (c *Connection) Session() *graphqlws.Session {
	return c.session
}

// Close implements graphqlws.Transport
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.metrics.ConnectionClosed()
	})
	return c.ws.Close()
}

func (c *Connection) writeLoop() {
	// Close the WebSocket connection when leaving the write loop;
	// this ensures the read loop is also terminated and the connection
	// closed cleanly
	defer c.ws.Close()

	for {
		select {
		case <-c.done:
			return

		case msg := <-c.outgoing:
			c.ws.SetWriteDeadline(time.Now().Add(WriteTimeout))

			// Send the message to the client; if this times out, the
			// WebSocket connection will be corrupt, hence we need to close
			// the write loop and the connection immediately
			if err := c.ws.WriteJSON(msg); err != nil {
				c.log.WithError(err).Warnf("failed to write message")
				return
			}
		}
	}
}

func (c *Connection) readLoop() {
	// tearing down the session closes the websocket and cancels every
	// active operation
	defer c.session.Shutdown()

	c.ws.SetReadLimit(ReadLimit)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.log.Debugf("gracefully closing connection with normal closure")
			} else {
				c.log.WithError(err).Errorf("closing connection")
			}
			return
		}

		go c.forward(c.handler.Handle(data, c.session))
	}
}

// forward merges one frame's outbound sequence into the socket sink
func (c *Connection) forward(seq <-chan protocol.OperationMessage) {
	for {
		select {
		case msg, ok := <-seq:
			if !ok {
				return
			}

			select {
			case c.outgoing <- msg:

			case <-c.done:
				return
			}

		case <-c.done:
			return
		}
	}
}
