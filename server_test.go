package server_test

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	server "github.com/bhoriuchi/graphql-ws"
	"github.com/bhoriuchi/graphql-ws/graphqlws"
	"github.com/bhoriuchi/graphql-ws/protocol"
	"github.com/gorilla/websocket"
	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/require"
)

func testSchema(t *testing.T) graphql.Schema {
	t.Helper()

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name: "Query",
			Fields: graphql.Fields{
				"hello": &graphql.Field{
					Type: graphql.String,
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						return "world", nil
					},
				},
			},
		}),
		Subscription: graphql.NewObject(graphql.ObjectConfig{
			Name: "Subscription",
			Fields: graphql.Fields{
				"counter": &graphql.Field{
					Type: graphql.Int,
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						return p.Source, nil
					},
					Subscribe: func(p graphql.ResolveParams) (interface{}, error) {
						c := make(chan interface{})
						go func() {
							defer close(c)
							for i := 1; i <= 3; i++ {
								select {
								case <-p.Context.Done():
									return
								case c <- i:
								}
							}
						}()

						return c, nil
					},
				},
			},
		}),
	})
	require.NoError(t, err)

	return schema
}

type frame struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func dial(t *testing.T, url string, subprotocols ...string) *websocket.Conn {
	t.Helper()

	dialer := websocket.Dialer{Subprotocols: subprotocols}
	c, _, err := dialer.Dial("ws"+strings.TrimPrefix(url, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	return c
}

func readFrame(t *testing.T, c *websocket.Conn) frame {
	t.Helper()

	c.SetReadDeadline(time.Now().Add(2 * time.Second))

	var f frame
	require.NoError(t, c.ReadJSON(&f))
	return f
}

func writeFrame(t *testing.T, c *websocket.Conn, data string) {
	t.Helper()
	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(data)))
}

func TestServerSubscription(t *testing.T) {
	srv := server.New(testSchema(t))
	ts := httptest.NewServer(srv)
	defer ts.Close()

	c := dial(t, ts.URL, graphqlws.Subprotocol)

	writeFrame(t, c, `{"type":"connection_init"}`)
	require.Equal(t, string(protocol.MsgConnectionAck), readFrame(t, c).Type)

	writeFrame(t, c, `{"type":"start","id":"1","payload":{"query":"subscription { counter }"}}`)

	for i := 1; i <= 3; i++ {
		f := readFrame(t, c)
		require.Equal(t, string(protocol.MsgData), f.Type)
		require.Equal(t, "1", f.ID)
		require.JSONEq(t, fmt.Sprintf(`{"data":{"counter":%d}}`, i), string(f.Payload))
	}

	f := readFrame(t, c)
	require.Equal(t, string(protocol.MsgComplete), f.Type)
	require.Equal(t, "1", f.ID)
}

func TestServerQueryOverSocket(t *testing.T) {
	srv := server.New(testSchema(t))
	ts := httptest.NewServer(srv)
	defer ts.Close()

	c := dial(t, ts.URL, graphqlws.Subprotocol)

	writeFrame(t, c, `{"type":"connection_init"}`)
	require.Equal(t, string(protocol.MsgConnectionAck), readFrame(t, c).Type)

	writeFrame(t, c, `{"type":"start","id":"q1","payload":{"query":"{ hello }"}}`)

	f := readFrame(t, c)
	require.Equal(t, string(protocol.MsgData), f.Type)
	require.JSONEq(t, `{"data":{"hello":"world"}}`, string(f.Payload))

	f = readFrame(t, c)
	require.Equal(t, string(protocol.MsgComplete), f.Type)
}

func TestServerKeepAlive(t *testing.T) {
	srv := server.New(testSchema(t), server.WithKeepAlive(20*time.Millisecond))
	ts := httptest.NewServer(srv)
	defer ts.Close()

	c := dial(t, ts.URL, graphqlws.Subprotocol)

	writeFrame(t, c, `{"type":"connection_init","id":"ka"}`)
	require.Equal(t, string(protocol.MsgConnectionAck), readFrame(t, c).Type)
	require.Equal(t, string(protocol.MsgKeepAlive), readFrame(t, c).Type)
	require.Equal(t, string(protocol.MsgKeepAlive), readFrame(t, c).Type)
}

func TestServerTerminate(t *testing.T) {
	srv := server.New(testSchema(t))
	ts := httptest.NewServer(srv)
	defer ts.Close()

	c := dial(t, ts.URL, graphqlws.Subprotocol)

	writeFrame(t, c, `{"type":"connection_init"}`)
	require.Equal(t, string(protocol.MsgConnectionAck), readFrame(t, c).Type)

	writeFrame(t, c, `{"type":"connection_terminate"}`)

	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := c.ReadMessage()
	require.Error(t, err)
}

func TestServerRejectsUnknownSubprotocol(t *testing.T) {
	srv := server.New(testSchema(t))
	ts := httptest.NewServer(srv)
	defer ts.Close()

	c := dial(t, ts.URL)

	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := c.ReadMessage()
	require.Error(t, err)
	require.True(t, websocket.IsCloseError(err, websocket.CloseProtocolError), "got %v", err)
}

func TestServerUndecodableFrame(t *testing.T) {
	srv := server.New(testSchema(t))
	ts := httptest.NewServer(srv)
	defer ts.Close()

	c := dial(t, ts.URL, graphqlws.Subprotocol)

	writeFrame(t, c, `not json`)

	f := readFrame(t, c)
	require.Equal(t, string(protocol.MsgConnectionError), f.Type)
	require.Empty(t, f.ID)
}
