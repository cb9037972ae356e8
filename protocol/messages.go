package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/graphql-go/graphql/gqlerrors"
)

// MessageType is a graphql-ws protocol message type
type MessageType string

const (
	// Client to server message types
	MsgConnectionInit      MessageType = "connection_init"
	MsgStart               MessageType = "start"
	MsgStop                MessageType = "stop"
	MsgConnectionTerminate MessageType = "connection_terminate"

	// Server to client message types
	MsgConnectionAck   MessageType = "connection_ack"
	MsgConnectionError MessageType = "connection_error"
	MsgKeepAlive       MessageType = "ka"
	MsgData            MessageType = "data"
	MsgError           MessageType = "error"
	MsgComplete        MessageType = "complete"
)

// ClientMessage returns true if the type belongs to the set of messages
// a client is allowed to send
func (t MessageType) ClientMessage() bool {
	switch t {
	case MsgConnectionInit, MsgStart, MsgStop, MsgConnectionTerminate:
		return true
	}
	return false
}

// OperationMessage represents a GraphQL WebSocket message envelope.
type OperationMessage struct {
	ID      string      `json:"id,omitempty"`
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

func (msg OperationMessage) String() string {
	s, _ := json.Marshal(msg)
	if s != nil {
		return string(s)
	}
	return "<invalid>"
}

// DecodeMessage decodes a text frame into a message envelope. The type
// field must be present; whether it is a known client type is decided
// by the handler so it can answer with a tagged connection_error.
func DecodeMessage(data []byte) (*OperationMessage, error) {
	raw := struct {
		ID      string          `json:"id"`
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}{}

	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid message: %s", err)
	}

	if raw.Type == "" {
		return nil, fmt.Errorf("message contains no type")
	}

	msg := &OperationMessage{
		ID:   raw.ID,
		Type: MessageType(raw.Type),
	}

	if len(raw.Payload) > 0 {
		msg.Payload = json.RawMessage(raw.Payload)
	}

	return msg, nil
}

// Request defines the parameters of an operation that a client
// requests to be started.
type Request struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
	OperationName string                 `json:"operationName"`
}

func (r *Request) Validate() error {
	if r.Query == "" {
		return fmt.Errorf("no query specified in START message payload")
	}

	return nil
}

// ParseRequest decodes a START message payload into a Request
func ParseRequest(payload interface{}) (*Request, error) {
	if payload == nil {
		return nil, fmt.Errorf("START message contains no payload")
	}

	req := &Request{}

	// payloads of frames decoded by this package arrive raw; anything
	// else is round-tripped through its JSON form
	raw, ok := payload.(json.RawMessage)
	if !ok {
		var err error
		if raw, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("failed to parse start payload: %s", err)
		}
	}

	if err := json.Unmarshal(raw, req); err != nil {
		return nil, fmt.Errorf("failed to parse start payload: %s", err)
	}

	return req, nil
}

// Response is a single execution result pushed to the client as the
// payload of a data or error message.
type Response struct {
	Data       interface{}               `json:"data"`
	Errors     gqlerrors.FormattedErrors `json:"errors,omitempty"`
	Extensions map[string]interface{}    `json:"extensions,omitempty"`
}

// HasErrors returns true when the response carries at least one error
func (r *Response) HasErrors() bool {
	return len(r.Errors) > 0
}

// ErrorPayload builds the payload of a connection_error message
func ErrorPayload(err error) map[string]interface{} {
	return map[string]interface{}{
		"message": err.Error(),
	}
}

// ErrorResponse wraps an error as a response carrying only formatted
// errors, for use as the payload of an error message
func ErrorResponse(err error) *Response {
	return &Response{
		Errors: gqlerrors.FormattedErrors{gqlerrors.FormatError(err)},
	}
}
