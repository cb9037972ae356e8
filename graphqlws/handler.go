package graphqlws

import (
	"fmt"

	"github.com/bhoriuchi/graphql-ws/protocol"
)

// Handle processes a single inbound text frame and returns the frame's
// outbound message sequence. The channel is closed when the sequence
// completes; sequences may be empty, finite or, for the keep-alive
// merge, infinite. Handle does not wait for the frame to be processed;
// it blocks only while taskBuffer earlier frames of the session are
// still queued.
func (h *Handler) Handle(frame []byte, s *Session) <-chan protocol.OperationMessage {
	out := make(chan protocol.OperationMessage)

	msg, err := protocol.DecodeMessage(frame)
	if err != nil {
		s.log.WithError(err).Errorf("failed to decode message")
		go func() {
			defer close(out)
			s.emit(out, protocol.OperationMessage{
				Type:    protocol.MsgConnectionError,
				Payload: protocol.ErrorPayload(err),
			})
		}()
		return out
	}

	s.enqueue(msg, out)

	return out
}

// dispatch routes a decoded frame to its per-type routine. Runs on the
// session worker.
func (h *Handler) dispatch(msg *protocol.OperationMessage, s *Session, out chan protocol.OperationMessage) {
	switch msg.Type {

	case protocol.MsgConnectionInit:
		h.handleConnectionInit(msg, s, out)

	case protocol.MsgStart:
		h.handleStart(msg, s, out)

	case protocol.MsgStop:
		h.handleStop(msg, s, out)

	case protocol.MsgConnectionTerminate:
		h.handleConnectionTerminate(msg, s, out)

	default:
		err := fmt.Errorf("unhandled message type %q", msg.Type)
		s.log.WithError(err).Errorf("failed to handle message")
		s.emit(out, protocol.OperationMessage{
			ID:      msg.ID,
			Type:    protocol.MsgConnectionError,
			Payload: protocol.ErrorPayload(err),
		})
		close(out)
	}
}
