package graphqlws

import (
	"github.com/bhoriuchi/graphql-ws/protocol"
)

func (h *Handler) handleConnectionInit(msg *protocol.OperationMessage, s *Session, out chan protocol.OperationMessage) {
	s.log.Tracef("received CONNECTION_INIT message")

	// ignore initialisation requests on an initialized session
	if s.Initialized() {
		s.log.Warnf("received multiple CONNECTION_INIT messages, ignoring duplicates")
		close(out)
		return
	}

	s.setConnectionParams(msg.Payload)

	if err := s.hooks.OnConnect(s, msg.Payload); err != nil {
		s.log.WithError(err).Errorf("onConnect hook failed")
		s.emit(out, protocol.OperationMessage{
			ID:      msg.ID,
			Type:    protocol.MsgConnectionError,
			Payload: protocol.ErrorPayload(err),
		})
		close(out)
		return
	}

	s.log.Tracef("connection initialized")
	s.setInitialized()

	if !s.emit(out, protocol.OperationMessage{Type: protocol.MsgConnectionAck}) {
		close(out)
		return
	}

	// the keep-alive stream piggybacks on the first init frame that
	// carries an id, turning its sequence into [connection_ack, ka, ...]
	if h.keepAlive > 0 && msg.ID != "" && s.startKeepAlive() {
		go h.keepAliveLoop(s, out)
		return
	}

	close(out)
}
