package graphqlws

import "github.com/bhoriuchi/graphql-ws/protocol"

func (h *Handler) handleStop(msg *protocol.OperationMessage, s *Session, out chan protocol.OperationMessage) {
	defer close(out)
	s.log.Debugf("received STOP message")

	if msg.ID == "" {
		return
	}

	// removing the entry before the cancel propagates keeps the start
	// sequence from emitting its own complete
	if s.unsubscribe(msg.ID) != nil {
		s.emit(out, protocol.OperationMessage{
			ID:   msg.ID,
			Type: protocol.MsgComplete,
		})

		if err := s.hooks.OnOperationComplete(s, msg.ID); err != nil {
			s.log.WithError(err).Warnf("onOperationComplete hook failed")
		}
	}
}
