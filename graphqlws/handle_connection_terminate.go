package graphqlws

import "github.com/bhoriuchi/graphql-ws/protocol"

func (h *Handler) handleConnectionTerminate(msg *protocol.OperationMessage, s *Session, out chan protocol.OperationMessage) {
	s.log.Debugf("received CONNECTION_TERMINATE message")
	s.Shutdown()
	close(out)
}
