package graphqlws

import (
	"github.com/bhoriuchi/graphql-ws/protocol"
	"github.com/bhoriuchi/graphql-ws/utils/interval"
)

// keepAliveLoop emits a ka frame every keep-alive period until the
// session ends. It owns the outbound channel of the init frame that
// started it, so the sequence only completes on shutdown.
func (h *Handler) keepAliveLoop(s *Session, out chan protocol.OperationMessage) {
	defer close(out)

	ticker := interval.SetInterval(func(i *interval.Interval) {
		s.log.Tracef("sending KEEP_ALIVE message")
		s.emit(out, protocol.OperationMessage{
			Type: protocol.MsgKeepAlive,
		})
	}, h.keepAlive)

	<-s.ctx.Done()
	ticker.Clear()
}
