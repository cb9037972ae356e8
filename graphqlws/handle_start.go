package graphqlws

import (
	"context"
	"fmt"

	"github.com/bhoriuchi/graphql-ws/logger"
	"github.com/bhoriuchi/graphql-ws/manager"
	"github.com/bhoriuchi/graphql-ws/metadata"
	"github.com/bhoriuchi/graphql-ws/protocol"
)

func (h *Handler) handleStart(msg *protocol.OperationMessage, s *Session, out chan protocol.OperationMessage) {
	s.log.Debugf("received START message")

	if !s.Initialized() {
		err := fmt.Errorf("attempted start operation on uninitialized connection")
		s.log.WithError(err).Errorf("start operation failed")
		s.emit(out, protocol.OperationMessage{
			ID:      msg.ID,
			Type:    protocol.MsgConnectionError,
			Payload: protocol.ErrorPayload(err),
		})
		close(out)
		return
	}

	if msg.ID == "" {
		err := fmt.Errorf("message contains no ID")
		s.log.Errorf("message contains no ID")
		s.emit(out, protocol.OperationMessage{
			Type:    protocol.MsgConnectionError,
			Payload: protocol.ErrorPayload(err),
		})
		close(out)
		return
	}

	opLog := s.log.WithField("operationId", msg.ID)

	req, err := protocol.ParseRequest(msg.Payload)
	if err == nil {
		err = req.Validate()
	}

	if err != nil {
		opLog.WithError(err).Errorf("failed to parse start payload")
		s.emit(out, protocol.OperationMessage{
			ID:      msg.ID,
			Type:    protocol.MsgConnectionError,
			Payload: protocol.ErrorPayload(err),
		})
		close(out)
		return
	}

	opName := req.OperationName
	if opName == "" {
		opName = "Unnamed Subscription"
	}

	// expose the session to resolvers through the metadata context
	ctx, cancelFunc := context.WithCancel(metadata.WithSession(s.ctx, s))

	// a live operation already uses this id, drop the frame
	if !s.mgr.Subscribe(&manager.Subscription{
		ConnectionID:  s.ID(),
		OperationID:   msg.ID,
		OperationName: opName,
		Context:       ctx,
		CancelFunc:    cancelFunc,
	}) {
		opLog.Warnf("duplicate operation id, ignoring START")
		cancelFunc()
		close(out)
		return
	}

	s.metrics.SubscriptionStarted()

	if err := s.hooks.OnOperation(s, s.ConnectionParams(), msg.ID); err != nil {
		opLog.WithError(err).Errorf("onOperation hook failed")
		s.emit(out, protocol.OperationMessage{
			ID:      msg.ID,
			Type:    protocol.MsgError,
			Payload: protocol.ErrorResponse(err),
		})
		s.unsubscribe(msg.ID)
		close(out)
		return
	}

	results, err := h.executor.ExecuteSubscription(ctx, req)
	if err != nil {
		opLog.WithError(err).Errorf("subscribe operation failed")
		s.emit(out, protocol.OperationMessage{
			ID:      msg.ID,
			Type:    protocol.MsgError,
			Payload: protocol.ErrorResponse(err),
		})
		s.unsubscribe(msg.ID)
		close(out)
		return
	}

	opLog.Tracef("subscription %q SUBSCRIBED", opName)
	go h.pump(ctx, s, msg.ID, opName, results, out, opLog)
}

// pump forwards execution results to the client until the operation
// ends or is cancelled
func (h *Handler) pump(
	ctx context.Context,
	s *Session,
	id string,
	opName string,
	results <-chan *protocol.Response,
	out chan protocol.OperationMessage,
	opLog *logger.LogWrapper,
) {
	defer close(out)

	for {
		select {
		case <-ctx.Done():
			// a cancelled operation ends silently; its registry entry was
			// either removed by the canceller or is drained here
			opLog.Tracef("exiting subscription %q", opName)
			s.unsubscribe(id)
			return

		case res, more := <-results:
			if !more {
				opLog.Tracef("subscription %q has no more messages, unsubscribing", opName)

				// notify the client only if the operation is still live
				if s.unsubscribe(id) != nil {
					s.emit(out, protocol.OperationMessage{
						ID:   id,
						Type: protocol.MsgComplete,
					})

					if err := s.hooks.OnOperationComplete(s, id); err != nil {
						opLog.WithError(err).Warnf("onOperationComplete hook failed")
					}
				}

				opLog.Debugf("subscription %q UNSUBSCRIBED", opName)
				return
			}

			if res.HasErrors() {
				s.emit(out, protocol.OperationMessage{
					ID:      id,
					Type:    protocol.MsgError,
					Payload: res,
				})
			} else {
				s.emit(out, protocol.OperationMessage{
					ID:      id,
					Type:    protocol.MsgData,
					Payload: res,
				})
			}
		}
	}
}
