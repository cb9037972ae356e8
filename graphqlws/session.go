package graphqlws

import (
	"context"
	"sync"

	"github.com/bhoriuchi/graphql-ws/logger"
	"github.com/bhoriuchi/graphql-ws/manager"
	"github.com/bhoriuchi/graphql-ws/metrics"
	"github.com/bhoriuchi/graphql-ws/protocol"
)

// taskBuffer bounds the number of queued frames awaiting their control
// phase. The read loop submits one frame at a time, so the queue stays
// shallow in practice.
const taskBuffer = 64

// queuedFrame is a decoded frame waiting for its control phase
type queuedFrame struct {
	msg *protocol.OperationMessage
	out chan protocol.OperationMessage
}

// Session holds the per-connection protocol state: the operation
// registry, the init flags and the connection params retained for hook
// calls. Frame control phases run one at a time on the session worker
// so hooks and state transitions observe arrival order.
type Session struct {
	transport Transport
	handler   *Handler
	log       *logger.LogWrapper
	hooks     Hooks
	mgr       *manager.Manager
	metrics   *metrics.Metrics

	ctx       context.Context
	cancel    context.CancelFunc
	tasks     chan queuedFrame
	closeOnce sync.Once

	mx               sync.RWMutex
	initialized      bool
	keepAliveStarted bool
	connectionParams interface{}
}

// NewSession creates the protocol state for one connection and starts
// its worker
func (h *Handler) NewSession(ctx context.Context, transport Transport) *Session {
	sctx, cancel := context.WithCancel(ctx)

	s := &Session{
		transport: transport,
		handler:   h,
		log:       h.log.WithField("connectionId", transport.ID()),
		hooks:     h.hooks,
		mgr:       manager.NewManager(),
		metrics:   h.metrics,
		ctx:       sctx,
		cancel:    cancel,
		tasks:     make(chan queuedFrame, taskBuffer),
	}

	go s.run()

	return s
}

func (s *Session) ID() string {
	return s.transport.ID()
}

func (s *Session) Context() context.Context {
	return s.ctx
}

// Initialized returns true once a CONNECTION_INIT has completed
func (s *Session) Initialized() bool {
	s.mx.RLock()
	defer s.mx.RUnlock()
	return s.initialized
}

// ConnectionParams returns the payload of the CONNECTION_INIT frame
func (s *Session) ConnectionParams() interface{} {
	s.mx.RLock()
	defer s.mx.RUnlock()
	return s.connectionParams
}

// SubscriptionCount returns the number of active operations
func (s *Session) SubscriptionCount() int {
	return s.mgr.SubscriptionCount()
}

func (s *Session) setConnectionParams(params interface{}) {
	s.mx.Lock()
	s.connectionParams = params
	s.mx.Unlock()
}

func (s *Session) setInitialized() {
	s.mx.Lock()
	s.initialized = true
	s.mx.Unlock()
}

// startKeepAlive marks the keep-alive producer as started and reports
// whether this call performed the transition
func (s *Session) startKeepAlive() bool {
	s.mx.Lock()
	defer s.mx.Unlock()

	if s.keepAliveStarted {
		return false
	}

	s.keepAliveStarted = true
	return true
}

// run executes queued frame control phases in arrival order until the
// session ends, then completes the sequences of any leftover frames
func (s *Session) run() {
	for {
		select {
		case <-s.ctx.Done():
			for {
				select {
				case q := <-s.tasks:
					close(q.out)
				default:
					return
				}
			}

		case q := <-s.tasks:
			s.handler.dispatch(q.msg, s, q.out)
		}
	}
}

// enqueue submits a frame's control phase to the worker. When the
// session is already gone the frame's sequence completes empty.
func (s *Session) enqueue(msg *protocol.OperationMessage, out chan protocol.OperationMessage) {
	if s.ctx.Err() != nil {
		close(out)
		return
	}

	select {
	case s.tasks <- queuedFrame{msg: msg, out: out}:

	case <-s.ctx.Done():
		close(out)
	}
}

// emit delivers a message unless the session is shutting down
func (s *Session) emit(out chan<- protocol.OperationMessage, msg protocol.OperationMessage) bool {
	select {
	case out <- msg:
		s.metrics.FrameSent(string(msg.Type))
		return true

	case <-s.ctx.Done():
		return false
	}
}

// unsubscribe removes a single operation from the registry, cancelling
// its upstream
func (s *Session) unsubscribe(operationID string) *manager.Subscription {
	sub := s.mgr.Unsubscribe(operationID)
	if sub != nil {
		s.metrics.SubscriptionEnded()
	}
	return sub
}

// Shutdown cancels every active operation, invokes the disconnect hook
// and closes the transport. It is safe to call more than once; frames
// received after shutdown produce empty sequences.
func (s *Session) Shutdown() {
	s.closeOnce.Do(func() {
		if err := s.hooks.OnDisconnect(s, s.ConnectionParams()); err != nil {
			s.log.WithError(err).Warnf("onDisconnect hook failed")
		}

		for range s.mgr.UnsubscribeAll() {
			s.metrics.SubscriptionEnded()
		}

		s.cancel()

		if err := s.transport.Close(); err != nil {
			s.log.WithError(err).Debugf("failed to close transport")
		}

		s.log.Infof("closed connection")
	})
}
