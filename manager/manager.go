package manager

import (
	"context"
	"sync"
)

// Manager tracks the active operations of a single connection. An
// operation id maps to at most one subscription at any instant.
type Manager struct {
	mx            sync.RWMutex
	subscriptions map[string]*Subscription
}

func NewManager() *Manager {
	return &Manager{
		subscriptions: map[string]*Subscription{},
	}
}

// Subscription is the cancel handle stored for an active operation
type Subscription struct {
	ConnectionID  string
	OperationID   string
	OperationName string
	Context       context.Context
	CancelFunc    context.CancelFunc
}

// unsubscribe cancels the subscription's upstream
func (s *Subscription) unsubscribe() {
	if s.CancelFunc != nil {
		s.CancelFunc()
	}
}

// HasSubscription returns true if the operation id is in use
func (m *Manager) HasSubscription(operationID string) bool {
	m.mx.RLock()
	defer m.mx.RUnlock()

	_, ok := m.subscriptions[operationID]
	return ok
}

// SubscriptionCount counts the active subscriptions
func (m *Manager) SubscriptionCount() int {
	m.mx.RLock()
	defer m.mx.RUnlock()

	return len(m.subscriptions)
}

// Subscribe stores the subscription and returns true if its operation
// id is not already in use
func (m *Manager) Subscribe(sub *Subscription) bool {
	m.mx.Lock()
	defer m.mx.Unlock()

	if _, ok := m.subscriptions[sub.OperationID]; ok {
		return false
	}

	m.subscriptions[sub.OperationID] = sub
	return true
}

// Unsubscribe cancels and removes a single operation, returning its
// subscription if one was present
func (m *Manager) Unsubscribe(operationID string) *Subscription {
	m.mx.Lock()
	defer m.mx.Unlock()

	sub, ok := m.subscriptions[operationID]
	if ok {
		sub.unsubscribe()
		delete(m.subscriptions, operationID)
	}

	return sub
}

// UnsubscribeAll cancels and removes every operation, returning the
// drained subscriptions. Used when the connection goes away.
func (m *Manager) UnsubscribeAll() []*Subscription {
	m.mx.Lock()
	defer m.mx.Unlock()

	drained := make([]*Subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		sub.unsubscribe()
		drained = append(drained, sub)
	}

	m.subscriptions = map[string]*Subscription{}
	return drained
}
