// Package metadata exposes the connection behind an operation to its
// resolvers through the execution context.
package metadata

import "context"

// Session is the view of a protocol session available to resolvers
type Session interface {
	ID() string
	ConnectionParams() interface{}
	SubscriptionCount() int
}

type sessionKey struct{}

// WithSession binds a session to an operation's context
func WithSession(ctx context.Context, s Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session bound to an operation's context
func SessionFrom(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return nil, false
	}

	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}
