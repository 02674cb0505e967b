// Package session carries the identity of the signed-in user. A Session is
// an immutable value passed explicitly to every component that needs it.
package session

import "context"

// Session identifies the signed-in user, if any
type Session struct {
	userID string
	email  string
}

// New creates a session for an authenticated user
func New(userID, email string) Session {
	return Session{userID: userID, email: email}
}

// Anonymous returns a session with no signed-in user
func Anonymous() Session {
	return Session{}
}

// UserID returns the signed-in user's id, empty when anonymous
func (s Session) UserID() string {
	return s.userID
}

// Email returns the signed-in user's email, if known
func (s Session) Email() string {
	return s.email
}

// Authenticated reports whether a user is signed in
func (s Session) Authenticated() bool {
	return s.userID != ""
}

type contextKey struct{}

// WithContext stores s in ctx
func WithContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored in ctx, or Anonymous
func FromContext(ctx context.Context) Session {
	if s, ok := ctx.Value(contextKey{}).(Session); ok {
		return s
	}
	return Anonymous()
}
