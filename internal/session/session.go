// Package session keeps per-browser state between requests: the signed-in
// identity, the login attempt counter and the CSRF token. The browser only
// holds a signed, opaque session id; values live in a Store.
package session

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"github.com/gorilla/securecookie"

	"github.com/palmcove/resortd/internal/model"
)

// ErrNotFound is returned by a Store when no live session has the given id.
var ErrNotFound = errors.New("session not found")

// Session is the server-side state for one browser. It holds at most one
// identity at a time.
type Session struct {
	ID              string     `json:"id"`
	Role            model.Role `json:"role,omitempty"`
	UserID          int64      `json:"user_id,omitempty"`
	Email           string     `json:"email,omitempty"`
	LoginAttempts   int        `json:"login_attempts"`
	LastAttemptTime time.Time  `json:"last_attempt_time,omitempty"`
	CSRFToken       string     `json:"csrf_token"`
	CreatedAt       time.Time  `json:"created_at"`
	LastActive      time.Time  `json:"last_active"`

	dirty     bool
	isNew     bool
	destroyed bool
}

// SetIdentity binds the session to one account, replacing any previous one.
func (s *Session) SetIdentity(role model.Role, userID int64, email string) {
	s.Role = role
	s.UserID = userID
	s.Email = email
	s.dirty = true
}

// ClearIdentity signs the session out without discarding it.
func (s *Session) ClearIdentity() {
	s.Role = ""
	s.UserID = 0
	s.Email = ""
	s.dirty = true
}

// Authenticated reports whether an identity is bound.
func (s *Session) Authenticated() bool {
	return s.Role != "" && s.UserID != 0
}

// HasRole reports whether the session is signed in with role r.
func (s *Session) HasRole(r model.Role) bool {
	return s.Authenticated() && s.Role == r
}

// MarkDirty flags the session for saving at the end of the request.
func (s *Session) MarkDirty() { s.dirty = true }

// IsNew reports whether the session was created during this request.
func (s *Session) IsNew() bool { return s.isNew }

type contextKey struct{}

// FromContext returns the request's session, or nil outside the middleware.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}

// WithSession attaches s to ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// randomToken returns n random bytes hex encoded.
func randomToken(n int) (string, error) {
	b := securecookie.GenerateRandomKey(n)
	if b == nil {
		return "", errors.New("generate random token")
	}
	return hex.EncodeToString(b), nil
}

// newSession returns a fresh session with a random id and CSRF token. It is
// not saved until something marks it dirty.
func newSession(now time.Time) (*Session, error) {
	id, err := randomToken(32)
	if err != nil {
		return nil, err
	}
	csrf, err := randomToken(32)
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:         id,
		CSRFToken:  csrf,
		CreatedAt:  now,
		LastActive: now,
		isNew:      true,
	}, nil
}
