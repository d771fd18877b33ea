package service

import (
	"time"

	"github.com/palmcove/resortd/internal/session"
)

const (
	DefaultMaxLoginAttempts = 5
	DefaultLockout          = 15 * time.Minute
)

// LoginLimiter throttles password guessing per browser session. The counter
// lives in the session, so a client that discards its cookie starts over;
// the per-IP limit in the HTTP layer covers that case.
type LoginLimiter struct {
	MaxAttempts int
	Lockout     time.Duration
	Now         func() time.Time
}

// NewLoginLimiter returns a limiter, substituting defaults for zero values.
func NewLoginLimiter(maxAttempts int, lockout time.Duration) *LoginLimiter {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxLoginAttempts
	}
	if lockout <= 0 {
		lockout = DefaultLockout
	}
	return &LoginLimiter{MaxAttempts: maxAttempts, Lockout: lockout, Now: time.Now}
}

// Check returns ErrLocked and the remaining wait while the session is locked
// out. Once the lockout has elapsed the counter is reset.
func (l *LoginLimiter) Check(s *session.Session) (time.Duration, error) {
	if s.LoginAttempts < l.MaxAttempts {
		return 0, nil
	}
	elapsed := l.Now().Sub(s.LastAttemptTime)
	if elapsed < l.Lockout {
		return l.Lockout - elapsed, ErrLocked
	}
	l.Reset(s)
	return 0, nil
}

// RecordFailure counts a failed attempt. It returns the attempts left, or
// ErrLocked when this failure reached the maximum.
func (l *LoginLimiter) RecordFailure(s *session.Session) (int, error) {
	s.LoginAttempts++
	s.LastAttemptTime = l.Now()
	s.MarkDirty()
	if s.LoginAttempts >= l.MaxAttempts {
		return 0, ErrLocked
	}
	return l.MaxAttempts - s.LoginAttempts, nil
}

// Reset clears the counter after a successful login or an elapsed lockout.
func (l *LoginLimiter) Reset(s *session.Session) {
	s.LoginAttempts = 0
	s.LastAttemptTime = time.Time{}
	s.MarkDirty()
}
