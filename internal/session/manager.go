package session

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/securecookie"

	"github.com/palmcove/resortd/internal/model"
)

const (
	DefaultCookieName  = "resortd_session"
	DefaultIdleTimeout = 30 * time.Minute
	DefaultMaxLifetime = 12 * time.Hour

	// lockWait bounds how long a request queues behind others on the same
	// session.
	lockWait = 10 * time.Second
	// maxTouchInterval caps how stale the stored LastActive may get before
	// an otherwise unchanged session is saved again.
	maxTouchInterval = time.Minute
)

// Options configures a Manager.
type Options struct {
	CookieName string
	// Secret signs the session cookie. Changing it invalidates every cookie.
	Secret      string
	IdleTimeout time.Duration
	MaxLifetime time.Duration
	Secure      bool
	Logger      *slog.Logger
}

// Manager issues, loads and persists sessions around each request.
type Manager struct {
	store  Store
	codec  *securecookie.SecureCookie
	opts   Options
	logger *slog.Logger
	now    func() time.Time
	locks  *lockTable
}

// NewManager returns a Manager backed by store. Zero option values take the
// package defaults.
func NewManager(store Store, opts Options) (*Manager, error) {
	if opts.Secret == "" {
		return nil, errors.New("session secret is required")
	}
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.MaxLifetime <= 0 {
		opts.MaxLifetime = DefaultMaxLifetime
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	hashKey := sha256.Sum256([]byte(opts.Secret))
	codec := securecookie.New(hashKey[:], nil)
	codec.MaxAge(int(opts.MaxLifetime.Seconds()))

	return &Manager{store: store, codec: codec, opts: opts, logger: logger, now: time.Now, locks: newLockTable()}, nil
}

// Middleware loads the session named by the request cookie, or starts a new
// one when the cookie is missing, forged or expired. Requests carrying the
// same session id run one at a time, from load until the handler returns.
// The session is saved before the first byte of the response is written; a
// new session is only saved, and its cookie only issued, once something
// marks it dirty.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := m.cookieID(r)
		if id != "" {
			unlock, err := m.lock(r.Context(), id)
			if err != nil {
				m.logger.Error("session lock failed", "error", err)
				writeFailure(w)
				return
			}
			defer unlock()
		}

		sess, err := m.load(r, id)
		if err != nil {
			m.logger.Error("session load failed", "error", err)
			writeFailure(w)
			return
		}
		if now := m.now(); !sess.isNew && now.Sub(sess.LastActive) >= m.touchInterval() {
			sess.LastActive = now
			sess.dirty = true
		}

		cw := &commitWriter{ResponseWriter: w, commit: func() { m.commit(w, r, sess) }}
		next.ServeHTTP(cw, r.WithContext(WithSession(r.Context(), sess)))
		cw.once.Do(cw.commit)
	})
}

// lock acquires the in-process lock for id and, when the store supports it,
// the cross-process one.
func (m *Manager) lock(ctx context.Context, id string) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, lockWait)
	defer cancel()

	unlock, err := m.locks.lock(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("wait for session lock: %w", err)
	}
	l, ok := m.store.(Locker)
	if !ok {
		return unlock, nil
	}
	remote, err := l.Lock(ctx, id)
	if err != nil {
		unlock()
		return nil, err
	}
	return func() {
		remote()
		unlock()
	}, nil
}

func (m *Manager) touchInterval() time.Duration {
	if d := m.opts.IdleTimeout / 10; d < maxTouchInterval {
		return d
	}
	return maxTouchInterval
}

// Regenerate moves the request's session to a new id and rotates its CSRF
// token. Values are kept; the old id stops working immediately.
func (m *Manager) Regenerate(w http.ResponseWriter, r *http.Request) error {
	sess := FromContext(r.Context())
	if sess == nil {
		return errors.New("no session in request context")
	}
	id, err := randomToken(32)
	if err != nil {
		return err
	}
	csrf, err := randomToken(32)
	if err != nil {
		return err
	}
	if err := m.store.Delete(r.Context(), sess.ID); err != nil {
		return fmt.Errorf("delete old session: %w", err)
	}
	sess.ID = id
	sess.CSRFToken = csrf
	sess.dirty = true
	sess.isNew = false
	m.setCookie(w, id)
	return nil
}

// Destroy deletes the request's session and expires the cookie.
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) error {
	sess := FromContext(r.Context())
	if sess == nil {
		return nil
	}
	sess.ClearIdentity()
	sess.destroyed = true
	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	if err := m.store.Delete(r.Context(), sess.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// cookieID returns the session id from a validly signed cookie, or "".
func (m *Manager) cookieID(r *http.Request) string {
	c, err := r.Cookie(m.opts.CookieName)
	if err != nil {
		return ""
	}
	var id string
	if err := m.codec.Decode(m.opts.CookieName, c.Value, &id); err != nil {
		return ""
	}
	return id
}

// load resolves id to a live session or creates a new one.
func (m *Manager) load(r *http.Request, id string) (*Session, error) {
	now := m.now()
	if id != "" {
		sess, err := m.store.Load(r.Context(), id)
		switch {
		case err == nil && m.expired(sess, now):
			if err := m.store.Delete(r.Context(), id); err != nil {
				m.logger.Warn("expired session delete failed", "error", err)
			}
		case err == nil:
			return sess, nil
		case !errors.Is(err, ErrNotFound):
			return nil, err
		}
	}
	return newSession(now)
}

func (m *Manager) expired(s *Session, now time.Time) bool {
	return now.Sub(s.LastActive) > m.opts.IdleTimeout || now.Sub(s.CreatedAt) > m.opts.MaxLifetime
}

// ttl is the time until the session would expire if left idle.
func (m *Manager) ttl(s *Session) time.Duration {
	ttl := m.opts.IdleTimeout
	if left := s.CreatedAt.Add(m.opts.MaxLifetime).Sub(m.now()); left < ttl {
		ttl = left
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}

func (m *Manager) commit(w http.ResponseWriter, r *http.Request, s *Session) {
	if s.destroyed || !s.dirty {
		return
	}
	if err := m.store.Save(r.Context(), s, m.ttl(s)); err != nil {
		m.logger.Error("session save failed", "error", err)
		return
	}
	if s.isNew {
		m.setCookie(w, s.ID)
	}
	s.dirty = false
}

func (m *Manager) setCookie(w http.ResponseWriter, id string) {
	encoded, err := m.codec.Encode(m.opts.CookieName, id)
	if err != nil {
		m.logger.Error("session cookie encode failed", "error", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// commitWriter saves the session before headers go out.
type commitWriter struct {
	http.ResponseWriter
	once   sync.Once
	commit func()
}

func (w *commitWriter) WriteHeader(code int) {
	w.once.Do(w.commit)
	w.ResponseWriter.WriteHeader(code)
}

func (w *commitWriter) Write(b []byte) (int, error) {
	w.once.Do(w.commit)
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *commitWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func writeFailure(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(model.Response{
		Success: false,
		Message: "Something went wrong. Please try again later.",
		Code:    model.CodeServerError,
	})
}
