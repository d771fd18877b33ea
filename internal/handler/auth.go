package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/palmcove/resortd/internal/model"
	"github.com/palmcove/resortd/internal/server/middleware"
	"github.com/palmcove/resortd/internal/service"
	"github.com/palmcove/resortd/internal/session"
	"github.com/palmcove/resortd/internal/store"
)

// Messages shown for rejected logins. Disabled accounts get the same text as
// wrong passwords.
const (
	msgInvalidCredentials = "Invalid email or password"
	msgLocked             = "Too many failed attempts. Please try again later."
)

// AuthHandler serves sign-in, sign-out, registration and API tokens.
type AuthHandler struct {
	store    *store.Store
	auth     *service.Authenticator
	limiter  *service.LoginLimiter
	activity *service.ActivityLogger
	sessions *session.Manager
	tokens   *service.TokenService
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler. tokens may be nil when bearer
// tokens are disabled.
func NewAuthHandler(st *store.Store, auth *service.Authenticator, limiter *service.LoginLimiter,
	activity *service.ActivityLogger, sessions *session.Manager, tokens *service.TokenService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		store:    st,
		auth:     auth,
		limiter:  limiter,
		activity: activity,
		sessions: sessions,
		tokens:   tokens,
		logger:   logger,
	}
}

// loginRequest is the expected payload for Login and Token.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// loginResponse is returned by a successful Login.
type loginResponse struct {
	UserID    int64      `json:"user_id"`
	Role      model.Role `json:"role"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	CSRFToken string     `json:"csrf_token"`
}

// tokenResponse is returned by a successful Token request.
type tokenResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresIn   int        `json:"expires_in"`
	ExpiresAt   time.Time  `json:"expires_at"`
	UserID      int64      `json:"user_id"`
	Role        model.Role `json:"role"`
}

// CSRF returns the session's CSRF token, creating the session on first use.
// GET /api/v1/auth/csrf
func (h *AuthHandler) CSRF(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusInternalServerError, model.CodeServerError, genericFailure)
		return
	}
	if sess.IsNew() {
		sess.MarkDirty()
	}
	w.Header().Set(middleware.CSRFHeader, sess.CSRFToken)
	writeData(w, http.StatusOK, map[string]string{"csrf_token": sess.CSRFToken})
}

// Login verifies credentials for the declared role and signs the session in.
// The session id is regenerated on success.
// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusInternalServerError, model.CodeServerError, genericFailure)
		return
	}
	id, ok := h.verify(w, r, sess, model.EventLogin)
	if !ok {
		return
	}

	if err := h.sessions.Regenerate(w, r); err != nil {
		h.logger.Error("session regenerate failed", "error", err)
		writeError(w, http.StatusInternalServerError, model.CodeServerError, genericFailure)
		return
	}
	sess.SetIdentity(id.Role, id.UserID, id.Email)
	h.record(r, model.EventLogin, model.OutcomeSuccess, id.Role, &id.UserID, id.Email)

	writeData(w, http.StatusOK, loginResponse{
		UserID:    id.UserID,
		Role:      id.Role,
		Email:     id.Email,
		Name:      id.Name,
		CSRFToken: sess.CSRFToken,
	})
}

// Token verifies credentials like Login but returns a bearer token instead of
// signing the session in.
// POST /api/v1/auth/token
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess == nil || h.tokens == nil {
		writeError(w, http.StatusNotFound, model.CodeNotFound, "Bearer tokens are not enabled")
		return
	}
	id, ok := h.verify(w, r, sess, model.EventToken)
	if !ok {
		return
	}

	token, exp, err := h.tokens.Issue(id)
	if err != nil {
		h.logger.Error("issue token failed", "error", err)
		writeError(w, http.StatusInternalServerError, model.CodeServerError, genericFailure)
		return
	}
	h.record(r, model.EventToken, model.OutcomeSuccess, id.Role, &id.UserID, id.Email)

	writeData(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(h.tokens.TTL().Seconds()),
		ExpiresAt:   exp,
		UserID:      id.UserID,
		Role:        id.Role,
	})
}

// verify runs the shared credential flow: lockout check, authentication and
// failure counting. It writes the error response itself and reports whether
// the caller should continue.
func (h *AuthHandler) verify(w http.ResponseWriter, r *http.Request, sess *session.Session, event string) (*service.Identity, bool) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeBadBody(w, err)
		return nil, false
	}
	role, ok := model.ParseRole(req.Role)
	if !ok {
		writeError(w, http.StatusBadRequest, model.CodeValidation, "role must be admin or client")
		return nil, false
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, model.CodeValidation, "Email and password are required")
		return nil, false
	}

	if wait, err := h.limiter.Check(sess); err != nil {
		h.record(r, model.EventLocked, model.OutcomeLocked, role, nil, req.Email)
		h.writeLocked(w, wait)
		return nil, false
	}

	id, err := h.auth.Authenticate(r.Context(), req.Email, req.Password, role)
	switch {
	case err == nil:
		h.limiter.Reset(sess)
		return id, true

	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrAccountDisabled):
		outcome := model.OutcomeFailure
		if errors.Is(err, service.ErrAccountDisabled) {
			outcome = model.OutcomeDisabled
		}
		var userID *int64
		if id != nil {
			userID = &id.UserID
		}
		failed := model.EventLoginFailed
		if event == model.EventToken {
			failed = model.EventToken
		}
		h.record(r, failed, outcome, role, userID, req.Email)

		remaining, lerr := h.limiter.RecordFailure(sess)
		if lerr != nil {
			h.record(r, model.EventLocked, model.OutcomeLocked, role, userID, req.Email)
			h.writeLocked(w, h.limiter.Lockout)
			return nil, false
		}
		w.Header().Set("X-Login-Attempts-Remaining", strconv.Itoa(remaining))
		writeError(w, http.StatusUnauthorized, model.CodeInvalidCredentials, msgInvalidCredentials)
		return nil, false

	default:
		h.logger.Error("authenticate failed", "error", err, "role", role)
		writeError(w, http.StatusInternalServerError, model.CodeServerError, genericFailure)
		return nil, false
	}
}

func (h *AuthHandler) writeLocked(w http.ResponseWriter, wait time.Duration) {
	secs := int(wait.Round(time.Second).Seconds())
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeError(w, http.StatusTooManyRequests, model.CodeAccountLocked, msgLocked)
}

// Logout signs the session out and destroys it. Calling it without a signed
// in session is not an error.
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess != nil && sess.Authenticated() {
		userID := sess.UserID
		h.record(r, model.EventLogout, model.OutcomeSuccess, sess.Role, &userID, sess.Email)
	}
	if err := h.sessions.Destroy(w, r); err != nil {
		// The cookie is already expired; a stale record ages out of the store.
		h.logger.Warn("session destroy failed", "error", err)
	}
	writeMessage(w, http.StatusOK, "You have been signed out")
}

// Register creates a customer account. The new customer signs in separately.
// POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := readJSON(r, &in); err != nil {
		writeBadBody(w, err)
		return
	}
	c, err := h.auth.Register(r.Context(), in)
	if err != nil {
		if service.IsValidation(err) || errors.Is(err, service.ErrEmailTaken) {
			h.record(r, model.EventRegistration, model.OutcomeFailure, model.RoleClient, nil, in.Email)
		}
		writeServiceError(w, r, h.logger, "register", err)
		return
	}
	h.record(r, model.EventRegistration, model.OutcomeSuccess, model.RoleClient, &c.ID, c.Email)
	writeJSON(w, http.StatusCreated, model.Response{
		Success: true,
		Message: "Account created. You can now sign in.",
		Data:    c,
	})
}

// meResponse describes the signed-in account.
type meResponse struct {
	UserID int64      `json:"user_id"`
	Role   model.Role `json:"role"`
	Email  string     `json:"email"`
	Name   string     `json:"name"`
	Via    string     `json:"via"`
}

// Me returns the signed-in identity.
// GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, model.CodeUnauthenticated, "Please sign in to continue")
		return
	}
	resp := meResponse{UserID: p.UserID, Role: p.Role, Email: p.Email, Via: p.Source}
	switch p.Role {
	case model.RoleAdmin:
		adm, err := h.store.GetAdministrator(r.Context(), p.UserID)
		if err != nil {
			writeServiceError(w, r, h.logger, "load administrator", err)
			return
		}
		resp.Name = adm.Name
	case model.RoleClient:
		c, err := h.store.GetCustomer(r.Context(), p.UserID)
		if err != nil {
			writeServiceError(w, r, h.logger, "load customer", err)
			return
		}
		resp.Name = c.FullName()
	}
	writeData(w, http.StatusOK, resp)
}

// record writes an activity entry tagged with the client address.
func (h *AuthHandler) record(r *http.Request, event, outcome string, role model.Role, userID *int64, email string) {
	h.activity.Record(r.Context(), model.ActivityEntry{
		UserID:    userID,
		Role:      string(role),
		Event:     event,
		Outcome:   outcome,
		Email:     truncate(email, 255),
		IPAddress: clientIP(r),
		UserAgent: truncate(r.UserAgent(), 255),
	})
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
