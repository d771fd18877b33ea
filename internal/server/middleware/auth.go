package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/palmcove/resortd/internal/model"
	"github.com/palmcove/resortd/internal/service"
	"github.com/palmcove/resortd/internal/session"
)

type contextKeyAuth string

const (
	// AuthPrincipalKey is the context key for the authenticated principal.
	AuthPrincipalKey contextKeyAuth = "auth_principal"
)

// Principal sources.
const (
	SourceSession = "session"
	SourceBearer  = "bearer"
)

// Principal represents the signed-in identity making the request.
type Principal struct {
	Source string // "session" or "bearer"
	Role   model.Role
	UserID int64
	Email  string
}

// Authenticate resolves the request's identity from the session or, for API
// clients, from an Authorization: Bearer token. Requests without either pass
// through anonymously; RequireRole decides whether that is acceptable. A
// bearer token that fails validation is rejected with 401.
func Authenticate(tokens *service.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var principal *Principal

			if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
				if tokens == nil {
					writeAuthError(w, http.StatusUnauthorized, model.CodeUnauthenticated, "Bearer tokens are not enabled")
					return
				}
				id, err := tokens.Validate(strings.TrimPrefix(authHeader, "Bearer "))
				if err != nil {
					msg := "Invalid token"
					if errors.Is(err, service.ErrTokenExpired) {
						msg = "Token expired"
					}
					writeAuthError(w, http.StatusUnauthorized, model.CodeUnauthenticated, msg)
					return
				}
				principal = &Principal{Source: SourceBearer, Role: id.Role, UserID: id.UserID, Email: id.Email}
			} else if sess := session.FromContext(r.Context()); sess != nil && sess.Authenticated() {
				principal = &Principal{Source: SourceSession, Role: sess.Role, UserID: sess.UserID, Email: sess.Email}
			}

			if principal == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), AuthPrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a route group to one role. Anonymous requests get 401,
// requests signed in with another role get 403. It must be used after
// Authenticate in the middleware chain.
func RequireRole(role model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipal(r.Context())
			if principal == nil {
				writeAuthError(w, http.StatusUnauthorized, model.CodeUnauthenticated, "Please sign in to continue")
				return
			}
			if principal.Role != role {
				writeAuthError(w, http.StatusForbidden, model.CodeForbidden, "You do not have access to this page")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AccountChecker reports whether a signed-in account may still act.
// *service.Authenticator implements it.
type AccountChecker interface {
	AccountActive(ctx context.Context, role model.Role, userID int64) (bool, error)
}

// RequireActive rejects principals whose account has been banned, disabled or
// deleted since they signed in, and signs such a session out. It must be used
// after RequireRole.
func RequireActive(accounts AccountChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipal(r.Context())
			if principal == nil {
				next.ServeHTTP(w, r)
				return
			}
			active, err := accounts.AccountActive(r.Context(), principal.Role, principal.UserID)
			if err != nil {
				writeAuthError(w, http.StatusInternalServerError, model.CodeServerError, "Something went wrong. Please try again later.")
				return
			}
			if !active {
				if sess := session.FromContext(r.Context()); principal.Source == SourceSession && sess != nil {
					sess.ClearIdentity()
				}
				writeAuthError(w, http.StatusUnauthorized, model.CodeUnauthenticated, "Your account is no longer active")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetPrincipal extracts the authenticated principal from the context.
// Returns nil if no principal is present (i.e., unauthenticated request).
func GetPrincipal(ctx context.Context) *Principal {
	if p, ok := ctx.Value(AuthPrincipalKey).(*Principal); ok {
		return p
	}
	return nil
}

// WithPrincipal attaches p to ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, AuthPrincipalKey, p)
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Encoded here rather than through the handler package, which imports
	// this one.
	json.NewEncoder(w).Encode(model.Response{Success: false, Message: message, Code: code})
}
