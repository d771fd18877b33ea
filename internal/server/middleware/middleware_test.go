package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/palmcove/resortd/internal/model"
	"github.com/palmcove/resortd/internal/service"
	"github.com/palmcove/resortd/internal/session"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func decodeCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp model.Response
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v; body = %s", err, rr.Body.String())
	}
	if resp.Success {
		t.Error("expected success=false")
	}
	return resp.Code
}

// ---------------------------------------------------------------------------
// RequestID middleware tests
// ---------------------------------------------------------------------------

func TestRequestIDGeneratesUUID(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRequestID(r.Context()) == "" {
			t.Error("expected non-empty request ID in context")
		}
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/test", nil))

	respID := rr.Header().Get("X-Request-ID")
	if len(respID) != 36 {
		t.Errorf("expected UUID-length request ID, got %q (len=%d)", respID, len(respID))
	}
}

func TestRequestIDPreservesClientID(t *testing.T) {
	clientID := "my-custom-trace-id-123"
	handler := RequestID(okHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", clientID)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Request-ID"); got != clientID {
		t.Errorf("X-Request-ID = %q, want %q", got, clientID)
	}
}

func TestRequestIDReplacesUnsafeClientID(t *testing.T) {
	for _, bad := range []string{"has space", strings.Repeat("x", 65), "line\nbreak"} {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("X-Request-ID", bad)
		rr := httptest.NewRecorder()
		RequestID(okHandler()).ServeHTTP(rr, req)
		if got := rr.Header().Get("X-Request-ID"); got == bad || len(got) != 36 {
			t.Errorf("client id %q was not replaced, got %q", bad, got)
		}
	}
}

func TestGetRequestIDEmptyContext(t *testing.T) {
	if id := GetRequestID(context.Background()); id != "" {
		t.Errorf("expected empty string from bare context, got %q", id)
	}
}

// ---------------------------------------------------------------------------
// Logger middleware tests
// ---------------------------------------------------------------------------

func TestLoggerLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusUnauthorized, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		handler := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			io.WriteString(w, "body")
		}))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/x", nil))

		out := buf.String()
		if !strings.Contains(out, "level="+tt.level) {
			t.Errorf("status %d: expected level %s in %q", tt.status, tt.level, out)
		}
		if !strings.Contains(out, "bytes=4") {
			t.Errorf("status %d: expected bytes=4 in %q", tt.status, out)
		}
	}
}

// ---------------------------------------------------------------------------
// Authenticate / RequireRole tests
// ---------------------------------------------------------------------------

func withSession(r *http.Request, s *session.Session) *http.Request {
	return r.WithContext(session.WithSession(r.Context(), s))
}

func TestAuthenticateFromSession(t *testing.T) {
	sess := &session.Session{ID: "s1", Role: model.RoleClient, UserID: 7, Email: "ana@example.com"}

	var got *Principal
	handler := Authenticate(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetPrincipal(r.Context())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), withSession(httptest.NewRequest("GET", "/", nil), sess))

	if got == nil {
		t.Fatal("expected principal")
	}
	if got.Source != SourceSession || got.UserID != 7 || got.Role != model.RoleClient {
		t.Errorf("principal = %+v", got)
	}
}

func TestAuthenticateAnonymousPassesThrough(t *testing.T) {
	called := false
	handler := Authenticate(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if GetPrincipal(r.Context()) != nil {
			t.Error("expected no principal")
		}
	}))
	req := withSession(httptest.NewRequest("GET", "/", nil), &session.Session{ID: "s1"})
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if !called {
		t.Error("inner handler not called")
	}
}

func TestAuthenticateBearer(t *testing.T) {
	tokens := service.NewTokenService("middleware-test-secret-0123456789", time.Hour)
	token, _, err := tokens.Issue(&service.Identity{UserID: 3, Role: model.RoleAdmin, Email: "a@example.com"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	var got *Principal
	handler := Authenticate(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetPrincipal(r.Context())
	}))
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil || got.Source != SourceBearer || got.Role != model.RoleAdmin || got.UserID != 3 {
		t.Errorf("principal = %+v", got)
	}
}

func TestAuthenticateRejectsBadBearer(t *testing.T) {
	tokens := service.NewTokenService("middleware-test-secret-0123456789", time.Hour)
	handler := Authenticate(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("inner handler should not be called")
	}))
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
	if code := decodeCode(t, rr); code != model.CodeUnauthenticated {
		t.Errorf("code = %q", code)
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name      string
		principal *Principal
		want      int
		code      string
	}{
		{"anonymous", nil, http.StatusUnauthorized, model.CodeUnauthenticated},
		{"wrong role", &Principal{Role: model.RoleClient, UserID: 1}, http.StatusForbidden, model.CodeForbidden},
		{"admin", &Principal{Role: model.RoleAdmin, UserID: 1}, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/admin", nil)
			if tt.principal != nil {
				req = req.WithContext(WithPrincipal(req.Context(), tt.principal))
			}
			rr := httptest.NewRecorder()
			RequireRole(model.RoleAdmin)(okHandler()).ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
			if tt.code != "" {
				if code := decodeCode(t, rr); code != tt.code {
					t.Errorf("code = %q, want %q", code, tt.code)
				}
			}
		})
	}
}

// accountsFunc adapts a function to AccountChecker.
type accountsFunc func(role model.Role, userID int64) (bool, error)

func (f accountsFunc) AccountActive(_ context.Context, role model.Role, userID int64) (bool, error) {
	return f(role, userID)
}

func TestRequireActive(t *testing.T) {
	bannedClient := accountsFunc(func(role model.Role, userID int64) (bool, error) {
		return !(role == model.RoleClient && userID == 7), nil
	})

	t.Run("active passes", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/account", nil)
		req = req.WithContext(WithPrincipal(req.Context(), &Principal{Source: SourceSession, Role: model.RoleClient, UserID: 8}))
		rr := httptest.NewRecorder()
		RequireActive(bannedClient)(okHandler()).ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rr.Code)
		}
	})

	t.Run("banned session is signed out", func(t *testing.T) {
		sess := &session.Session{ID: "s1", Role: model.RoleClient, UserID: 7, Email: "ana@example.com"}
		req := withSession(httptest.NewRequest("POST", "/account/bookings", nil), sess)
		req = req.WithContext(WithPrincipal(req.Context(), &Principal{Source: SourceSession, Role: model.RoleClient, UserID: 7}))
		rr := httptest.NewRecorder()
		RequireActive(bannedClient)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("inner handler should not be called")
		})).ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rr.Code)
		}
		if code := decodeCode(t, rr); code != model.CodeUnauthenticated {
			t.Errorf("code = %q", code)
		}
		if sess.Authenticated() {
			t.Error("session should no longer carry an identity")
		}
	})

	t.Run("lookup failure", func(t *testing.T) {
		failing := accountsFunc(func(model.Role, int64) (bool, error) {
			return false, context.DeadlineExceeded
		})
		req := httptest.NewRequest("GET", "/admin", nil)
		req = req.WithContext(WithPrincipal(req.Context(), &Principal{Source: SourceBearer, Role: model.RoleAdmin, UserID: 1}))
		rr := httptest.NewRecorder()
		RequireActive(failing)(okHandler()).ServeHTTP(rr, req)
		if rr.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rr.Code)
		}
	})
}

func TestGetPrincipalWithoutValue(t *testing.T) {
	if GetPrincipal(context.Background()) != nil {
		t.Error("expected nil principal from bare context")
	}
}

// ---------------------------------------------------------------------------
// VerifyCSRF tests
// ---------------------------------------------------------------------------

func TestVerifyCSRF(t *testing.T) {
	sess := &session.Session{ID: "s1", CSRFToken: "tok-123"}

	tests := []struct {
		name  string
		build func() *http.Request
		want  int
	}{
		{"get is exempt", func() *http.Request {
			return httptest.NewRequest("GET", "/", nil)
		}, http.StatusOK},
		{"post without token", func() *http.Request {
			return httptest.NewRequest("POST", "/", strings.NewReader("{}"))
		}, http.StatusForbidden},
		{"post with header", func() *http.Request {
			r := httptest.NewRequest("POST", "/", strings.NewReader("{}"))
			r.Header.Set(CSRFHeader, "tok-123")
			return r
		}, http.StatusOK},
		{"post with wrong header", func() *http.Request {
			r := httptest.NewRequest("POST", "/", strings.NewReader("{}"))
			r.Header.Set(CSRFHeader, "tok-124")
			return r
		}, http.StatusForbidden},
		{"post with form field", func() *http.Request {
			form := url.Values{CSRFFormField: {"tok-123"}}
			r := httptest.NewRequest("POST", "/", strings.NewReader(form.Encode()))
			r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			return r
		}, http.StatusOK},
		{"bearer is exempt", func() *http.Request {
			r := httptest.NewRequest("DELETE", "/", nil)
			return r.WithContext(WithPrincipal(r.Context(), &Principal{Source: SourceBearer, Role: model.RoleAdmin, UserID: 1}))
		}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			VerifyCSRF(okHandler()).ServeHTTP(rr, withSession(tt.build(), sess))
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
			if tt.want == http.StatusForbidden {
				if code := decodeCode(t, rr); code != model.CodeCSRFInvalid {
					t.Errorf("code = %q", code)
				}
			}
		})
	}
}

// ---------------------------------------------------------------------------
// RateLimit tests
// ---------------------------------------------------------------------------

func TestRateLimit(t *testing.T) {
	handler := RateLimit(2)(okHandler())
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/auth/login", nil)
		req.RemoteAddr = "203.0.113.9:5555"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	handler := RateLimit(0)(okHandler())
	for i := 0; i < 10; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("POST", "/", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, rr.Code)
		}
	}
}
