package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/palmcove/resortd/internal/model"
	"github.com/palmcove/resortd/internal/session"
)

// CSRFHeader and CSRFFormField carry the session's CSRF token.
const (
	CSRFHeader    = "X-CSRF-Token"
	CSRFFormField = "csrf_token"
)

// VerifyCSRF rejects state-changing requests whose token does not match the
// session's. Safe methods and bearer-authenticated requests are exempt since
// neither can be forged by a third-party page. It must run after the session
// middleware and Authenticate.
func VerifyCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		if p := GetPrincipal(r.Context()); p != nil && p.Source == SourceBearer {
			next.ServeHTTP(w, r)
			return
		}

		sess := session.FromContext(r.Context())
		token := r.Header.Get(CSRFHeader)
		if token == "" {
			token = r.PostFormValue(CSRFFormField)
		}
		if sess == nil || sess.CSRFToken == "" || token == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(sess.CSRFToken)) != 1 {
			writeAuthError(w, http.StatusForbidden, model.CodeCSRFInvalid, "Your form has expired. Please reload the page and try again.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
