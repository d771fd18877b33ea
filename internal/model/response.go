package model

// Response is the envelope for every JSON endpoint. Success is always
// present; Code carries a stable machine-readable error key on failures.
type Response struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Code    string        `json:"code,omitempty"`
	Data    interface{}   `json:"data,omitempty"`
	Meta    *ResponseMeta `json:"meta,omitempty"`
}

// ResponseMeta contains pagination information for list responses.
type ResponseMeta struct {
	Count    int   `json:"count"`
	Total    int64 `json:"total"`
	Limit    int   `json:"limit,omitempty"`
	Offset   int   `json:"offset,omitempty"`
	Fallback bool  `json:"fallback,omitempty"`
}

// Error codes returned in Response.Code.
const (
	CodeInvalidCredentials = "invalid_credentials"
	CodeAccountLocked      = "account_locked"
	CodeCSRFInvalid        = "csrf_invalid"
	CodeUnauthenticated    = "unauthenticated"
	CodeForbidden          = "forbidden"
	CodeValidation         = "validation_failed"
	CodeNotFound           = "not_found"
	CodeConflict           = "conflict"
	CodeUnavailable        = "room_unavailable"
	CodeServerError        = "server_error"
	CodeRateLimited        = "rate_limited"
)
