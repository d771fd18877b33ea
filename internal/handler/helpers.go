package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/palmcove/resortd/internal/model"
	"github.com/palmcove/resortd/internal/query"
	"github.com/palmcove/resortd/internal/service"
	"github.com/palmcove/resortd/internal/store"
)

// genericFailure is shown for every unexpected error. Details go to the
// server log only.
const genericFailure = "Something went wrong. Please try again later."

// dateLayout is the wire format of check-in/check-out and report dates.
const dateLayout = "2006-01-02"

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeData writes a successful envelope around data.
func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, model.Response{Success: true, Data: data})
}

// writeMessage writes a successful envelope carrying only a message.
func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, model.Response{Success: true, Message: message})
}

// writeList writes a page of results with pagination metadata.
func writeList(w http.ResponseWriter, data interface{}, count int, total int64, page query.Page) {
	writeJSON(w, http.StatusOK, model.Response{
		Success: true,
		Data:    data,
		Meta: &model.ResponseMeta{
			Count:  count,
			Total:  total,
			Limit:  page.Limit,
			Offset: page.Offset,
		},
	})
}

// writeError writes a failure envelope with a stable error code.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, model.Response{Success: false, Code: code, Message: message})
}

// readJSON decodes the request body as JSON into v. Unknown fields are
// rejected. The body is closed after decoding regardless of success or
// failure.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		return err
	}
	return nil
}

// writeBadBody reports an undecodable request body.
func writeBadBody(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, model.CodeValidation, "Invalid request body: "+err.Error())
}

// writeServiceError maps errors from the service and store layers to HTTP
// responses. Unexpected errors are logged with op and answered generically.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, model.CodeValidation, verr.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, model.CodeNotFound, "Not found")
	case errors.Is(err, store.ErrInvalidFilter):
		writeError(w, http.StatusBadRequest, model.CodeValidation, err.Error())
	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusConflict, model.CodeConflict, "An account with this email already exists")
	case errors.Is(err, service.ErrRoomUnavailable):
		writeError(w, http.StatusConflict, model.CodeUnavailable, "The room is not available for the selected dates")
	case errors.Is(err, service.ErrInvalidTransition):
		writeError(w, http.StatusConflict, model.CodeConflict, "The booking cannot be moved to that status")
	default:
		status, code := classifyDBError(err)
		if status >= 500 {
			logger.Error(op+" failed", "error", err, "path", r.URL.Path)
			writeError(w, status, code, genericFailure)
			return
		}
		logger.Warn(op+" rejected", "error", err)
		writeError(w, status, code, "The request conflicts with existing data")
	}
}

// classifyDBError maps common database errors to an HTTP status and code.
func classifyDBError(err error) (int, string) {
	if errors.Is(err, store.ErrConflict) {
		return http.StatusConflict, model.CodeConflict
	}
	lower := strings.ToLower(err.Error())

	switch {
	// Unique constraint violations → 409 Conflict
	case strings.Contains(lower, "unique constraint") ||
		strings.Contains(lower, "duplicate key") ||
		strings.Contains(lower, "duplicate entry"):
		return http.StatusConflict, model.CodeConflict

	// Rows still referenced by bookings → 409 Conflict
	case strings.Contains(lower, "foreign key") ||
		strings.Contains(lower, "fk constraint"):
		return http.StatusConflict, model.CodeConflict

	// NOT NULL and CHECK violations → 400 Bad Request
	case strings.Contains(lower, "not null constraint") ||
		strings.Contains(lower, "null value in column") ||
		strings.Contains(lower, "column cannot be null") ||
		strings.Contains(lower, "check constraint"):
		return http.StatusBadRequest, model.CodeValidation

	default:
		return http.StatusInternalServerError, model.CodeServerError
	}
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// queryInt extracts an integer query parameter, returning defaultVal if the
// parameter is missing or cannot be parsed.
func queryInt(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// queryBoolPtr returns nil when key is absent, otherwise whether it is
// "true" or "1".
func queryBoolPtr(r *http.Request, key string) *bool {
	val := r.URL.Query().Get(key)
	if val == "" {
		return nil
	}
	b := val == "true" || val == "1"
	return &b
}

// parseDate parses a YYYY-MM-DD date. RFC 3339 timestamps are accepted too.
func parseDate(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, &service.ValidationError{Field: field, Message: "is required"}
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return model.DateOnly(t), nil
	}
	return time.Time{}, &service.ValidationError{Field: field, Message: "must be a date formatted YYYY-MM-DD"}
}

// cleanField runs query.CleanText and reports failures against field.
func cleanField(field, val string, maxLen int) (string, error) {
	out, err := query.CleanText(val, maxLen)
	if err != nil {
		return "", &service.ValidationError{Field: field, Message: err.Error()}
	}
	return out, nil
}

// clientIP returns the request's remote address without the port. RealIP
// runs earlier in the chain and may leave a bare address.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
