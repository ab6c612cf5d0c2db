// Package response provides helpers for writing consistent HTTP responses.
//
// The dashboard answers browsers with HTML, but health checks, rejected
// actions and API-style clients get JSON in one envelope:
//
//	{ "status": "error", "error": "dashboard: admin required" }
//
// Validation failures add the per-field messages:
//
//	{ "status": "error", "error": "validation failed", "fields": { "email": "Email is not valid" } }
package response

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aanand-mishra/student-dashboard/internal/validate"
)

// Response is the standard envelope.
type Response struct {
	Status string            `json:"status"`
	Error  string            `json:"error,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// WriteJSON writes data as JSON with the given status code.
//
// Header() → WriteHeader() → body, in that order: headers are locked once
// the status line is written.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// OK is the body of a successful health check.
func OK() Response {
	return Response{Status: StatusOK}
}

// GeneralError wraps any error into the envelope.
func GeneralError(err error) Response {
	return Response{
		Status: StatusError,
		Error:  err.Error(),
	}
}

// ValidationError carries the field-scoped messages of a failed form.
func ValidationError(errs validate.FieldErrors) Response {
	return Response{
		Status: StatusError,
		Error:  "validation failed",
		Fields: errs,
	}
}

// WantsJSON reports whether the client asked for JSON rather than HTML.
func WantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

// Error answers a failed request: JSON for clients that asked for it,
// plain text otherwise.
func Error(w http.ResponseWriter, r *http.Request, status int, err error) {
	if WantsJSON(r) {
		_ = WriteJSON(w, status, GeneralError(err))
		return
	}
	http.Error(w, err.Error(), status)
}
