package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gyaneshwarpardhi/piwebhook/internal/auditlog"
	"github.com/gyaneshwarpardhi/piwebhook/internal/payment"
)

// internalErrorResponse is all a client learns about an internal fault.
type internalErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Reference string `json:"reference"`
}

// Recover is the last-resort handler for panics escaping a request. Expected
// failures never reach it; they are returned as errors by the components.
func Recover(audit *auditlog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				WriteInternalError(w, r, audit, fmt.Errorf("panic: %v", rec), string(debug.Stack()))
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// WriteInternalError logs err at CRITICAL with a fresh reference token and
// answers 500 with only that reference.
func WriteInternalError(w http.ResponseWriter, r *http.Request, audit *auditlog.Logger, err error, stack string) {
	ref := payment.NewReference(payment.PrefixError)
	data := map[string]interface{}{
		"reference":  ref,
		"error":      auditlog.Clip(err.Error(), auditlog.MaxFieldLen),
		"method":     r.Method,
		"path":       r.URL.Path,
		"request_id": GetRequestID(r.Context()),
	}
	if stack != "" {
		data["stack"] = stack
	}
	audit.Critical(r.Context(), auditlog.TagInternalError, data)
	slog.ErrorContext(r.Context(), "internal error", "reference", ref, "err", err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(internalErrorResponse{
		Success:   false,
		Error:     "Internal server error",
		Reference: ref,
	})
}
