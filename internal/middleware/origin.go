package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gyaneshwarpardhi/piwebhook/internal/auditlog"
)

// Origin records the caller's address and user agent in the context so that every
// audit event written while serving the request carries them.
func Origin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := auditlog.WithOrigin(r.Context(), auditlog.Origin{
			IP:        ClientIP(r),
			UserAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIP extracts the client IP address from an HTTP request.
// It checks X-Forwarded-For, X-Real-IP, and RemoteAddr in that order, and strips
// any port.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := xff
		if idx := strings.Index(xff, ","); idx != -1 {
			first = xff[:idx]
		}
		if first = strings.TrimSpace(first); first != "" {
			return stripPort(first)
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return stripPort(xri)
	}
	return stripPort(r.RemoteAddr)
}

func stripPort(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
