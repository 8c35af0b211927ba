// Package middleware provides HTTP middleware for the web layer.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ledgerlens/ledgerlens/internal/config"
)

type contextKey string

// userEmailKey stores the proxy-authenticated email in the request context.
const userEmailKey contextKey = "user_email"

// ProxyIdentity returns middleware that reads the authenticated user's email
// from the header the upstream reverse proxy sets.
//
// Identity verification itself happens upstream; this middleware only parses
// the header and rejects requests that arrive without one when auth is
// required. Some proxies prefix the value with an issuer
// ("accounts.google.com:user@example.com"); the prefix is stripped.
func ProxyIdentity(cfg *config.AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email := parseIdentityHeader(r.Header.Get(cfg.Header))

			if email == "" && cfg.Required {
				slog.Warn("auth: missing identity header",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","code":"auth_missing_identity"}`))
				return
			}

			ctx := context.WithValue(r.Context(), userEmailKey, email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// parseIdentityHeader extracts the email from a proxy identity header value,
// stripping an issuer prefix if present.
func parseIdentityHeader(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if i := strings.LastIndex(raw, ":"); i >= 0 {
		raw = raw[i+1:]
	}
	if !strings.Contains(raw, "@") {
		return ""
	}
	return raw
}

// UserEmail returns the proxy-authenticated email from the request context,
// or empty when the request carried none.
func UserEmail(ctx context.Context) string {
	email, _ := ctx.Value(userEmailKey).(string)
	return email
}
