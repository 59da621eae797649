/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package auth

import (
	"net/http"
	"path"
	"strings"
)

// Middleware authenticates requests with an HS256 bearer token and stores
// the claims on the request context.
func Middleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := tokenFrom(r)
			if raw == "" {
				deny(w, http.StatusUnauthorized)
				return
			}
			claims, err := Parse(secret, raw)
			if err != nil {
				deny(w, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole admits only claims holding role. It must run after Middleware.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			switch {
			case !ok:
				deny(w, http.StatusUnauthorized)
			case !claims.HasRole(role):
				deny(w, http.StatusForbidden)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func deny(w http.ResponseWriter, status int) {
	body := `{"error":"forbidden"}`
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
		body = `{"error":"unauthorized"}`
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// tokenFrom reads the Authorization header. Browsers cannot set headers on
// a websocket handshake, so the events stream alone may pass ?token=.
func tokenFrom(r *http.Request) string {
	if scheme, tok, ok := strings.Cut(r.Header.Get("Authorization"), " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(tok)
	}
	upgrade := strings.EqualFold(strings.TrimSpace(r.Header.Get("Upgrade")), "websocket")
	if upgrade && path.Base(path.Clean(r.URL.Path)) == "events" {
		return strings.TrimSpace(r.URL.Query().Get("token"))
	}
	return ""
}
