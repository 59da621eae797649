/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var testSecret = []byte("test-secret")

func issueTest(t *testing.T, roles ...string) string {
	t.Helper()
	token, err := Issue(testSecret, Claims{UserID: "u1", Roles: roles}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return token
}

func TestMiddlewareTokenSources(t *testing.T) {
	viewer := issueTest(t, RoleViewer)

	tests := []struct {
		name    string
		target  string
		header  string
		upgrade bool
		want    int
	}{
		{"bearer header", "/api/v1/stations/s1/state", "Bearer " + viewer, false, http.StatusOK},
		{"lowercase scheme", "/api/v1/stations/s1/state", "bearer " + viewer, false, http.StatusOK},
		{"missing", "/api/v1/stations/s1/state", "", false, http.StatusUnauthorized},
		{"basic scheme", "/api/v1/stations/s1/state", "Basic " + viewer, false, http.StatusUnauthorized},
		{"garbage", "/api/v1/stations/s1/state", "Bearer not-a-jwt", false, http.StatusUnauthorized},
		{"query on plain request", "/api/v1/stations/s1/state?token=" + viewer, "", false, http.StatusUnauthorized},
		{"query on events upgrade", "/api/v1/stations/s1/events?token=" + viewer, "", true, http.StatusOK},
		{"query on other upgrade", "/api/v1/stations/s1/state?token=" + viewer, "", true, http.StatusUnauthorized},
	}

	handler := Middleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, ok := ClaimsFromContext(r.Context()); !ok || c.UserID != "u1" {
			t.Errorf("claims missing from context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.upgrade {
				req.Header.Set("Upgrade", "websocket")
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tt.want, rr.Body.String())
			}
			if tt.want == http.StatusUnauthorized && rr.Header().Get("WWW-Authenticate") != "Bearer" {
				t.Fatalf("missing WWW-Authenticate challenge")
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	handler := Middleware(testSecret)(RequireRole(RoleOperator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	tests := []struct {
		name  string
		roles []string
		want  int
	}{
		{"operator", []string{RoleOperator}, http.StatusNoContent},
		{"viewer", []string{RoleViewer}, http.StatusForbidden},
		{"none", nil, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/stations/s1/crossfade", nil)
			req.Header.Set("Authorization", "Bearer "+issueTest(t, tt.roles...))
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}

	rr := httptest.NewRecorder()
	RequireRole(RoleOperator)(http.NotFoundHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("without claims: status = %d, want 401", rr.Code)
	}
}
