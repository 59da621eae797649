/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/godtalktv/radio-pro-automation/internal/auth"
	"github.com/godtalktv/radio-pro-automation/internal/config"
	"github.com/godtalktv/radio-pro-automation/internal/logbuffer"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Environment:       "test",
		HTTPBind:          "127.0.0.1",
		HTTPPort:          0,
		MetricsBind:       "127.0.0.1:0",
		DBBackend:         config.DatabaseSQLite,
		DBDSN:             ":memory:",
		JWTSigningKey:     "server-test-secret",
		MediaRoot:         t.TempDir(),
		StationIDs:        []string{"north", "south"},
		StationTimezone:   "UTC",
		CrossfadeDuration: time.Second,
		CrossfadeStep:     50 * time.Millisecond,
		SettleDelay:       100 * time.Millisecond,
		EjectGrace:        100 * time.Millisecond,
		ProgressInterval:  50 * time.Millisecond,
		WatchdogInterval:  50 * time.Millisecond,
		LibraryRefresh:    time.Minute,
		QueueDebounce:     10 * time.Millisecond,
		QueueRetryBackoff: 50 * time.Millisecond,
		QueueWritesPerSec: 10,
		QueueWriteBurst:   2,
	}
}

func TestServerServesStations(t *testing.T) {
	cfg := testConfig(t)
	logs := logbuffer.New(100)
	logger := zerolog.New(logbuffer.NewWriter(logs, nil))
	srv, err := New(context.Background(), cfg, logs, logger)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() {
		if err := srv.Close(context.Background()); err != nil {
			t.Errorf("close: %v", err)
		}
	})

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	var health struct {
		Stations []string `json:"stations"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if len(health.Stations) != 2 || health.Stations[0] != "north" || health.Stations[1] != "south" {
		t.Fatalf("unexpected stations %v", health.Stations)
	}

	tok, err := auth.Issue([]byte(cfg.JWTSigningKey), auth.Claims{UserID: "u1", Roles: []string{auth.RoleViewer}}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stations/south/state", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("state: %d %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options=%q, want nosniff", got)
	}

	if logs.Len() == 0 {
		t.Fatal("expected startup logs captured")
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	h := securityHeadersMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name     string
		proto    string
		wantHSTS bool
	}{
		{"plain http", "", false},
		{"behind tls proxy", "https", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
			if tt.proto != "" {
				req.Header.Set("X-Forwarded-Proto", tt.proto)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if got := rr.Header().Get("X-Frame-Options"); got != "DENY" {
				t.Fatalf("X-Frame-Options=%q, want DENY", got)
			}
			if got := rr.Header().Get("Content-Security-Policy"); got == "" {
				t.Fatal("expected Content-Security-Policy header")
			}
			hsts := rr.Header().Get("Strict-Transport-Security")
			if tt.wantHSTS && hsts == "" {
				t.Fatal("expected HSTS header")
			}
			if !tt.wantHSTS && hsts != "" {
				t.Fatalf("expected no HSTS, got %q", hsts)
			}
		})
	}
}
