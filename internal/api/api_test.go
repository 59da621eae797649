/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	ws "nhooyr.io/websocket"

	"github.com/godtalktv/radio-pro-automation/internal/auth"
	"github.com/godtalktv/radio-pro-automation/internal/catalog"
	"github.com/godtalktv/radio-pro-automation/internal/events"
	"github.com/godtalktv/radio-pro-automation/internal/media"
	"github.com/godtalktv/radio-pro-automation/internal/models"
	"github.com/godtalktv/radio-pro-automation/internal/playout"
	"github.com/godtalktv/radio-pro-automation/internal/queue"
	"github.com/godtalktv/radio-pro-automation/internal/queuestore"
)

var testSecret = []byte("api-test-secret")

type fixture struct {
	router  http.Handler
	session *playout.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tracks := []models.Track{
		{ID: "t1", Title: "One", Artist: "Alpha", Duration: 240, TrackType: models.TrackTypeMusic, MediaURL: "http://media.test/t1.mp3"},
		{ID: "t2", Title: "Two", Artist: "Beta", Duration: 240, TrackType: models.TrackTypeMusic, MediaURL: "http://media.test/t2.mp3"},
		{ID: "t3", Title: "Three", Artist: "Gamma", Duration: 240, TrackType: models.TrackTypeMusic, MediaURL: "http://media.test/t3.mp3"},
	}
	bus := events.NewBus()
	q := queue.New("s1", queuestore.NewMemoryStore(), queue.Options{Debounce: 10 * time.Millisecond}, zerolog.Nop())
	session := playout.NewSession(playout.Config{
		StationID:         "s1",
		CrossfadeDuration: 2 * time.Second,
		CrossfadeStep:     50 * time.Millisecond,
		SettleDelay:       50 * time.Millisecond,
		EjectGrace:        50 * time.Millisecond,
		ProgressInterval:  20 * time.Millisecond,
		WatchdogInterval:  50 * time.Millisecond,
		Location:          time.UTC,
	}, playout.Deps{
		Catalog:  catalog.NewMemory(tracks...),
		Queue:    q,
		Bus:      bus,
		Resolver: media.NewResolver(t.TempDir(), nil, zerolog.Nop()),
		Logger:   zerolog.Nop(),
	})

	manager := playout.NewManager(zerolog.Nop())
	if err := manager.Add(session); err != nil {
		t.Fatalf("add: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := manager.Start(ctx); err != nil {
		cancel()
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		_ = manager.Shutdown(context.Background())
	})

	r := chi.NewRouter()
	New(testSecret, manager, bus, zerolog.Nop()).Routes(r)
	return &fixture{router: r, session: session}
}

func token(t *testing.T, stationID string, roles ...string) string {
	t.Helper()
	tok, err := auth.Issue(testSecret, auth.Claims{UserID: "u1", Roles: roles, StationID: stationID}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return tok
}

func (f *fixture) do(t *testing.T, method, path, tok, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rr.Body.String(), err)
	}
	return body["error"]
}

func TestAccessControl(t *testing.T) {
	f := newFixture(t)
	operator := token(t, "", auth.RoleOperator)
	viewer := token(t, "", auth.RoleViewer)
	otherStation := token(t, "s2", auth.RoleOperator)

	tests := []struct {
		name   string
		method string
		path   string
		tok    string
		body   string
		want   int
	}{
		{"health is public", http.MethodGet, "/api/v1/health", "", "", http.StatusOK},
		{"state needs a token", http.MethodGet, "/api/v1/stations/s1/state", "", "", http.StatusUnauthorized},
		{"viewer reads state", http.MethodGet, "/api/v1/stations/s1/state", viewer, "", http.StatusOK},
		{"viewer reads logs", http.MethodGet, "/api/v1/stations/s1/logs?limit=5", viewer, "", http.StatusOK},
		{"bad log limit", http.MethodGet, "/api/v1/stations/s1/logs?limit=x", viewer, "", http.StatusBadRequest},
		{"viewer cannot crossfade", http.MethodPost, "/api/v1/stations/s1/crossfade", viewer, "", http.StatusForbidden},
		{"restricted token", http.MethodGet, "/api/v1/stations/s1/state", otherStation, "", http.StatusForbidden},
		{"unknown station", http.MethodGet, "/api/v1/stations/zz/state", operator, "", http.StatusNotFound},
		{"unknown deck", http.MethodPost, "/api/v1/stations/s1/decks/c/play", operator, "", http.StatusNotFound},
		{"bad json", http.MethodPut, "/api/v1/stations/s1/crossfader", operator, "{", http.StatusBadRequest},
		{"missing field", http.MethodPost, "/api/v1/stations/s1/autodj", operator, "{}", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(t, tt.method, tt.path, tt.tok, tt.body)
			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d body=%s", tt.want, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestStateAndCrossfader(t *testing.T) {
	f := newFixture(t)
	operator := token(t, "", auth.RoleOperator)

	rr := f.do(t, http.MethodPut, "/api/v1/stations/s1/crossfader", operator, `{"position":25}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("crossfader: %d %s", rr.Code, rr.Body.String())
	}

	rr = f.do(t, http.MethodGet, "/api/v1/stations/s1/state", operator, "")
	var snap map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap["crossfader_position"] != 25.0 {
		t.Fatalf("crossfader_position = %v", snap["crossfader_position"])
	}
	if snap["autodj_state"] != "off" || snap["active_deck"] != "A" {
		t.Fatalf("unexpected snapshot %v", snap)
	}
	for _, key := range []string{"deck_a", "deck_b", "queue", "play_history", "is_auto_dj", "is_transitioning", "current_track", "is_playing"} {
		if _, ok := snap[key]; !ok {
			t.Fatalf("snapshot missing %q", key)
		}
	}
}

func TestQueueEndpoints(t *testing.T) {
	f := newFixture(t)
	operator := token(t, "", auth.RoleOperator)

	// The first entry is pulled onto the inactive deck right away.
	for _, id := range []string{"t1", "t2", "t3"} {
		rr := f.do(t, http.MethodPost, "/api/v1/stations/s1/queue", operator, `{"track_id":"`+id+`"}`)
		if rr.Code != http.StatusCreated {
			t.Fatalf("enqueue %s: %d %s", id, rr.Code, rr.Body.String())
		}
	}

	rr := f.do(t, http.MethodPost, "/api/v1/stations/s1/queue", operator, `{"track_id":"t3"}`)
	if rr.Code != http.StatusConflict || errorCode(t, rr) != "already_queued" {
		t.Fatalf("duplicate: %d %s", rr.Code, rr.Body.String())
	}
	rr = f.do(t, http.MethodPost, "/api/v1/stations/s1/queue", operator, `{"track_id":"nope"}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown track: %d", rr.Code)
	}

	rr = f.do(t, http.MethodPost, "/api/v1/stations/s1/queue/move", operator, `{"from":1,"to":0}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("move: %d %s", rr.Code, rr.Body.String())
	}
	var body struct {
		Queue []models.Track `json:"queue"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Queue) != 2 || body.Queue[0].ID != "t3" || body.Queue[1].ID != "t2" {
		t.Fatalf("unexpected queue after move: %+v", body.Queue)
	}

	rr = f.do(t, http.MethodDelete, "/api/v1/stations/s1/queue/9", operator, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("remove out of range: %d", rr.Code)
	}
	rr = f.do(t, http.MethodDelete, "/api/v1/stations/s1/queue/0", operator, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("remove: %d", rr.Code)
	}

	rr = f.do(t, http.MethodGet, "/api/v1/stations/s1/next", operator, "")
	var preview struct {
		Queued *models.Track `json:"queued"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &preview); err != nil {
		t.Fatalf("decode next: %v", err)
	}
	if preview.Queued == nil || preview.Queued.ID != "t2" {
		t.Fatalf("next should preview queue head t2, got %+v", preview.Queued)
	}
	rr = f.do(t, http.MethodDelete, "/api/v1/stations/s1/queue", operator, "")
	if rr.Code != http.StatusOK || len(f.session.Queue()) != 0 {
		t.Fatalf("clear: %d, %d left", rr.Code, len(f.session.Queue()))
	}

	rr = f.do(t, http.MethodGet, "/api/v1/stations/s1/next", operator, "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "candidates") || strings.Contains(rr.Body.String(), "queued") {
		t.Fatalf("next: %d %s", rr.Code, rr.Body.String())
	}
}

func TestCrossfadeConflicts(t *testing.T) {
	f := newFixture(t)
	operator := token(t, "", auth.RoleOperator)

	rr := f.do(t, http.MethodPost, "/api/v1/stations/s1/autodj", operator, `{"enabled":true}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("enable: %d %s", rr.Code, rr.Body.String())
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		snap := f.session.Snapshot()
		if snap.DeckA.IsPlaying && snap.DeckB.Track != nil && !snap.DeckB.IsLoading {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("decks never became ready: %+v", snap)
		}
		time.Sleep(10 * time.Millisecond)
	}

	rr = f.do(t, http.MethodPost, "/api/v1/stations/s1/crossfade", operator, "")
	if rr.Code != http.StatusAccepted {
		t.Fatalf("crossfade: %d %s", rr.Code, rr.Body.String())
	}
	rr = f.do(t, http.MethodPost, "/api/v1/stations/s1/crossfade", operator, "")
	if rr.Code != http.StatusConflict || errorCode(t, rr) != "transition_in_progress" {
		t.Fatalf("second crossfade: %d %s", rr.Code, rr.Body.String())
	}
	rr = f.do(t, http.MethodPut, "/api/v1/stations/s1/crossfader", operator, `{"position":0}`)
	if rr.Code != http.StatusConflict || errorCode(t, rr) != "fader_busy" {
		t.Fatalf("manual fader during fade: %d %s", rr.Code, rr.Body.String())
	}
	rr = f.do(t, http.MethodPost, "/api/v1/stations/s1/decks/b/eject", operator, "")
	if rr.Code != http.StatusConflict {
		t.Fatalf("eject target during fade: %d %s", rr.Code, rr.Body.String())
	}

	rr = f.do(t, http.MethodPost, "/api/v1/stations/s1/autodj", operator, `{"enabled":false}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("disable: %d", rr.Code)
	}
	if snap := f.session.Snapshot(); snap.IsAutoDJ || snap.CrossfaderPosition != 0 {
		t.Fatalf("disable should stop automation: %+v", snap)
	}
}

func TestEventsWebSocketSendsSnapshot(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/stations/s1/events?token=" + token(t, "", auth.RoleViewer)
	conn, _, err := ws.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(ws.StatusNormalClosure, "")

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != string(events.EventSessionState) || msg.Payload["station_id"] != "s1" {
		t.Fatalf("unexpected first message %s", data)
	}

	if err := f.session.SetCrossfader(40); err != nil {
		t.Fatalf("fader: %v", err)
	}
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read update: %v", err)
		}
		if strings.Contains(string(data), `"crossfader_position":40`) {
			return
		}
	}
}
