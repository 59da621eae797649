/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/godtalktv/radio-pro-automation/internal/deck"
	"github.com/godtalktv/radio-pro-automation/internal/logbuffer"
	"github.com/godtalktv/radio-pro-automation/internal/selector"
)

func (a *API) handleState(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (a *API) handleAutoDJ(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled_required")
		return
	}

	var err error
	if *req.Enabled {
		err = s.Enable(r.Context())
	} else {
		err = s.Disable()
	}
	if err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (a *API) handleCrossfade(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	if err := s.StartCrossfade(r.Context()); err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.Snapshot())
}

func (a *API) handleCrossfader(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Position *float64 `json:"position"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Position == nil {
		writeError(w, http.StatusBadRequest, "position_required")
		return
	}
	if err := s.SetCrossfader(*req.Position); err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (a *API) deckParam(w http.ResponseWriter, r *http.Request) (deck.ID, bool) {
	id, err := deck.ParseID(chi.URLParam(r, "deck"))
	if err != nil {
		a.writeErr(w, err)
		return "", false
	}
	return id, true
}

func (a *API) handleDeckLoad(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	id, ok := a.deckParam(w, r)
	if !ok {
		return
	}
	var req struct {
		TrackID string `json:"track_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.TrackID == "" {
		writeError(w, http.StatusBadRequest, "track_id_required")
		return
	}
	if err := s.LoadDeck(r.Context(), id, req.TrackID); err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.Snapshot())
}

func (a *API) handleDeckPlay(w http.ResponseWriter, r *http.Request) {
	a.deckAction(w, r, func(s deckController, id deck.ID) error { return s.PlayDeck(id) })
}

func (a *API) handleDeckPause(w http.ResponseWriter, r *http.Request) {
	a.deckAction(w, r, func(s deckController, id deck.ID) error { return s.PauseDeck(id) })
}

func (a *API) handleDeckEject(w http.ResponseWriter, r *http.Request) {
	a.deckAction(w, r, func(s deckController, id deck.ID) error { return s.EjectDeck(id) })
}

func (a *API) handleDeckSeek(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seconds *float64 `json:"seconds"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Seconds == nil {
		writeError(w, http.StatusBadRequest, "seconds_required")
		return
	}
	a.deckAction(w, r, func(s deckController, id deck.ID) error { return s.SeekDeck(id, *req.Seconds) })
}

type deckController interface {
	PlayDeck(deck.ID) error
	PauseDeck(deck.ID) error
	EjectDeck(deck.ID) error
	SeekDeck(deck.ID, float64) error
}

func (a *API) deckAction(w http.ResponseWriter, r *http.Request, fn func(deckController, deck.ID) error) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	id, ok := a.deckParam(w, r)
	if !ok {
		return
	}
	if err := fn(s, id); err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (a *API) handleNext(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	candidates, err := s.Shortlist()
	if errors.Is(err, selector.ErrNoTrack) {
		candidates, err = []selector.Candidate{}, nil
	}
	if err != nil {
		a.writeErr(w, err)
		return
	}
	resp := map[string]any{"candidates": candidates}
	// queued tracks take precedence over selector picks
	if head, ok := s.QueueHead(); ok {
		resp["queued"] = head
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleQueueList(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"queue": s.Queue()})
}

func (a *API) handleQueueAdd(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var req struct {
		TrackID string `json:"track_id"`
		Index   *int   `json:"index"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.TrackID == "" {
		writeError(w, http.StatusBadRequest, "track_id_required")
		return
	}
	index := -1
	if req.Index != nil {
		index = *req.Index
	}
	if err := s.Enqueue(r.Context(), req.TrackID, index); err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"queue": s.Queue()})
}

func (a *API) handleQueueRemove(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_index")
		return
	}
	if _, ok := s.Dequeue(index); !ok {
		writeError(w, http.StatusNotFound, "queue_index_not_found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"queue": s.Queue()})
}

func (a *API) handleQueueClear(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	s.ClearQueue()
	writeJSON(w, http.StatusOK, map[string]any{"queue": s.Queue()})
}

func (a *API) handleQueueMove(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var req struct {
		From *int `json:"from"`
		To   *int `json:"to"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.From == nil || req.To == nil {
		writeError(w, http.StatusBadRequest, "from_and_to_required")
		return
	}
	if !s.MoveQueue(*req.From, *req.To) {
		writeError(w, http.StatusNotFound, "queue_index_not_found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"queue": s.Queue()})
}

func (a *API) handleLogs(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.session(w, r); !ok {
		return
	}
	if a.logs == nil {
		writeJSON(w, http.StatusOK, map[string]any{"entries": []logbuffer.Entry{}})
		return
	}

	q := r.URL.Query()
	filter := logbuffer.Filter{
		StationID: chi.URLParam(r, "stationID"),
		Level:     q.Get("level"),
		Component: q.Get("component"),
		Search:    q.Get("q"),
		Limit:     200,
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit")
			return
		}
		filter.Limit = min(n, 1000)
	}
	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_since")
			return
		}
		filter.Since = since
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": a.logs.Query(filter)})
}
