/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the playout engine over HTTP/JSON and websockets.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/godtalktv/radio-pro-automation/internal/auth"
	"github.com/godtalktv/radio-pro-automation/internal/catalog"
	"github.com/godtalktv/radio-pro-automation/internal/deck"
	"github.com/godtalktv/radio-pro-automation/internal/events"
	"github.com/godtalktv/radio-pro-automation/internal/logbuffer"
	"github.com/godtalktv/radio-pro-automation/internal/playout"
	"github.com/godtalktv/radio-pro-automation/internal/queue"
	"github.com/godtalktv/radio-pro-automation/internal/version"
)

// API exposes HTTP handlers.
type API struct {
	jwtSecret []byte
	playout   *playout.Manager
	bus       *events.Bus
	logs      *logbuffer.Buffer
	logger    zerolog.Logger
}

// New creates the API router wrapper.
func New(jwtSecret []byte, manager *playout.Manager, bus *events.Bus, logger zerolog.Logger) *API {
	return &API{
		jwtSecret: jwtSecret,
		playout:   manager,
		bus:       bus,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// WithLogs exposes buf on the station logs endpoint.
func (a *API) WithLogs(buf *logbuffer.Buffer) *API {
	a.logs = buf
	return a
}

// Routes registers the API under /api/v1.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		r.Group(func(pr chi.Router) {
			pr.Use(auth.Middleware(a.jwtSecret))

			pr.Route("/stations/{stationID}", func(r chi.Router) {
				r.Use(a.stationAccess)

				r.Get("/state", a.handleState)
				r.Get("/next", a.handleNext)
				r.Get("/queue", a.handleQueueList)
				r.Get("/events", a.handleEvents)
				r.Get("/logs", a.handleLogs)

				r.Group(func(r chi.Router) {
					r.Use(auth.RequireRole(auth.RoleOperator))

					r.Post("/autodj", a.handleAutoDJ)
					r.Post("/crossfade", a.handleCrossfade)
					r.Put("/crossfader", a.handleCrossfader)

					r.Route("/decks/{deck}", func(r chi.Router) {
						r.Post("/load", a.handleDeckLoad)
						r.Post("/play", a.handleDeckPlay)
						r.Post("/pause", a.handleDeckPause)
						r.Post("/eject", a.handleDeckEject)
						r.Post("/seek", a.handleDeckSeek)
					})

					r.Post("/queue", a.handleQueueAdd)
					r.Delete("/queue", a.handleQueueClear)
					r.Delete("/queue/{index}", a.handleQueueRemove)
					r.Post("/queue/move", a.handleQueueMove)
				})
			})
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  version.Version,
		"stations": a.playout.Stations(),
	})
}

// stationAccess rejects claims restricted to another station.
func (a *API) stationAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.ClaimsFromContext(r.Context())
		if !ok || !claims.CanAccess(chi.URLParam(r, "stationID")) {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) session(w http.ResponseWriter, r *http.Request) (*playout.Session, bool) {
	s, err := a.playout.Get(chi.URLParam(r, "stationID"))
	if err != nil {
		a.writeErr(w, err)
		return nil, false
	}
	return s, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return false
	}
	return true
}

// writeErr maps engine errors to HTTP statuses.
func (a *API) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, playout.ErrStationNotFound):
		writeError(w, http.StatusNotFound, "station_not_found")
	case errors.Is(err, catalog.ErrTrackNotFound):
		writeError(w, http.StatusNotFound, "track_not_found")
	case errors.Is(err, deck.ErrUnknownDeck):
		writeError(w, http.StatusNotFound, "deck_not_found")
	case errors.Is(err, playout.ErrTransitionInProgress):
		writeError(w, http.StatusConflict, "transition_in_progress")
	case errors.Is(err, playout.ErrFaderBusy):
		writeError(w, http.StatusConflict, "fader_busy")
	case errors.Is(err, playout.ErrDeckOnAir):
		writeError(w, http.StatusConflict, "deck_on_air")
	case errors.Is(err, queue.ErrDuplicate):
		writeError(w, http.StatusConflict, "already_queued")
	case errors.Is(err, playout.ErrSelectionExhausted):
		writeError(w, http.StatusUnprocessableEntity, "selection_exhausted")
	case errors.Is(err, playout.ErrCrossfadeAbort):
		writeError(w, http.StatusUnprocessableEntity, "crossfade_aborted")
	case errors.Is(err, deck.ErrLoad):
		writeError(w, http.StatusUnprocessableEntity, "load_failed")
	case errors.Is(err, deck.ErrPlayback):
		writeError(w, http.StatusUnprocessableEntity, "playback_failed")
	case errors.Is(err, playout.ErrSessionClosed):
		writeError(w, http.StatusServiceUnavailable, "session_closed")
	default:
		a.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
