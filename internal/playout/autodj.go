/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playout

import (
	"context"

	"github.com/godtalktv/radio-pro-automation/internal/deck"
	"github.com/godtalktv/radio-pro-automation/internal/events"
	"github.com/godtalktv/radio-pro-automation/internal/models"
	"github.com/godtalktv/radio-pro-automation/internal/telemetry"
)

// Enable turns AutoDJ on. With both decks silent it starts an initial track
// on deck A. It fails with ErrSelectionExhausted when the library holds no
// music, leaving AutoDJ off.
func (s *Session) Enable(ctx context.Context) error {
	_, span := telemetry.StartSpan(ctx, telemetry.ScopePlayout, "playout.autodj.enable", s.cfg.StationID)

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.enableLocked()
	telemetry.EndSpan(span, err)
	return err
}

func (s *Session) enableLocked() error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.state != StateOff {
		return nil
	}

	a := s.decks[deck.A].State()
	b := s.decks[deck.B].State()
	switch {
	case !a.IsPlaying && !b.IsPlaying:
		if err := s.startInitialLocked(); err != nil {
			s.err = err.Error()
			s.publishLocked()
			return err
		}
	case !s.decks[s.active].State().IsPlaying:
		s.active = s.active.Other()
	}

	s.err = ""
	if err := s.setStateLocked(StateOnIdle); err != nil {
		return err
	}
	telemetry.AutoDJActive.WithLabelValues(s.cfg.StationID).Set(1)
	s.logger.Info().Str("active", string(s.active)).Msg("autodj enabled")

	s.preloadLocked()
	s.publishLocked()
	s.bus.Publish(events.EventAutoDJ, events.Payload{
		"station_id": s.cfg.StationID,
		"enabled":    true,
	})
	return nil
}

func (s *Session) startInitialLocked() error {
	track, err := s.pickLocked()
	if err != nil {
		s.logger.Warn().Int("library", len(s.library)).Msg("autodj has nothing to play")
		return err
	}

	if s.pendingEject == deck.A {
		s.cancelEjectLocked()
	}
	d := s.decks[deck.A]
	if err := d.Load(s.ctx, &track); err != nil {
		s.reportDeckErrorLocked(deck.A, "load_failed", err)
		return err
	}
	if err := d.Play(); err != nil {
		s.reportDeckErrorLocked(deck.A, "playback_failed", err)
		return err
	}

	s.active = deck.A
	s.fader = faderMin
	s.applyGainsLocked()
	s.recordPlayLocked(deck.A, d.State().Track, models.TransitionInitial)
	return nil
}

// Disable turns AutoDJ off. A running fade or settle window is cancelled,
// the fader snaps to center and a pending eject happens right away.
func (s *Session) Disable() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.state == StateOff {
		return nil
	}

	s.cancelFadeLocked()
	s.owner = ownerUser
	s.fader = 0
	s.applyGainsLocked()
	if err := s.setStateLocked(StateOff); err != nil {
		return err
	}
	telemetry.AutoDJActive.WithLabelValues(s.cfg.StationID).Set(0)
	s.logger.Info().Msg("autodj disabled")

	s.finishEjectLocked()
	s.publishLocked()
	s.bus.Publish(events.EventAutoDJ, events.Payload{
		"station_id": s.cfg.StationID,
		"enabled":    false,
	})
	return nil
}

func (s *Session) setStateLocked(to State) error {
	if s.state == to {
		return nil
	}
	if err := checkTransition(s.state, to); err != nil {
		s.logger.Error().Err(err).Msg("autodj state rejected")
		return err
	}
	s.logger.Debug().Str("from", string(s.state)).Str("to", string(to)).Msg("autodj state")
	s.state = to
	return nil
}
