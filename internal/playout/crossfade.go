/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playout

import (
	"context"
	"time"

	"github.com/godtalktv/radio-pro-automation/internal/deck"
	"github.com/godtalktv/radio-pro-automation/internal/events"
	"github.com/godtalktv/radio-pro-automation/internal/models"
	"github.com/godtalktv/radio-pro-automation/internal/telemetry"
)

// StartCrossfade fades from the active deck to the other one. An empty
// target is loaded first and the fade begins after the settle window.
func (s *Session) StartCrossfade(ctx context.Context) error {
	_, span := telemetry.StartSpan(ctx, telemetry.ScopePlayout, "playout.crossfade", s.cfg.StationID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		telemetry.EndSpan(span, ErrSessionClosed)
		return ErrSessionClosed
	}
	err := s.startCrossfadeLocked(models.TransitionCrossfade)
	telemetry.EndSpan(span, err)
	if err == nil {
		s.publishLocked()
	}
	return err
}

func (s *Session) startCrossfadeLocked(kind string) error {
	if s.transitioning || s.settling {
		return ErrTransitionInProgress
	}

	from := s.active
	to := from.Other()
	target := s.decks[to]

	if s.pendingEject == to {
		s.cancelEjectLocked()
		target.Eject()
	}

	if target.Empty() {
		if err := s.populateLocked(to, false); err != nil {
			s.abortLocked(from, to, "target_empty")
			return err
		}
	}
	if target.State().IsLoading {
		s.settleLocked(from, to, kind)
		return nil
	}
	return s.executeLocked(from, to, kind)
}

// settleLocked holds the fader for the engine while the target loads.
func (s *Session) settleLocked(from, to deck.ID, kind string) {
	s.settling = true
	s.owner = ownerEngine
	s.fadeGen++
	gen := s.fadeGen
	s.settleTimer = time.AfterFunc(s.cfg.SettleDelay, func() { s.settled(gen, from, to, kind) })
	s.logger.Debug().Str("from", string(from)).Str("to", string(to)).Dur("settle", s.cfg.SettleDelay).Msg("crossfade waiting for target")
}

func (s *Session) settled(gen uint64, from, to deck.ID, kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.fadeGen || !s.settling {
		return
	}
	s.settling = false
	s.settleTimer = nil
	s.owner = ownerUser

	st := s.decks[to].State()
	if s.active != from || st.Track == nil || st.IsLoading {
		s.abortLocked(from, to, "target_not_ready")
		s.preloadLocked()
		s.publishLocked()
		return
	}
	if err := s.executeLocked(from, to, kind); err != nil {
		s.logger.Debug().Err(err).Msg("crossfade not executed")
	}
	s.publishLocked()
}

func (s *Session) executeLocked(from, to deck.ID, kind string) error {
	target := s.decks[to]
	if err := target.Play(); err != nil {
		s.reportDeckErrorLocked(to, "playback_failed", err)
		s.abortLocked(from, to, "target_playback")
		return ErrCrossfadeAbort
	}

	s.transitioning = true
	s.owner = ownerEngine
	s.fadeKind = kind
	if s.state == StateOnIdle {
		_ = s.setStateLocked(StateOnTransitioning)
	}
	s.recordPlayLocked(to, target.State().Track, kind)

	s.fadeGen++
	gen := s.fadeGen
	start, end := s.fader, faderEnd(to)
	go s.runFade(gen, start, end, from, to)

	s.logger.Info().Str("from", string(from)).Str("to", string(to)).Dur("duration", s.cfg.CrossfadeDuration).Msg("crossfade started")
	s.bus.Publish(events.EventTransition, events.Payload{
		"station_id": s.cfg.StationID,
		"kind":       kind,
		"phase":      "started",
		"from":       string(from),
		"to":         string(to),
	})
	return nil
}

func (s *Session) abortLocked(from, to deck.ID, reason string) {
	s.owner = ownerUser
	telemetry.CrossfadeAbortsTotal.WithLabelValues(s.cfg.StationID).Inc()
	s.logger.Warn().Str("from", string(from)).Str("to", string(to)).Str("reason", reason).Msg("crossfade aborted")
	s.bus.Publish(events.EventTransition, events.Payload{
		"station_id": s.cfg.StationID,
		"kind":       models.TransitionCrossfade,
		"phase":      "aborted",
		"from":       string(from),
		"to":         string(to),
		"reason":     reason,
	})
}

// runFade animates the fader linearly from start to end. It stops as soon
// as gen is superseded.
func (s *Session) runFade(gen uint64, start, end float64, from, to deck.ID) {
	steps := int(s.cfg.CrossfadeDuration / s.cfg.CrossfadeStep)
	if steps < 1 {
		steps = 1
	}
	ticker := time.NewTicker(s.cfg.CrossfadeStep)
	defer ticker.Stop()

	for i := 1; i <= steps; i++ {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		if s.closed || gen != s.fadeGen {
			s.mu.Unlock()
			return
		}
		if i == steps {
			s.completeLocked(from, to)
			s.mu.Unlock()
			return
		}
		s.fader = start + (end-start)*float64(i)/float64(steps)
		s.applyGainsLocked()
		s.publishLocked()
		s.mu.Unlock()
	}
}

func (s *Session) completeLocked(from, to deck.ID) {
	s.fader = faderEnd(to)
	s.applyGainsLocked()
	s.transitioning = false
	s.owner = ownerUser
	if s.state == StateOnTransitioning {
		_ = s.setStateLocked(StateOnIdle)
	}
	s.active = to

	s.pendingEject = from
	s.ejectGen++
	gen := s.ejectGen
	s.ejectTimer = time.AfterFunc(s.cfg.EjectGrace, func() { s.finishEject(gen) })

	telemetry.TransitionsTotal.WithLabelValues(s.cfg.StationID, s.fadeKind).Inc()
	s.logger.Info().Str("active", string(to)).Msg("crossfade completed")
	s.bus.Publish(events.EventTransition, events.Payload{
		"station_id": s.cfg.StationID,
		"kind":       s.fadeKind,
		"phase":      "completed",
		"from":       string(from),
		"to":         string(to),
	})
	s.publishLocked()
}

func (s *Session) finishEject(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.ejectGen {
		return
	}
	s.finishEjectLocked()
}

// finishEjectLocked ejects the silent deck left over by a crossfade.
func (s *Session) finishEjectLocked() {
	id := s.pendingEject
	if id == "" {
		return
	}
	s.cancelEjectLocked()
	s.decks[id].Eject()
	s.preloadLocked()
	s.publishLocked()
}

func (s *Session) cancelEjectLocked() {
	s.ejectGen++
	if s.ejectTimer != nil {
		s.ejectTimer.Stop()
		s.ejectTimer = nil
	}
	s.pendingEject = ""
}

// cancelFadeLocked stops a running fade or settle window.
func (s *Session) cancelFadeLocked() {
	s.fadeGen++
	if s.settleTimer != nil {
		s.settleTimer.Stop()
		s.settleTimer = nil
	}
	s.settling = false
	s.transitioning = false
}
