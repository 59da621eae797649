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
)

// LoadDeck loads a catalog track onto a deck by hand. The audible deck and
// the target of a running transition are refused.
func (s *Session) LoadDeck(ctx context.Context, id deck.ID, trackID string) error {
	track, err := s.catalog.Get(ctx, trackID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if err := s.checkDeckFreeLocked(id); err != nil {
		return err
	}
	if id == s.active && s.decks[id].State().IsPlaying {
		return ErrDeckOnAir
	}
	if s.pendingEject == id {
		s.cancelEjectLocked()
	}
	delete(s.held, id)
	if err := s.decks[id].Load(s.ctx, &track); err != nil {
		s.reportDeckErrorLocked(id, "load_failed", err)
		s.publishLocked()
		return err
	}
	s.publishLocked()
	return nil
}

// PlayDeck starts a deck by hand. When the active deck is silent and the
// user owns the fader, the played deck becomes active and the fader moves
// fully to it.
func (s *Session) PlayDeck(id deck.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	d := s.decks[id]
	before := d.State()
	if err := d.Play(); err != nil {
		s.reportDeckErrorLocked(id, "playback_failed", err)
		s.publishLocked()
		return err
	}
	delete(s.held, id)
	if id != s.active && d.State().Track != nil && !s.decks[s.active].State().IsPlaying && !s.transitioning && !s.settling && s.owner == ownerUser {
		if s.pendingEject == id {
			s.cancelEjectLocked()
		}
		s.active = id
		s.fader = faderEnd(id)
		s.applyGainsLocked()
	}
	if before.Track != nil && !before.IsPlaying && before.Progress == 0 {
		s.recordPlayLocked(id, before.Track, models.TransitionManual)
	}
	s.publishLocked()
	return nil
}

// PauseDeck pauses a deck. Pausing a paused deck changes nothing. A deck
// paused by hand is not restarted by the dead-air watchdog.
func (s *Session) PauseDeck(id deck.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	d := s.decks[id]
	d.Pause()
	if t := d.State().Track; t != nil {
		s.held[id] = t
	}
	s.publishLocked()
	return nil
}

// SeekDeck moves a deck's play head. Out of range positions are ignored.
func (s *Session) SeekDeck(id deck.ID, seconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	s.decks[id].Seek(seconds)
	s.publishLocked()
	return nil
}

// EjectDeck empties a deck. Decks taking part in a transition are refused.
func (s *Session) EjectDeck(id deck.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if err := s.checkDeckFreeLocked(id); err != nil {
		return err
	}
	if s.pendingEject == id {
		s.cancelEjectLocked()
	}
	delete(s.held, id)
	s.decks[id].Eject()
	s.preloadLocked()
	s.publishLocked()
	return nil
}

func (s *Session) checkDeckFreeLocked(id deck.ID) error {
	if (s.transitioning || s.settling) && id == s.active.Other() {
		return ErrTransitionInProgress
	}
	if s.transitioning && id == s.active {
		return ErrTransitionInProgress
	}
	return nil
}

// Enqueue adds a catalog track to the queue at index; an out of range index
// appends.
func (s *Session) Enqueue(ctx context.Context, trackID string, index int) error {
	track, err := s.catalog.Get(ctx, trackID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if err := s.queue.Enqueue(track, index); err != nil {
		return err
	}
	s.queueChangedLocked()
	return nil
}

// Dequeue removes the queue entry at index. It reports false when index is
// out of range.
func (s *Session) Dequeue(index int) (models.Track, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	track, ok := s.queue.Dequeue(index)
	if ok {
		s.queueChangedLocked()
	}
	return track, ok
}

// MoveQueue moves the entry at from to position to.
func (s *Session) MoveQueue(from, to int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok := s.queue.Move(from, to)
	if ok {
		s.queueChangedLocked()
	}
	return ok
}

// ClearQueue empties the queue.
func (s *Session) ClearQueue() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue.Clear()
	s.queueChangedLocked()
}

// Queue returns the queued tracks in play order.
func (s *Session) Queue() []models.Track {
	return s.queue.Items()
}

func (s *Session) queueChangedLocked() {
	s.preloadLocked()
	s.bus.Publish(events.EventQueueUpdated, events.Payload{
		"station_id": s.cfg.StationID,
		"queue":      s.queue.Items(),
	})
	s.publishLocked()
}
