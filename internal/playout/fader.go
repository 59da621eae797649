/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playout

import (
	"math"

	"github.com/godtalktv/radio-pro-automation/internal/deck"
)

const (
	faderMin = -100.0
	faderMax = 100.0
)

type faderOwner int

const (
	ownerUser faderOwner = iota
	ownerEngine
)

func (o faderOwner) String() string {
	if o == ownerEngine {
		return "engine"
	}
	return "user"
}

// Gains maps a crossfader position in [-100, 100] to the linear gains of
// decks A and B on an equal-power curve. Out of range positions are clamped.
func Gains(position float64) (gainA, gainB float64) {
	p := clampFader(position) / faderMax
	switch p {
	case -1:
		return 1, 0
	case 1:
		return 0, 1
	}
	gainA = math.Cos((p + 1) * math.Pi / 4)
	gainB = math.Cos((1 - p) * math.Pi / 4)
	return gainA, gainB
}

// faderEnd is the terminal position that makes id fully audible.
func faderEnd(id deck.ID) float64 {
	if id == deck.B {
		return faderMax
	}
	return faderMin
}

func clampFader(position float64) float64 {
	if math.IsNaN(position) {
		return 0
	}
	return math.Max(faderMin, math.Min(faderMax, position))
}

// SetCrossfader moves the fader by hand. It fails with ErrFaderBusy while a
// crossfade owns the fader.
func (s *Session) SetCrossfader(position float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.owner == ownerEngine {
		return ErrFaderBusy
	}
	s.fader = clampFader(position)
	s.applyGainsLocked()
	s.publishLocked()
	return nil
}

func (s *Session) applyGainsLocked() {
	gainA, gainB := Gains(s.fader)
	s.decks[deck.A].SetGain(gainA)
	s.decks[deck.B].SetGain(gainB)
	reportFader(s.cfg.StationID, s.fader)
}
