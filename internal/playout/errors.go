/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playout

import "errors"

var (
	// ErrSelectionExhausted means the library offers no music to start AutoDJ.
	ErrSelectionExhausted = errors.New("no playable music in the library")

	// ErrCrossfadeAbort means the target deck could not be populated. The
	// active deck keeps playing.
	ErrCrossfadeAbort = errors.New("crossfade aborted: target deck could not be loaded")

	// ErrTransitionInProgress rejects a transition while another is running.
	ErrTransitionInProgress = errors.New("transition already in progress")

	// ErrFaderBusy rejects manual fader writes while the engine owns the fader.
	ErrFaderBusy = errors.New("crossfader is under automation")

	// ErrDeckOnAir rejects loading over the deck that is currently audible.
	ErrDeckOnAir = errors.New("deck is on air")

	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = errors.New("session closed")

	// ErrStationNotFound is returned by the manager for unknown stations.
	ErrStationNotFound = errors.New("station not found")
)
