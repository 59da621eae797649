/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package deck

import "github.com/godtalktv/radio-pro-automation/internal/models"

// EventKind enumerates notifications a deck sends to its owner.
type EventKind int

const (
	EventLoaded EventKind = iota + 1
	EventLoadFailed
	EventProgress
	EventEnded
	EventPlaybackFailed
)

func (k EventKind) String() string {
	switch k {
	case EventLoaded:
		return "loaded"
	case EventLoadFailed:
		return "load_failed"
	case EventProgress:
		return "progress"
	case EventEnded:
		return "ended"
	case EventPlaybackFailed:
		return "playback_failed"
	}
	return "unknown"
}

// Event reports an asynchronous deck outcome. Track identifies the track the
// event refers to so the owner can discard events for content it has since
// replaced.
type Event struct {
	Deck     ID
	Kind     EventKind
	Track    *models.Track
	Elapsed  float64 // seconds
	Duration float64 // seconds
	Err      error
}
