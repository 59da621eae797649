/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// Transition kinds recorded in the as-run log.
const (
	TransitionInitial   = "initial"
	TransitionCrossfade = "crossfade"
	TransitionHardCut   = "hard_cut"
	TransitionManual    = "manual"
)

// PlayLog stores executed plays (as-run log).
type PlayLog struct {
	ID         string `gorm:"type:char(36);primaryKey"`
	StationID  string `gorm:"type:varchar(64);index"`
	TrackID    string `gorm:"type:varchar(64);index"`
	Title      string
	Artist     string
	Category   string
	Deck       string    `gorm:"type:varchar(1)"`
	Transition string    `gorm:"type:varchar(16)"`
	StartedAt  time.Time `gorm:"index"`
}
