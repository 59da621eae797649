/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"strings"
	"time"
)

// TrackType enumerates catalog content types.
type TrackType string

const (
	TrackTypeMusic      TrackType = "music"
	TrackTypeStationID  TrackType = "station_id"
	TrackTypeCommercial TrackType = "commercial"
	TrackTypePromo      TrackType = "promo"
	TrackTypeVoiceTrack TrackType = "voice_track"
	TrackTypeGapFiller  TrackType = "gap_filler"
)

// EnergyLevel is the programming energy of a track. Empty means unset.
type EnergyLevel string

const (
	EnergyLow    EnergyLevel = "low"
	EnergyMedium EnergyLevel = "medium"
	EnergyHigh   EnergyLevel = "high"
)

// Track is an immutable catalog entry.
type Track struct {
	ID             string      `gorm:"type:varchar(64);primaryKey" json:"id" yaml:"id"`
	StationID      string      `gorm:"type:varchar(64);index" json:"station_id,omitempty" yaml:"station_id"`
	Title          string      `gorm:"index" json:"title" yaml:"title"`
	Artist         string      `gorm:"index" json:"artist" yaml:"artist"`
	Album          string      `json:"album,omitempty" yaml:"album"`
	Duration       float64     `json:"duration" yaml:"duration"` // seconds
	TrackType      TrackType   `gorm:"type:varchar(16);index" json:"track_type" yaml:"track_type"`
	Category       string      `gorm:"index" json:"category,omitempty" yaml:"category"`
	EnergyLevel    EnergyLevel `gorm:"type:varchar(8)" json:"energy_level,omitempty" yaml:"energy_level"`
	BPM            float64     `json:"bpm,omitempty" yaml:"bpm"`
	IntroTime      float64     `json:"intro_time,omitempty" yaml:"intro_time"`
	OutroTime      float64     `json:"outro_time,omitempty" yaml:"outro_time"`
	PlayCountTotal int         `json:"play_count_total" yaml:"play_count_total"`
	MediaURL       string      `json:"media_url" yaml:"media_url"`
	CreatedAt      time.Time   `json:"-" yaml:"-"`
	UpdatedAt      time.Time   `json:"-" yaml:"-"`
}

// IsMusic reports whether the track is rotation music.
func (t Track) IsMusic() bool {
	return t.TrackType == TrackTypeMusic
}

// HasMedia reports whether the track carries a media reference.
func (t Track) HasMedia() bool {
	return strings.TrimSpace(t.MediaURL) != ""
}

// CuePoint returns the elapsed second at which the outro begins. ok is
// false when the track defines no outro cue. An outro at least as long as
// the track cues at 0.
func (t Track) CuePoint(duration float64) (cue float64, ok bool) {
	if t.OutroTime <= 0 {
		return 0, false
	}
	if duration <= 0 {
		duration = t.Duration
	}
	return max(duration-t.OutroTime, 0), true
}
