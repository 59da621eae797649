/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"fmt"
	"io"
	"strings"

	"github.com/godtalktv/radio-pro-automation/internal/models"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// File is the on-disk catalog import format.
//
//	tracks:
//	  - title: Around the World
//	    artist: Daft Punk
//	    duration: 429
//	    track_type: music
//	    energy_level: high
//	    media_url: daft-punk/around-the-world.mp3
type File struct {
	Tracks []models.Track `yaml:"tracks"`
}

var validTypes = map[models.TrackType]bool{
	models.TrackTypeMusic:      true,
	models.TrackTypeStationID:  true,
	models.TrackTypeCommercial: true,
	models.TrackTypePromo:      true,
	models.TrackTypeVoiceTrack: true,
	models.TrackTypeGapFiller:  true,
}

var validEnergy = map[models.EnergyLevel]bool{
	"":                  true,
	models.EnergyLow:    true,
	models.EnergyMedium: true,
	models.EnergyHigh:   true,
}

// LoadYAML decodes and validates a catalog file. Tracks without an id get
// one derived from their media reference so repeated imports upsert.
func LoadYAML(r io.Reader) ([]models.Track, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	for i := range f.Tracks {
		t := &f.Tracks[i]
		if t.TrackType == "" {
			t.TrackType = models.TrackTypeMusic
		}
		t.EnergyLevel = models.EnergyLevel(strings.ToLower(string(t.EnergyLevel)))
		if !validTypes[t.TrackType] {
			return nil, fmt.Errorf("track %d (%s): unknown track_type %q", i, t.Title, t.TrackType)
		}
		if !validEnergy[t.EnergyLevel] {
			return nil, fmt.Errorf("track %d (%s): unknown energy_level %q", i, t.Title, t.EnergyLevel)
		}
		if t.Duration < 0 || t.IntroTime < 0 || t.OutroTime < 0 || t.BPM < 0 {
			return nil, fmt.Errorf("track %d (%s): negative timing values", i, t.Title)
		}
		if t.OutroTime > t.Duration && t.Duration > 0 {
			return nil, fmt.Errorf("track %d (%s): outro_time exceeds duration", i, t.Title)
		}
		if t.ID == "" {
			t.ID = TrackID(t.MediaURL, t.Artist, t.Title)
		}
	}
	return f.Tracks, nil
}

// TrackID derives a stable id from a track's identity fields.
func TrackID(parts ...string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(strings.Join(parts, "\x00"))).String()
}
