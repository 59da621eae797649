/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package selector picks the next AutoDJ track. Everything here is free of
// side effects so it can run speculatively during preload.
package selector

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/godtalktv/radio-pro-automation/internal/models"
)

// ErrNoTrack is returned when the library has no music track at all.
var ErrNoTrack = errors.New("no track available")

const (
	minDuration      = 30.0
	artistSeparation = 5
	categoryRotation = 3
	tempoWindow      = 20.0
	repeatWindow     = 20
	baseWeight       = 100
	repeatPenalty    = 25
	freshBonus       = 20
	freshPlayCount   = 5
	energyBonus      = 15
	shortlistPercent = 30
)

// Input is everything the selector looks at.
type Input struct {
	Library []models.Track
	// History is most recent first.
	History []models.Track
	Active  *models.Track
	Now     time.Time
}

// Candidate is a shortlisted track with its weight.
type Candidate struct {
	Track  models.Track `json:"track"`
	Weight int          `json:"weight"`
}

// PreferredEnergy maps the hour of day to the programming energy level.
func PreferredEnergy(hour int) models.EnergyLevel {
	switch {
	case hour >= 6 && hour <= 9:
		return models.EnergyHigh
	case hour >= 10 && hour <= 15:
		return models.EnergyMedium
	case hour >= 16 && hour <= 19:
		return models.EnergyHigh
	case hour >= 20 && hour <= 23:
		return models.EnergyMedium
	}
	return models.EnergyLow
}

// Select returns one track chosen uniformly from the shortlist.
func Select(in Input, rng *rand.Rand) (models.Track, error) {
	list, err := Shortlist(in)
	if err != nil {
		return models.Track{}, err
	}
	if len(list) == 1 || rng == nil {
		return list[0].Track, nil
	}
	return list[rng.Intn(len(list))].Track, nil
}

// Shortlist runs the filter pipeline and returns the weighted top slice,
// heaviest first. The result depends only on in.
func Shortlist(in Input) ([]Candidate, error) {
	pool := Eligible(in)
	if len(pool) == 0 {
		return nil, ErrNoTrack
	}

	preferred := PreferredEnergy(in.Now.Hour())
	recent := window(in.History, repeatWindow)

	scored := make([]Candidate, 0, len(pool))
	for _, track := range pool {
		scored = append(scored, Candidate{Track: track, Weight: weigh(track, recent, preferred)})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Weight > scored[j].Weight })

	keep := len(scored) * shortlistPercent / 100
	if keep < 1 {
		keep = 1
	}
	return scored[:keep], nil
}

// Eligible returns the candidates left after the filter stages and fallback.
func Eligible(in Input) []models.Track {
	pool := keepIf(in.Library, func(t models.Track) bool {
		return t.IsMusic() && t.Duration > minDuration
	})
	if len(pool) == 0 {
		return keepIf(in.Library, models.Track.IsMusic)
	}

	preferred := PreferredEnergy(in.Now.Hour())
	pool = narrow(pool, func(t models.Track) bool {
		return t.EnergyLevel == "" || t.EnergyLevel == preferred
	})

	artists := make(map[string]struct{})
	for _, t := range window(in.History, artistSeparation) {
		if a := normalize(t.Artist); a != "" {
			artists[a] = struct{}{}
		}
	}
	pool = narrow(pool, func(t models.Track) bool {
		_, seen := artists[normalize(t.Artist)]
		return !seen
	})

	categories := make(map[string]struct{})
	for _, t := range window(in.History, categoryRotation) {
		if t.Category != "" {
			categories[t.Category] = struct{}{}
		}
	}
	pool = narrow(pool, func(t models.Track) bool {
		_, seen := categories[t.Category]
		return t.Category == "" || !seen
	})

	if in.Active != nil && in.Active.BPM > 0 {
		bpm := in.Active.BPM
		pool = narrow(pool, func(t models.Track) bool {
			return t.BPM <= 0 || math.Abs(t.BPM-bpm) <= tempoWindow
		})
	}

	return pool
}

func weigh(track models.Track, recent []models.Track, preferred models.EnergyLevel) int {
	w := baseWeight
	for _, h := range recent {
		if h.ID == track.ID {
			w -= repeatPenalty
		}
	}
	if track.PlayCountTotal < freshPlayCount {
		w += freshBonus
	}
	if track.EnergyLevel == preferred {
		w += energyBonus
	}
	if w < 1 {
		w = 1
	}
	return w
}

// narrow applies keep only when at least one track survives.
func narrow(pool []models.Track, keep func(models.Track) bool) []models.Track {
	out := keepIf(pool, keep)
	if len(out) == 0 {
		return pool
	}
	return out
}

func keepIf(in []models.Track, keep func(models.Track) bool) []models.Track {
	out := make([]models.Track, 0, len(in))
	for _, t := range in {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

func window(history []models.Track, n int) []models.Track {
	if len(history) < n {
		return history
	}
	return history[:n]
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
