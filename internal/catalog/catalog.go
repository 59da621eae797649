/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package catalog provides read access to the station track library.
package catalog

import (
	"context"
	"errors"
	"sync"

	"github.com/godtalktv/radio-pro-automation/internal/models"
)

// ErrTrackNotFound is returned by Get for unknown ids.
var ErrTrackNotFound = errors.New("track not found")

// Catalog is the read-only track library.
type Catalog interface {
	List(ctx context.Context) ([]models.Track, error)
	Filter(ctx context.Context, keep func(models.Track) bool) ([]models.Track, error)
	Get(ctx context.Context, id string) (models.Track, error)
}

// Lookup returns the tracks for ids in order, skipping unknown ids.
func Lookup(ctx context.Context, c Catalog, ids []string) ([]models.Track, error) {
	all, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Track, len(all))
	for _, t := range all {
		byID[t.ID] = t
	}
	out := make([]models.Track, 0, len(ids))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func filter(tracks []models.Track, keep func(models.Track) bool) []models.Track {
	out := make([]models.Track, 0, len(tracks))
	for _, t := range tracks {
		if keep == nil || keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// Memory is an in-process catalog.
type Memory struct {
	mu     sync.RWMutex
	tracks []models.Track
}

// NewMemory creates a catalog holding tracks.
func NewMemory(tracks ...models.Track) *Memory {
	return &Memory{tracks: append([]models.Track(nil), tracks...)}
}

// Replace swaps the catalog contents.
func (m *Memory) Replace(tracks []models.Track) {
	m.mu.Lock()
	m.tracks = append([]models.Track(nil), tracks...)
	m.mu.Unlock()
}

func (m *Memory) List(ctx context.Context) ([]models.Track, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Track(nil), m.tracks...), nil
}

func (m *Memory) Filter(ctx context.Context, keep func(models.Track) bool) ([]models.Track, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filter(m.tracks, keep), nil
}

func (m *Memory) Get(ctx context.Context, id string) (models.Track, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.tracks {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Track{}, ErrTrackNotFound
}
