/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"context"

	"github.com/godtalktv/radio-pro-automation/internal/cache"
	"github.com/godtalktv/radio-pro-automation/internal/models"
)

// Cached fronts a catalog with the Redis track cache.
type Cached struct {
	next      Catalog
	cache     *cache.Cache
	stationID string
}

// NewCached wraps next. A nil or unavailable cache passes straight through.
func NewCached(next Catalog, c *cache.Cache, stationID string) *Cached {
	return &Cached{next: next, cache: c, stationID: stationID}
}

func (c *Cached) List(ctx context.Context) ([]models.Track, error) {
	if c.cache != nil {
		if tracks, ok := c.cache.GetTracks(ctx, c.stationID); ok {
			return tracks, nil
		}
	}
	tracks, err := c.next.List(ctx)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		_ = c.cache.SetTracks(ctx, c.stationID, tracks)
	}
	return tracks, nil
}

func (c *Cached) Filter(ctx context.Context, keep func(models.Track) bool) ([]models.Track, error) {
	tracks, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	return filter(tracks, keep), nil
}

func (c *Cached) Get(ctx context.Context, id string) (models.Track, error) {
	if c.cache != nil {
		if track, ok := c.cache.GetTrack(ctx, id); ok {
			return *track, nil
		}
	}
	track, err := c.next.Get(ctx, id)
	if err != nil {
		return models.Track{}, err
	}
	if c.cache != nil {
		_ = c.cache.SetTrack(ctx, &track)
	}
	return track, nil
}

// Invalidate drops the cached track list so the next List reads through.
func (c *Cached) Invalidate(ctx context.Context, trackIDs ...string) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.InvalidateTracks(ctx, c.stationID, trackIDs...)
}
