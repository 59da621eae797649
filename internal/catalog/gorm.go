/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/godtalktv/radio-pro-automation/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Gorm reads one station's tracks from the application database.
type Gorm struct {
	db        *gorm.DB
	stationID string
}

// NewGorm creates a station scoped catalog.
func NewGorm(db *gorm.DB, stationID string) *Gorm {
	return &Gorm{db: db, stationID: stationID}
}

func (g *Gorm) scoped(ctx context.Context) *gorm.DB {
	q := g.db.WithContext(ctx).Model(&models.Track{})
	if g.stationID != "" {
		q = q.Where("station_id = ?", g.stationID)
	}
	return q
}

func (g *Gorm) List(ctx context.Context) ([]models.Track, error) {
	var tracks []models.Track
	if err := g.scoped(ctx).Order("artist, title").Find(&tracks).Error; err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	return tracks, nil
}

func (g *Gorm) Filter(ctx context.Context, keep func(models.Track) bool) ([]models.Track, error) {
	tracks, err := g.List(ctx)
	if err != nil {
		return nil, err
	}
	return filter(tracks, keep), nil
}

func (g *Gorm) Get(ctx context.Context, id string) (models.Track, error) {
	var track models.Track
	err := g.scoped(ctx).Where("id = ?", id).First(&track).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Track{}, ErrTrackNotFound
	}
	if err != nil {
		return models.Track{}, fmt.Errorf("get track: %w", err)
	}
	return track, nil
}

// Import upserts tracks into the station library and returns the number
// written. Used by the import command; the playout core never writes.
func (g *Gorm) Import(ctx context.Context, tracks []models.Track) (int, error) {
	if len(tracks) == 0 {
		return 0, nil
	}
	for i := range tracks {
		if tracks[i].StationID == "" {
			tracks[i].StationID = g.stationID
		}
	}
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).CreateInBatches(&tracks, 200).Error
	if err != nil {
		return 0, fmt.Errorf("import tracks: %w", err)
	}
	return len(tracks), nil
}
