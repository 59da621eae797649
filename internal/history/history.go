/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package history keeps the as-run log of executed plays.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/godtalktv/radio-pro-automation/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Entry describes one play.
type Entry struct {
	StationID  string
	Track      models.Track
	Deck       string
	Transition string
	StartedAt  time.Time
}

// Recorder stores plays and returns recent ones.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
	// Recent returns up to limit track ids, most recent first.
	Recent(ctx context.Context, stationID string, limit int) ([]string, error)
}

// Nop discards plays.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

func (Nop) Recent(context.Context, string, int) ([]string, error) { return nil, nil }

// GormRecorder writes plays to the play_logs table.
type GormRecorder struct {
	db *gorm.DB
}

// NewGormRecorder creates a database backed recorder.
func NewGormRecorder(db *gorm.DB) *GormRecorder {
	return &GormRecorder{db: db}
}

func (r *GormRecorder) Record(ctx context.Context, e Entry) error {
	row := models.PlayLog{
		ID:         uuid.NewString(),
		StationID:  e.StationID,
		TrackID:    e.Track.ID,
		Title:      e.Track.Title,
		Artist:     e.Track.Artist,
		Category:   e.Track.Category,
		Deck:       e.Deck,
		Transition: e.Transition,
		StartedAt:  e.StartedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("record play: %w", err)
	}
	return nil
}

func (r *GormRecorder) Recent(ctx context.Context, stationID string, limit int) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.PlayLog{}).
		Where("station_id = ?", stationID).
		Order("started_at DESC").
		Limit(limit).
		Pluck("track_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("recent plays: %w", err)
	}
	return ids, nil
}

// List returns the latest as-run rows for a station.
func (r *GormRecorder) List(ctx context.Context, stationID string, limit int) ([]models.PlayLog, error) {
	var rows []models.PlayLog
	err := r.db.WithContext(ctx).
		Where("station_id = ?", stationID).
		Order("started_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list plays: %w", err)
	}
	return rows, nil
}
