/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package queuestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/godtalktv/radio-pro-automation/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStore persists queue records in the application database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a database backed store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Get(ctx context.Context, stationID string) (*models.QueueRecord, error) {
	var rec models.QueueRecord
	err := s.db.WithContext(ctx).Where("station_id = ?", stationID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get queue record: %w", err)
	}
	return &rec, nil
}

func (s *GormStore) Create(ctx context.Context, stationID string) (*models.QueueRecord, error) {
	rec := models.QueueRecord{
		ID:        uuid.NewString(),
		StationID: stationID,
		Items:     []string{},
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("create queue record: %w", err)
	}
	return &rec, nil
}

func (s *GormStore) Update(ctx context.Context, id string, items []string) (*models.QueueRecord, error) {
	var rec models.QueueRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rec, "id = ?", id).Error; err != nil {
			return err
		}
		rec.Items = append([]string{}, items...)
		return tx.Save(&rec).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update queue record: %w", err)
	}
	return &rec, nil
}
