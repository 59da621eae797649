/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"

	"github.com/godtalktv/radio-pro-automation/internal/models"
	"gorm.io/gorm"
)

// Schema lists the persisted playout models in migration order.
func Schema() []any {
	return []any{
		&models.Track{},
		&models.QueueRecord{},
		&models.PlayLog{},
	}
}

// Migrate brings every table in Schema up to date, one model at a time so a
// failure names the offending table.
func Migrate(database *gorm.DB) error {
	for _, model := range Schema() {
		if err := database.AutoMigrate(model); err != nil {
			return fmt.Errorf("migrate %T: %w", model, err)
		}
	}
	return nil
}
