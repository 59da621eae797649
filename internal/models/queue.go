/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// QueueRecord is the persisted ordered list of upcoming track ids for a station.
type QueueRecord struct {
	ID        string   `gorm:"type:char(36);primaryKey"`
	StationID string   `gorm:"type:varchar(64);uniqueIndex"`
	Items     []string `gorm:"serializer:json"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
