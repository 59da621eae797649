/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"context"
	"errors"
	"time"

	"github.com/godtalktv/radio-pro-automation/internal/telemetry"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const startedKey = "radiopro:started_at"

// SlowQuery is the duration above which a statement is logged.
var SlowQuery = 500 * time.Millisecond

// RegisterCallbacks times every create, query, update and delete statement
// into the database metrics.
func RegisterCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("radiopro:before_create", markStart),
		cb.Create().After("gorm:create").Register("radiopro:after_create", observe("create")),
		cb.Query().Before("gorm:query").Register("radiopro:before_query", markStart),
		cb.Query().After("gorm:query").Register("radiopro:after_query", observe("query")),
		cb.Update().Before("gorm:update").Register("radiopro:before_update", markStart),
		cb.Update().After("gorm:update").Register("radiopro:after_update", observe("update")),
		cb.Delete().Before("gorm:delete").Register("radiopro:before_delete", markStart),
		cb.Delete().After("gorm:delete").Register("radiopro:after_delete", observe("delete")),
	)
}

func markStart(tx *gorm.DB) {
	tx.InstanceSet(startedKey, time.Now())
}

func observe(operation string) func(*gorm.DB) {
	return func(tx *gorm.DB) {
		v, ok := tx.InstanceGet(startedKey)
		if !ok {
			return
		}
		started, ok := v.(time.Time)
		if !ok {
			return
		}
		elapsed := time.Since(started)

		table := tx.Statement.Table
		if table == "" {
			table = "unknown"
		}
		telemetry.DatabaseQueryDuration.WithLabelValues(operation, table).Observe(elapsed.Seconds())

		if kind := errorKind(tx.Error); kind != "" {
			telemetry.DatabaseErrorsTotal.WithLabelValues(operation, kind).Inc()
		}
		if elapsed > SlowQuery {
			log.Warn().Str("component", "db").Str("operation", operation).Str("table", table).
				Dur("elapsed", elapsed).Msg("slow query")
		}
	}
}

// errorKind classifies a statement error for metrics. Missing rows are not
// errors.
func errorKind(err error) string {
	switch {
	case err == nil, errors.Is(err, gorm.ErrRecordNotFound):
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return "duplicate"
	default:
		return "query_error"
	}
}

// UpdateConnectionMetrics publishes the pool's open connection count.
func UpdateConnectionMetrics(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	telemetry.DatabaseConnectionsActive.Set(float64(sqlDB.Stats().OpenConnections))
}
