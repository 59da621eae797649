/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package db opens the configured gorm backend and migrates the schema.
package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/godtalktv/radio-pro-automation/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type pool struct {
	maxOpen, maxIdle int
	lifetime         time.Duration
}

// sqlite serializes writers, so more than one connection only adds
// SQLITE_BUSY errors.
func poolFor(backend config.DatabaseBackend) pool {
	if backend == config.DatabaseSQLite {
		return pool{maxOpen: 1, maxIdle: 1}
	}
	return pool{maxOpen: 50, maxIdle: 10, lifetime: 30 * time.Minute}
}

// Connect opens the database named by cfg and installs the metrics callbacks.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := Dialector(cfg.DBBackend, cfg.DBDSN)
	if err != nil {
		return nil, err
	}

	mode := logger.Warn
	if strings.EqualFold(cfg.Environment, "development") {
		mode = logger.Info
	}
	database, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(mode),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBBackend, err)
	}
	if err := RegisterCallbacks(database); err != nil {
		return nil, fmt.Errorf("register callbacks: %w", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, err
	}
	p := poolFor(cfg.DBBackend)
	sqlDB.SetMaxOpenConns(p.maxOpen)
	sqlDB.SetMaxIdleConns(p.maxIdle)
	sqlDB.SetConnMaxLifetime(p.lifetime)
	return database, nil
}

// Dialector maps a backend name to its gorm driver.
func Dialector(backend config.DatabaseBackend, dsn string) (gorm.Dialector, error) {
	switch backend {
	case config.DatabasePostgres:
		return postgres.Open(dsn), nil
	case config.DatabaseMySQL:
		return mysql.Open(dsn), nil
	case config.DatabaseSQLite:
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unknown database backend %q", backend)
	}
}

// Close releases the connection pool.
func Close(database *gorm.DB) error {
	sqlDB, err := database.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
