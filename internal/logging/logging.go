/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package logging builds the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global logger for environment.
func Setup(environment string) zerolog.Logger {
	return SetupWithWriter(environment, nil)
}

// SetupWithWriter is Setup with tee, when non-nil, receiving every event as
// JSON in addition to stdout.
func SetupWithWriter(environment string, tee io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	out := stdout(environment)
	if tee != nil {
		out = zerolog.MultiLevelWriter(out, tee)
	}

	logger := zerolog.New(out).
		Level(LevelFor(environment)).
		With().
		Timestamp().
		Str("service", "radiopro").
		Logger()
	log.Logger = logger
	return logger
}

// LevelFor maps a deployment environment to its minimum log level.
func LevelFor(environment string) zerolog.Level {
	switch strings.ToLower(environment) {
	case "development", "dev":
		return zerolog.DebugLevel
	case "test":
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// Production emits raw JSON; everything else gets the console formatter.
func stdout(environment string) io.Writer {
	if strings.EqualFold(environment, "production") {
		return os.Stdout
	}
	return zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.TimeOnly}
}
