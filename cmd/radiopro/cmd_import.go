/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/godtalktv/radio-pro-automation/internal/catalog"
	"github.com/godtalktv/radio-pro-automation/internal/db"
	"github.com/godtalktv/radio-pro-automation/internal/models"
)

var (
	importStation string
	importFile    string
	importDir     string
	importDryRun  bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import tracks into a station library",
	Long:  "Import tracks from a YAML catalog file (--file) or by scanning a media directory for tagged audio (--dir).",
	RunE:  runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importStation, "station", "", "Station id (defaults to the first configured station)")
	importCmd.Flags().StringVar(&importFile, "file", "", "Path to a YAML catalog file")
	importCmd.Flags().StringVar(&importDir, "dir", "", "Media directory to scan")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Parse and validate without writing")
	importCmd.MarkFlagsMutuallyExclusive("file", "dir")
	importCmd.MarkFlagsOneRequired("file", "dir")
}

func runImport(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	station := stationOrDefault(importStation)

	var (
		tracks []models.Track
		err    error
	)
	if importFile != "" {
		f, openErr := os.Open(importFile)
		if openErr != nil {
			return openErr
		}
		defer f.Close()
		tracks, err = catalog.LoadYAML(f)
	} else {
		tracks, err = catalog.ScanDirectory(importDir, logger)
	}
	if err != nil {
		return err
	}

	if importDryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "%d tracks parsed for station %s (dry run)\n", len(tracks), station)
		return nil
	}

	database, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	defer db.Close(database)
	if err := db.Migrate(database); err != nil {
		return err
	}

	n, err := catalog.NewGorm(database, station).Import(cmd.Context(), tracks)
	if err != nil {
		return err
	}
	logger.Info().Str("station_id", station).Int("tracks", n).Msg("import complete")
	fmt.Fprintf(cmd.OutOrStdout(), "%d tracks imported for station %s\n", n, station)
	return nil
}

func stationOrDefault(id string) string {
	if id != "" {
		return id
	}
	return cfg.StationIDs[0]
}
