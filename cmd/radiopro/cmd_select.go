/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/godtalktv/radio-pro-automation/internal/catalog"
	"github.com/godtalktv/radio-pro-automation/internal/db"
	"github.com/godtalktv/radio-pro-automation/internal/history"
	"github.com/godtalktv/radio-pro-automation/internal/models"
	"github.com/godtalktv/radio-pro-automation/internal/selector"
)

var (
	selectStation string
	selectAt      string
	selectHistory int
)

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Preview the AutoDJ shortlist for a station",
	Long:  "Runs the track selector against the station library and its recent as-run log without touching playout.",
	RunE:  runSelect,
}

func init() {
	rootCmd.AddCommand(selectCmd)

	selectCmd.Flags().StringVar(&selectStation, "station", "", "Station id (defaults to the first configured station)")
	selectCmd.Flags().StringVar(&selectAt, "at", "", "Evaluate at this RFC3339 time instead of now")
	selectCmd.Flags().IntVar(&selectHistory, "history", 50, "Number of recent plays to consider")
}

func runSelect(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	station := stationOrDefault(selectStation)

	now := time.Now()
	if selectAt != "" {
		parsed, err := time.Parse(time.RFC3339, selectAt)
		if err != nil {
			return fmt.Errorf("parse --at: %w", err)
		}
		now = parsed
	}

	database, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	defer db.Close(database)

	ctx := cmd.Context()
	cat := catalog.NewGorm(database, station)
	library, err := cat.Filter(ctx, models.Track.HasMedia)
	if err != nil {
		return err
	}
	ids, err := history.NewGormRecorder(database).Recent(ctx, station, selectHistory)
	if err != nil {
		return err
	}
	recent, err := catalog.Lookup(ctx, cat, ids)
	if err != nil {
		return err
	}

	in := selector.Input{Library: library, History: recent, Now: now.In(cfg.Location())}
	if len(recent) > 0 {
		in.Active = &recent[0]
	}
	candidates, err := selector.Shortlist(in)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "preferred energy %s at %s\n", selector.PreferredEnergy(in.Now.Hour()), in.Now.Format(time.Kitchen))
	fmt.Fprintln(w, "WEIGHT\tARTIST\tTITLE\tENERGY\tID")
	for _, c := range candidates {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", c.Weight, c.Track.Artist, c.Track.Title, c.Track.EnergyLevel, c.Track.ID)
	}
	return w.Flush()
}
