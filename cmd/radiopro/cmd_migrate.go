/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/godtalktv/radio-pro-automation/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		database, err := db.Connect(cfg)
		if err != nil {
			return err
		}
		defer db.Close(database)

		if err := db.Migrate(database); err != nil {
			return err
		}
		for _, model := range db.Schema() {
			stmt := &gorm.Statement{DB: database}
			if err := stmt.Parse(model); err != nil {
				return fmt.Errorf("inspect %T: %w", model, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), stmt.Schema.Table)
		}
		logger.Info().Str("backend", string(cfg.DBBackend)).Int("tables", len(db.Schema())).Msg("schema migrated")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
