package main

import (
	"github.com/rpattn/annex-migrate/internal/db"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the target schema and audit trigger migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := db.MigrateUp(cfg.DB); err != nil {
				return err
			}
			newLogger().Info("migrations applied")
			return nil
		},
	}
}
