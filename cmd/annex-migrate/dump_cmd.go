package main

import (
	"github.com/rpattn/annex-migrate/internal/dump"

	"github.com/spf13/cobra"
)

func newDumpCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Write a pg_dump custom-format archive of the migrated database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			path := out
			if path == "" {
				path = cfg.DumpPath
			}
			if err := dump.Run(cmd.Context(), cfg.DB, path); err != nil {
				return err
			}
			newLogger().WithField("path", path).Info("dump written")
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "archive path (default from config)")
	return cmd
}
