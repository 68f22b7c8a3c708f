package main

import (
	"github.com/rpattn/annex-migrate/internal/db"
	"github.com/rpattn/annex-migrate/internal/derive"
	"github.com/rpattn/annex-migrate/internal/repository"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var skipMigrate bool
	var skipDerive bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full migration: schema, fixtures, snapshot stages, derivations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if !skipMigrate {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				if err := db.MigrateUp(cfg.DB); err != nil {
					return err
				}
			}

			rt, err := openRuntime(ctx, cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			p, _, err := rt.buildPipeline()
			if err != nil {
				return err
			}

			summaries, err := p.Run(ctx)
			printSummaries(rt.log, summaries)
			if err != nil {
				return err
			}

			if skipDerive {
				return nil
			}
			jobs := derive.NewJobs(
				repository.NewDerivationRepository(rt.conn.Pool, rt.runner),
				rt.cfg.ReportDir, rt.log)
			return jobs.RunAll(ctx)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply schema migrations first")
	cmd.Flags().BoolVar(&skipDerive, "skip-derive", false, "stop after the load stages")
	return cmd
}
