package main

import (
	"github.com/rpattn/annex-migrate/internal/derive"
	"github.com/rpattn/annex-migrate/internal/repository"

	"github.com/spf13/cobra"
)

func newDeriveCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "derive [space|addressing|barcode-cleanup]",
		Short:     "Run post-load derivation jobs; no argument runs all of them",
		ValidArgs: []string{derive.JobSpace, derive.JobAddressing, derive.JobBarcodeCleanup},
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := openRuntime(ctx, cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			jobs := derive.NewJobs(
				repository.NewDerivationRepository(rt.conn.Pool, rt.runner),
				rt.cfg.ReportDir, rt.log)
			if len(args) == 0 {
				return jobs.RunAll(ctx)
			}
			return jobs.Run(ctx, args[0])
		},
	}
}
