package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "annex-migrate",
		Short:         "One-shot migration of the legacy annex system into the new inventory database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().String("config", ".", "directory containing config.yaml")
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newStageCmd())
	cmd.AddCommand(newDeriveCmd())
	cmd.AddCommand(newDumpCmd())
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return log
}
