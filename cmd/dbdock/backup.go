package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"dbdock/pkg/orchestrator"
	"dbdock/pkg/remote"
	"dbdock/pkg/runner"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up every enabled database instance",
	Long: `Run one backup pass over every enabled engine section. Each
instance's artifacts are written under the configured output
directory and retention is applied afterwards. If offsite storage is
configured, finished artifacts are replicated as they are written.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		run := runner.NewDocker()
		if needsDocker(cfg) {
			if err := run.Ping(cmd.Context()); err != nil {
				return fmt.Errorf("docker is required for the enabled engines: %w", err)
			}
		}

		remotes, err := remote.Open(cfg.Offsite)
		if err != nil {
			return err
		}
		defer remote.CloseAll(remotes)

		if err := orchestrator.NewBackup(cfg, run, remotes).Run(cmd.Context()); err != nil {
			return err
		}

		logrus.Info("All database backups completed successfully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
}
