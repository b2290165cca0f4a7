package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"dbdock/pkg/orchestrator"
	"dbdock/pkg/runner"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply retention to existing backups without taking new ones",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		deleted, err := orchestrator.NewBackup(cfg, runner.NewDocker(), nil).Prune()
		if err != nil {
			return err
		}

		logrus.Infof("Pruned %d old backup(s)", deleted)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pruneCmd)
}
