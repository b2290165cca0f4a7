package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dbdock/pkg/daemon"
	"dbdock/pkg/orchestrator"
	"dbdock/pkg/remote"
	"dbdock/pkg/runner"
)

var daemonSchedule string

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run scheduled backup passes in the foreground",
	Long: `Run backup passes on a cron schedule. The schedule comes from
backup.schedule in the configuration, or from --schedule. The daemon
runs in the foreground and stops cleanly on Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		schedule := cfg.Backup.Schedule
		if daemonSchedule != "" {
			schedule = daemonSchedule
		}
		if schedule == "" {
			return fmt.Errorf("no schedule configured: set backup.schedule or pass --schedule")
		}

		run := runner.NewDocker()
		if needsDocker(cfg) {
			if err := run.Ping(cmd.Context()); err != nil {
				return fmt.Errorf("docker is required for the enabled engines: %w", err)
			}
		}

		pass := func() error {
			remotes, err := remote.Open(cfg.Offsite)
			if err != nil {
				return err
			}
			defer remote.CloseAll(remotes)
			return orchestrator.NewBackup(cfg, run, remotes).Run(context.Background())
		}

		d := daemon.New(schedule, pass)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigChan
			d.Stop()
		}()

		if err := d.Run(); err != nil {
			return fmt.Errorf("daemon error: %w", err)
		}
		return nil
	},
}

func init() {
	daemonCmd.Flags().StringVar(&daemonSchedule, "schedule", "", "cron schedule overriding backup.schedule")
	rootCmd.AddCommand(daemonCmd)
}
