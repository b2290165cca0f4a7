package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"dbdock/pkg/orchestrator"
	"dbdock/pkg/runner"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <engine> <instance> <artifact> <mode> [source-db] [target-db]",
	Short: "Restore one backup artifact into a configured instance",
	Long: `Restore a backup artifact into a configured instance.

Mode is "single" to restore one database under a target name, or
"all" to replay a full-instance dump (PostgreSQL only). Pass "-" for
source-db to default it from target-db.

Examples:
  dbdock restore mysql primary backups/mysql/primary/20240101_030000/shop.sql.gz single shop shop_copy
  dbdock restore postgresql main backups/postgresql/main/20240101_030000/app.dump single app app_restored
  dbdock restore mongodb docs backups/mongodb/docs/20240101_030000/site.archive.gz single - site`,
	Args: cobra.RangeArgs(4, 6),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		engineName, instanceName, artifactPath, modeName := args[0], args[1], args[2], args[3]
		var sourceDB, targetDB string
		if len(args) > 4 {
			sourceDB = dashToEmpty(args[4])
		}
		if len(args) > 5 {
			targetDB = dashToEmpty(args[5])
		}

		run := runner.NewDocker()
		if engineName != "sqlite" {
			if err := run.Ping(cmd.Context()); err != nil {
				return fmt.Errorf("docker is required to restore %s: %w", engineName, err)
			}
		}

		if err := orchestrator.NewRestorer(cfg, run).Restore(cmd.Context(),
			engineName, instanceName, artifactPath, modeName, sourceDB, targetDB); err != nil {
			return err
		}

		logrus.Info("Restore completed successfully")
		return nil
	},
}

func dashToEmpty(s string) string {
	if s == "-" {
		return ""
	}
	return s
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}
