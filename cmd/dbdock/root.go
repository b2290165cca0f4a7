package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dbdock/pkg/config"
)

var (
	cfgFile string
	debug   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dbdock",
	Short: "Database backups through ephemeral Docker containers",
	Long: `Dbdock backs up and restores SQLite, MySQL, PostgreSQL, SQL Server
and MongoDB databases by running each engine's native tooling inside
ephemeral Docker containers, so no client binaries need to be
installed on the host.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debug {
			logrus.SetLevel(logrus.DebugLevel)
			logrus.Debug("Debug mode enabled")
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml, then $HOME/.config/dbdock/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "dbdock"))
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		logrus.Debugf("Using config file: %s", viper.ConfigFileUsed())
	}
}

// loadConfig unmarshals the configuration viper found and validates it
func loadConfig() (*config.Config, error) {
	if viper.ConfigFileUsed() == "" {
		return nil, fmt.Errorf("no config file found (searched . and ~/.config/dbdock; use --config)")
	}

	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// needsDocker reports whether any enabled engine runs its tools in
// containers. SQLite is dumped on the host and never needs Docker.
func needsDocker(cfg *config.Config) bool {
	for _, engine := range []string{"mysql", "postgresql", "mssql", "mongodb"} {
		section, _ := cfg.Section(engine)
		if section.Enabled && len(section.Instances) > 0 {
			return true
		}
	}
	return false
}
