package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"dbdock/pkg/config"
	"dbdock/pkg/remote"
	"dbdock/pkg/store"
)

type artifactSummary struct {
	count      int
	latestName string
	latestTime time.Time
	latestSize int64
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured instances and their backups",
	Long: `List every enabled instance with its local backup count and most
recent artifact. If offsite storage is configured, the replicated
count per instance is shown as well.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var remotes []remote.Storage
		if cfg.Offsite != nil {
			remotes, err = remote.Open(cfg.Offsite)
			if err != nil {
				return err
			}
			defer remote.CloseAll(remotes)
		}

		fmt.Println("\nConfigured instances and their backups:")
		fmt.Println(strings.Repeat("─", 72))

		for _, engine := range []string{"sqlite", "mysql", "postgresql", "mssql", "mongodb"} {
			section, _ := cfg.Section(engine)
			if !section.Enabled {
				continue
			}
			for _, inst := range section.Instances {
				printInstance(cfg, remotes, engine, inst)
			}
		}

		fmt.Println(strings.Repeat("─", 72))
		return nil
	},
}

func printInstance(cfg *config.Config, remotes []remote.Storage, engine string, inst config.Instance) {
	fmt.Printf("\n%s/%s\n", engine, inst.Name)

	dir := store.InstanceDir(cfg.Backup.OutputDir, engine, inst.Name)
	summary, err := summarizeLocal(dir)
	if err != nil {
		fmt.Printf("   local: unreadable (%v)\n", err)
	} else if summary.count == 0 {
		fmt.Println("   local: no backups")
	} else {
		fmt.Printf("   local: %d backup(s), latest %s (%s, %s)\n",
			summary.count,
			summary.latestName,
			humanize.Time(summary.latestTime),
			humanize.Bytes(uint64(summary.latestSize)),
		)
	}

	for _, st := range remotes {
		artifacts, err := st.List(engine + "/" + inst.Name)
		if err != nil {
			fmt.Printf("   offsite: list failed (%v)\n", err)
			continue
		}
		fmt.Printf("   offsite: %d artifact(s)\n", len(artifacts))
	}
}

// summarizeLocal counts the retention units of an instance directory:
// files for SQLite, timestamp directories for server engines. Both
// kinds can coexist only transiently, so counting everything is fine.
func summarizeLocal(dir string) (artifactSummary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return artifactSummary{}, nil
		}
		return artifactSummary{}, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	var summary artifactSummary
	for _, de := range entries {
		info, err := de.Info()
		if err != nil {
			continue
		}
		summary.count++
		if !info.ModTime().Before(summary.latestTime) {
			summary.latestTime = info.ModTime()
			summary.latestName = de.Name()
			summary.latestSize = info.Size()
			if de.IsDir() {
				summary.latestSize = dirSize(filepath.Join(dir, de.Name()))
			}
		}
	}
	return summary, nil
}

func dirSize(dir string) int64 {
	var total int64
	filepath.WalkDir(dir, func(path string, de os.DirEntry, err error) error {
		if err != nil || de.IsDir() {
			return nil
		}
		if info, err := de.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

func init() {
	rootCmd.AddCommand(listCmd)
}
