// Package orchestrator drives the engine adapters: the backup pass
// over every enabled engine, instance and database, and the restore
// dispatch for a single artifact.
package orchestrator

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sirupsen/logrus"

	"dbdock/pkg/config"
	"dbdock/pkg/engine"
	"dbdock/pkg/remote"
	"dbdock/pkg/runner"
	"dbdock/pkg/store"
)

// Backup runs one full backup pass: engines in a fixed order,
// instances and databases strictly sequentially. The first
// unrecovered error aborts the pass; partially written artifacts are
// left in place.
type Backup struct {
	cfg     *config.Config
	engines []engine.Database
	remotes []remote.Storage
	log     *logrus.Logger
	now     func() time.Time
}

// NewBackup creates a backup orchestrator. remotes may be empty.
func NewBackup(cfg *config.Config, run runner.Runner, remotes []remote.Storage) *Backup {
	return &Backup{
		cfg:     cfg,
		engines: engine.All(run),
		remotes: remotes,
		log:     logrus.StandardLogger(),
		now:     time.Now,
	}
}

// Run performs the pass. All artifacts of one pass share a single
// timestamp.
func (b *Backup) Run(ctx context.Context) error {
	timestamp := b.now().Format(store.TimestampFormat)

	for _, eng := range b.engines {
		section, ok := b.cfg.Section(string(eng.Kind()))
		if !ok || !section.Enabled {
			continue
		}
		if err := b.backupEngine(ctx, eng, section, timestamp); err != nil {
			return err
		}
	}
	return nil
}

// Prune applies retention to every enabled instance directory
// without taking new backups
func (b *Backup) Prune() (int, error) {
	total := 0
	for _, eng := range b.engines {
		section, ok := b.cfg.Section(string(eng.Kind()))
		if !ok || !section.Enabled {
			continue
		}
		for _, inst := range section.Instances {
			dir := store.InstanceDir(b.cfg.Backup.OutputDir, string(eng.Kind()), inst.Name)
			deleted, err := b.rotate(eng, dir)
			total += len(deleted)
			if err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

func (b *Backup) backupEngine(ctx context.Context, eng engine.Database, section *config.EngineConfig, timestamp string) error {
	for _, inst := range section.Instances {
		instDir := store.InstanceDir(b.cfg.Backup.OutputDir, string(eng.Kind()), inst.Name)
		if err := store.EnsureDir(instDir); err != nil {
			return err
		}

		if eng.GroupedArtifacts() {
			if err := b.backupGrouped(ctx, eng, inst, instDir, timestamp); err != nil {
				return err
			}
		} else {
			if err := b.backupFlat(ctx, eng, inst, instDir, timestamp); err != nil {
				return err
			}
		}

		if _, err := b.rotate(eng, instDir); err != nil {
			return err
		}
	}
	return nil
}

// backupFlat writes one timestamped file per run; SQLite's layout
func (b *Backup) backupFlat(ctx context.Context, eng engine.Database, inst config.Instance, instDir, timestamp string) error {
	destPath := store.FlatArtifactPath(instDir, inst.Name, timestamp, eng.ArtifactExt())

	b.log.Infof("Backing up %s %s", eng.Kind(), inst.Name)
	if err := eng.BackupDatabase(ctx, inst, "", destPath); err != nil {
		return err
	}

	return b.replicate(destPath, path.Join(string(eng.Kind()), inst.Name, filepath.Base(destPath)))
}

// backupGrouped writes every database of the run into one timestamp
// directory, the retention unit for server engines
func (b *Backup) backupGrouped(ctx context.Context, eng engine.Database, inst config.Instance, instDir, timestamp string) error {
	databases, err := b.resolveDatabases(ctx, eng, inst)
	if err != nil {
		return err
	}

	groupDir := store.GroupDir(instDir, timestamp)
	if err := store.EnsureDir(groupDir); err != nil {
		return err
	}

	for _, db := range databases {
		destPath := store.GroupArtifactPath(groupDir, db, eng.ArtifactExt())

		b.log.Infof("Backing up %s [%s]: %s", eng.Kind(), inst.Name, db)
		if err := eng.BackupDatabase(ctx, inst, db, destPath); err != nil {
			return err
		}

		remoteName := path.Join(string(eng.Kind()), inst.Name, timestamp, filepath.Base(destPath))
		if err := b.replicate(destPath, remoteName); err != nil {
			return err
		}
	}
	return nil
}

// resolveDatabases returns the databases to back up: the explicit
// allow-list verbatim, the enumerated catalog when the list is empty,
// or the catalog filtered by the list's glob patterns.
func (b *Backup) resolveDatabases(ctx context.Context, eng engine.Database, inst config.Instance) ([]string, error) {
	if len(inst.Databases) == 0 {
		return eng.EnumerateDatabases(ctx, inst)
	}
	if !hasGlob(inst.Databases) {
		return inst.Databases, nil
	}

	all, err := eng.EnumerateDatabases(ctx, inst)
	if err != nil {
		return nil, err
	}

	var matched []string
	for _, db := range all {
		for _, pattern := range inst.Databases {
			ok, err := doublestar.Match(pattern, db)
			if err != nil {
				return nil, fmt.Errorf("invalid database pattern %q: %w", pattern, err)
			}
			if ok {
				matched = append(matched, db)
				break
			}
		}
	}
	return matched, nil
}

func (b *Backup) rotate(eng engine.Database, instDir string) ([]string, error) {
	if eng.GroupedArtifacts() {
		return store.RotateGroups(instDir, b.cfg.Backup.Retention)
	}
	return store.RotateFiles(instDir, b.cfg.Backup.Retention)
}

func (b *Backup) replicate(localPath, remoteName string) error {
	for _, st := range b.remotes {
		b.log.Infof("Replicating %s offsite", remoteName)
		if err := st.Upload(localPath, remoteName); err != nil {
			return fmt.Errorf("failed to replicate %s: %w", remoteName, err)
		}
	}
	return nil
}

func hasGlob(patterns []string) bool {
	for _, p := range patterns {
		if strings.ContainsAny(p, "*?[{") {
			return true
		}
	}
	return false
}
