package engine

import (
	"context"
	"errors"
	"fmt"

	"dbdock/pkg/config"
	"dbdock/pkg/runner"
)

// SQLite dumps a database file to gzip-compressed SQL text with the
// host sqlite3 binary. An instance is exactly one database file, so
// there is nothing to enumerate, artifacts are flat timestamped
// files rather than timestamp groups, and restore is out of scope:
// decompressing the dump into sqlite3 against a fresh file is a
// one-liner that needs no orchestration.
type SQLite struct {
	run runner.Runner
}

// NewSQLite creates the SQLite adapter
func NewSQLite(run runner.Runner) *SQLite {
	return &SQLite{run: run}
}

func (s *SQLite) Kind() Kind             { return KindSQLite }
func (s *SQLite) ArtifactExt() string    { return ".sql.gz" }
func (s *SQLite) GroupedArtifacts() bool { return false }

func (s *SQLite) Supports(Mode) bool { return false }

func (s *SQLite) EnumerateDatabases(ctx context.Context, inst config.Instance) ([]string, error) {
	return nil, errors.New("sqlite: an instance holds a single database")
}

func (s *SQLite) BackupDatabase(ctx context.Context, inst config.Instance, _, destPath string) error {
	spec := runner.Spec{
		Argv: []string{"sqlite3", inst.Path, ".dump"},
	}

	if err := runToGzip(ctx, s.run, spec, destPath); err != nil {
		return fmt.Errorf("sqlite: backup of %s failed: %w", inst.Name, err)
	}
	return nil
}

func (s *SQLite) EnsureDestination(ctx context.Context, inst config.Instance, targetDB string) error {
	return errors.New("sqlite: restore is not supported")
}

func (s *SQLite) RestoreDatabase(ctx context.Context, inst config.Instance, req RestoreRequest) error {
	return fmt.Errorf("sqlite: %w: %s", ErrUnsupportedMode, req.Mode)
}
