// Package engine implements the per-database-engine backup and
// restore adapters. Each adapter knows how to enumerate databases,
// stream a native dump to an artifact file, prepare a restore
// destination, and stream an artifact back into the restore tool.
package engine

import (
	"context"
	"errors"
	"fmt"

	"dbdock/pkg/config"
	"dbdock/pkg/runner"
)

// Kind identifies a database engine
type Kind string

const (
	KindSQLite     Kind = "sqlite"
	KindMySQL      Kind = "mysql"
	KindPostgreSQL Kind = "postgresql"
	KindMSSQL      Kind = "mssql"
	KindMongoDB    Kind = "mongodb"
)

// Mode selects the restore granularity
type Mode string

const (
	// ModeSingle restores exactly one database, remapped from a
	// source name to a target name.
	ModeSingle Mode = "single"

	// ModeAll replays a full-instance dump with no predetermined
	// target database.
	ModeAll Mode = "all"
)

// ErrUnsupportedMode reports a restore mode the engine cannot serve
var ErrUnsupportedMode = errors.New("unsupported restore mode")

// ParseKind validates an engine name from the command line
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindSQLite, KindMySQL, KindPostgreSQL, KindMSSQL, KindMongoDB:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unsupported database type: %q", s)
}

// ParseMode validates a restore mode from the command line
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSingle, ModeAll:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: %q (must be %q or %q)", ErrUnsupportedMode, s, ModeSingle, ModeAll)
}

// RestoreRequest carries the parameters of one restore invocation
type RestoreRequest struct {
	ArtifactPath string
	Mode         Mode
	SourceDB     string
	TargetDB     string
}

// Database is the uniform adapter contract the orchestrators dispatch
// on. Adapters surface raw tool failures wrapped with engine context;
// they never retry or continue past an error.
type Database interface {
	Kind() Kind

	// ArtifactExt is the file extension of this engine's artifacts.
	ArtifactExt() string

	// GroupedArtifacts reports whether one run's artifacts are
	// grouped under a timestamp directory. False only for SQLite,
	// which produces one flat file per run.
	GroupedArtifacts() bool

	// Supports reports whether the engine can serve a restore mode.
	Supports(mode Mode) bool

	// EnumerateDatabases queries the engine catalog, excluding
	// engine-reserved system databases.
	EnumerateDatabases(ctx context.Context, inst config.Instance) ([]string, error)

	// BackupDatabase streams the native dump of one database into
	// destPath. The database argument is ignored by SQLite.
	BackupDatabase(ctx context.Context, inst config.Instance, database, destPath string) error

	// EnsureDestination idempotently prepares the restore target.
	EnsureDestination(ctx context.Context, inst config.Instance, targetDB string) error

	// RestoreDatabase validates the request and streams the
	// artifact into the restore tool. Mode validation happens
	// before any destination mutation.
	RestoreDatabase(ctx context.Context, inst config.Instance, req RestoreRequest) error
}

// New returns the adapter for an engine kind
func New(kind Kind, run runner.Runner) (Database, error) {
	switch kind {
	case KindSQLite:
		return NewSQLite(run), nil
	case KindMySQL:
		return NewMySQL(run), nil
	case KindPostgreSQL:
		return NewPostgreSQL(run), nil
	case KindMSSQL:
		return NewMSSQL(run), nil
	case KindMongoDB:
		return NewMongoDB(run), nil
	}
	return nil, fmt.Errorf("unsupported database type: %q", kind)
}

// All returns every adapter in the fixed backup order
func All(run runner.Runner) []Database {
	return []Database{
		NewSQLite(run),
		NewMySQL(run),
		NewPostgreSQL(run),
		NewMSSQL(run),
		NewMongoDB(run),
	}
}
