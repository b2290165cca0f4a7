package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"dbdock/pkg/config"
	"dbdock/pkg/runner"
)

const defaultPostgresImage = "postgres:16"

// PostgreSQL backs up databases as pg_dump custom-format dumps,
// readable only by pg_restore. It is the one engine that also
// supports full-instance restores: an "all" mode dump is streamed
// into psql with no pre-selected database, so each statement targets
// whatever its own database context names.
type PostgreSQL struct {
	run runner.Runner
}

// NewPostgreSQL creates the PostgreSQL adapter
func NewPostgreSQL(run runner.Runner) *PostgreSQL {
	return &PostgreSQL{run: run}
}

func (p *PostgreSQL) Kind() Kind             { return KindPostgreSQL }
func (p *PostgreSQL) ArtifactExt() string    { return ".dump" }
func (p *PostgreSQL) GroupedArtifacts() bool { return true }

func (p *PostgreSQL) Supports(mode Mode) bool {
	return mode == ModeSingle || mode == ModeAll
}

func (p *PostgreSQL) connArgs(inst config.Instance) []string {
	return []string{
		"-h", inst.Host,
		"-p", strconv.Itoa(inst.PortOr(5432)),
		"-U", inst.User,
	}
}

func (p *PostgreSQL) env(inst config.Instance) map[string]string {
	return map[string]string{"PGPASSWORD": inst.Password}
}

func (p *PostgreSQL) EnumerateDatabases(ctx context.Context, inst config.Instance) ([]string, error) {
	argv := append([]string{"psql"}, p.connArgs(inst)...)
	argv = append(argv, "-At", "-c", "SELECT datname FROM pg_database WHERE datistemplate = false;")

	spec := runner.Spec{
		Image: inst.ImageOr(defaultPostgresImage),
		Argv:  argv,
		Env:   p.env(inst),
	}

	out, err := p.run.Output(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("postgresql: failed to enumerate databases on %s: %w", inst.Name, err)
	}

	var databases []string
	for _, line := range strings.Split(out, "\n") {
		name := strings.TrimSpace(line)
		if name == "" {
			continue
		}
		databases = append(databases, name)
	}
	return databases, nil
}

func (p *PostgreSQL) BackupDatabase(ctx context.Context, inst config.Instance, database, destPath string) error {
	argv := append([]string{"pg_dump", "-Fc"}, p.connArgs(inst)...)
	argv = append(argv, "-d", database)

	spec := runner.Spec{
		Image: inst.ImageOr(defaultPostgresImage),
		Argv:  argv,
		Env:   p.env(inst),
	}

	if err := runToFile(ctx, p.run, spec, destPath); err != nil {
		return fmt.Errorf("postgresql: backup of %s on %s failed: %w", database, inst.Name, err)
	}
	return nil
}

func (p *PostgreSQL) EnsureDestination(ctx context.Context, inst config.Instance, targetDB string) error {
	argv := append([]string{"psql"}, p.connArgs(inst)...)
	argv = append(argv, "-tc", fmt.Sprintf("SELECT 1 FROM pg_database WHERE datname='%s';", targetDB))

	out, err := p.run.Output(ctx, runner.Spec{
		Image: inst.ImageOr(defaultPostgresImage),
		Argv:  argv,
		Env:   p.env(inst),
	})
	if err != nil {
		return fmt.Errorf("postgresql: failed to check for database %s on %s: %w", targetDB, inst.Name, err)
	}
	if strings.TrimSpace(out) != "" {
		return nil
	}

	logrus.Infof("Creating PostgreSQL database: %s", targetDB)

	createArgv := append([]string{"createdb"}, p.connArgs(inst)...)
	createArgv = append(createArgv, targetDB)

	if err := p.run.Run(ctx, runner.Spec{
		Image: inst.ImageOr(defaultPostgresImage),
		Argv:  createArgv,
		Env:   p.env(inst),
	}); err != nil {
		return fmt.Errorf("postgresql: failed to create database %s on %s: %w", targetDB, inst.Name, err)
	}
	return nil
}

func (p *PostgreSQL) RestoreDatabase(ctx context.Context, inst config.Instance, req RestoreRequest) error {
	switch req.Mode {
	case ModeSingle:
		return p.restoreSingle(ctx, inst, req)
	case ModeAll:
		return p.restoreAll(ctx, inst, req)
	}
	return fmt.Errorf("postgresql: %w: %s", ErrUnsupportedMode, req.Mode)
}

func (p *PostgreSQL) restoreSingle(ctx context.Context, inst config.Instance, req RestoreRequest) error {
	if req.SourceDB == "" || req.TargetDB == "" {
		return errors.New("postgresql: single mode requires a source and a target database")
	}

	if err := p.EnsureDestination(ctx, inst, req.TargetDB); err != nil {
		return err
	}

	argv := append([]string{"pg_restore"}, p.connArgs(inst)...)
	argv = append(argv, "-d", req.TargetDB, "--clean", "--if-exists")

	spec := runner.Spec{
		Image: inst.ImageOr(defaultPostgresImage),
		Argv:  argv,
		Env:   p.env(inst),
	}

	if err := runFromFile(ctx, p.run, spec, req.ArtifactPath); err != nil {
		return fmt.Errorf("postgresql: restore into %s on %s failed: %w", req.TargetDB, inst.Name, err)
	}
	return nil
}

// restoreAll streams the dump straight into psql against no
// pre-selected database. No destination preparation: the dump's own
// statements decide what they target, and target_db is ignored.
func (p *PostgreSQL) restoreAll(ctx context.Context, inst config.Instance, req RestoreRequest) error {
	spec := runner.Spec{
		Image: inst.ImageOr(defaultPostgresImage),
		Argv:  append([]string{"psql"}, p.connArgs(inst)...),
		Env:   p.env(inst),
	}

	if err := runFromFile(ctx, p.run, spec, req.ArtifactPath); err != nil {
		return fmt.Errorf("postgresql: full restore on %s failed: %w", inst.Name, err)
	}
	return nil
}
