package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"dbdock/pkg/config"
	"dbdock/pkg/runner"
)

const defaultMySQLImage = "mysql:8"

// mysqlSystemDatabases are the schemas MySQL ships with; they are
// never enumerated for backup.
var mysqlSystemDatabases = map[string]bool{
	"information_schema": true,
	"mysql":              true,
	"performance_schema": true,
	"sys":                true,
}

// MySQL backs up databases with mysqldump into gzip-compressed SQL
// text, and restores by streaming the decompressed dump into mysql.
type MySQL struct {
	run runner.Runner
}

// NewMySQL creates the MySQL adapter
func NewMySQL(run runner.Runner) *MySQL {
	return &MySQL{run: run}
}

func (m *MySQL) Kind() Kind             { return KindMySQL }
func (m *MySQL) ArtifactExt() string    { return ".sql.gz" }
func (m *MySQL) GroupedArtifacts() bool { return true }

func (m *MySQL) Supports(mode Mode) bool { return mode == ModeSingle }

// clientArgs is the mysql client connection prefix shared by catalog
// queries, destination creation, and restore streaming
func (m *MySQL) clientArgs(inst config.Instance) []string {
	return []string{
		"mysql",
		"-h", inst.Host,
		"-P", strconv.Itoa(inst.PortOr(3306)),
		"-u", inst.User,
		"-p" + inst.Password,
	}
}

func (m *MySQL) EnumerateDatabases(ctx context.Context, inst config.Instance) ([]string, error) {
	spec := runner.Spec{
		Image: inst.ImageOr(defaultMySQLImage),
		Argv:  append(m.clientArgs(inst), "-N", "-e", "SHOW DATABASES"),
	}

	out, err := m.run.Output(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("mysql: failed to enumerate databases on %s: %w", inst.Name, err)
	}

	var databases []string
	for _, line := range strings.Split(out, "\n") {
		name := strings.TrimSpace(line)
		if name == "" || mysqlSystemDatabases[name] {
			continue
		}
		databases = append(databases, name)
	}
	return databases, nil
}

func (m *MySQL) BackupDatabase(ctx context.Context, inst config.Instance, database, destPath string) error {
	spec := runner.Spec{
		Image: inst.ImageOr(defaultMySQLImage),
		Argv: []string{
			"mysqldump",
			"--column-statistics=0",
			"-h", inst.Host,
			"-P", strconv.Itoa(inst.PortOr(3306)),
			"-u", inst.User,
			"-p" + inst.Password,
			"--single-transaction",
			"--quick",
			"--routines",
			"--events",
			database,
		},
	}

	if err := runToGzip(ctx, m.run, spec, destPath); err != nil {
		return fmt.Errorf("mysql: backup of %s on %s failed: %w", database, inst.Name, err)
	}
	return nil
}

func (m *MySQL) EnsureDestination(ctx context.Context, inst config.Instance, targetDB string) error {
	spec := runner.Spec{
		Image: inst.ImageOr(defaultMySQLImage),
		Argv:  append(m.clientArgs(inst), "-e", fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`;", targetDB)),
	}

	if err := m.run.Run(ctx, spec); err != nil {
		return fmt.Errorf("mysql: failed to create database %s on %s: %w", targetDB, inst.Name, err)
	}
	return nil
}

func (m *MySQL) RestoreDatabase(ctx context.Context, inst config.Instance, req RestoreRequest) error {
	if req.Mode != ModeSingle {
		return fmt.Errorf("mysql: %w: %s", ErrUnsupportedMode, req.Mode)
	}
	if req.TargetDB == "" {
		return errors.New("mysql: single mode requires a target database")
	}

	if err := m.EnsureDestination(ctx, inst, req.TargetDB); err != nil {
		return err
	}

	spec := runner.Spec{
		Image: inst.ImageOr(defaultMySQLImage),
		Argv:  append(m.clientArgs(inst), req.TargetDB),
	}

	if err := runFromGzip(ctx, m.run, spec, req.ArtifactPath); err != nil {
		return fmt.Errorf("mysql: restore into %s on %s failed: %w", req.TargetDB, inst.Name, err)
	}
	return nil
}
