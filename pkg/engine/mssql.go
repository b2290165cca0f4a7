package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"dbdock/pkg/config"
	"dbdock/pkg/runner"
)

const defaultMSSQLImage = "mcr.microsoft.com/mssql-tools"

// MSSQL backs up with server-side BACKUP DATABASE statements writing
// native .bak files into a bind-mounted artifact directory, and
// restores with RESTORE DATABASE from the same mount. The restore
// target is always dropped and recreated first: .bak restores demand
// a consistent destination, and SINGLE_USER WITH ROLLBACK IMMEDIATE
// evicts any session that would hold the drop open.
type MSSQL struct {
	run runner.Runner
}

// NewMSSQL creates the MSSQL adapter
func NewMSSQL(run runner.Runner) *MSSQL {
	return &MSSQL{run: run}
}

func (s *MSSQL) Kind() Kind             { return KindMSSQL }
func (s *MSSQL) ArtifactExt() string    { return ".bak" }
func (s *MSSQL) GroupedArtifacts() bool { return true }

func (s *MSSQL) Supports(mode Mode) bool { return mode == ModeSingle }

func (s *MSSQL) sqlcmdArgs(inst config.Instance) []string {
	return []string{
		"sqlcmd",
		"-S", fmt.Sprintf("%s,%d", inst.Host, inst.PortOr(1433)),
		"-U", inst.User,
		"-P", inst.Password,
	}
}

func (s *MSSQL) EnumerateDatabases(ctx context.Context, inst config.Instance) ([]string, error) {
	// -h -1 -W: no column headers or padding in the catalog listing.
	argv := append(s.sqlcmdArgs(inst),
		"-h", "-1", "-W",
		"-Q", "SET NOCOUNT ON; SELECT name FROM sys.databases WHERE database_id > 4")

	out, err := s.run.Output(ctx, runner.Spec{
		Image: inst.ImageOr(defaultMSSQLImage),
		Argv:  argv,
	})
	if err != nil {
		return nil, fmt.Errorf("mssql: failed to enumerate databases on %s: %w", inst.Name, err)
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

func (s *MSSQL) BackupDatabase(ctx context.Context, inst config.Instance, database, destPath string) error {
	hostDir, err := filepath.Abs(filepath.Dir(destPath))
	if err != nil {
		return fmt.Errorf("mssql: failed to resolve artifact directory: %w", err)
	}

	query := fmt.Sprintf("BACKUP DATABASE [%s]\nTO DISK = '/backup/%s'\nWITH INIT",
		database, filepath.Base(destPath))

	spec := runner.Spec{
		Image: inst.ImageOr(defaultMSSQLImage),
		Argv:  append(s.sqlcmdArgs(inst), "-Q", query),
		Binds: []string{hostDir + ":/backup"},
	}

	if err := s.run.Run(ctx, spec); err != nil {
		return fmt.Errorf("mssql: backup of %s on %s failed: %w", database, inst.Name, err)
	}
	return nil
}

func (s *MSSQL) EnsureDestination(ctx context.Context, inst config.Instance, targetDB string) error {
	query := fmt.Sprintf(`IF DB_ID(N'%[1]s') IS NOT NULL
BEGIN
ALTER DATABASE [%[1]s] SET SINGLE_USER WITH ROLLBACK IMMEDIATE;
DROP DATABASE [%[1]s];
END
CREATE DATABASE [%[1]s];`, targetDB)

	spec := runner.Spec{
		Image: inst.ImageOr(defaultMSSQLImage),
		Argv:  append(s.sqlcmdArgs(inst), "-Q", query),
	}

	if err := s.run.Run(ctx, spec); err != nil {
		return fmt.Errorf("mssql: failed to recreate database %s on %s: %w", targetDB, inst.Name, err)
	}
	return nil
}

func (s *MSSQL) RestoreDatabase(ctx context.Context, inst config.Instance, req RestoreRequest) error {
	if req.Mode != ModeSingle {
		return fmt.Errorf("mssql: %w: %s", ErrUnsupportedMode, req.Mode)
	}
	if req.TargetDB == "" {
		return errors.New("mssql: single mode requires a target database")
	}

	if err := s.EnsureDestination(ctx, inst, req.TargetDB); err != nil {
		return err
	}

	artifact, err := filepath.Abs(req.ArtifactPath)
	if err != nil {
		return fmt.Errorf("mssql: failed to resolve artifact path: %w", err)
	}

	query := fmt.Sprintf("RESTORE DATABASE [%s]\nFROM DISK = '/backup/%s'\nWITH REPLACE",
		req.TargetDB, filepath.Base(artifact))

	spec := runner.Spec{
		Image: inst.ImageOr(defaultMSSQLImage),
		Argv:  append(s.sqlcmdArgs(inst), "-Q", query),
		Binds: []string{filepath.Dir(artifact) + ":/backup"},
	}

	if err := s.run.Run(ctx, spec); err != nil {
		return fmt.Errorf("mssql: restore into %s on %s failed: %w", req.TargetDB, inst.Name, err)
	}
	return nil
}
