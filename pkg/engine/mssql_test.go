package engine

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"dbdock/pkg/config"
)

func mssqlInstance() config.Instance {
	return config.Instance{
		Name:     "erp",
		Host:     "mssql.example.com",
		User:     "sa",
		Password: "hunter2",
	}
}

func TestMSSQLEnumerate(t *testing.T) {
	run := &fakeRunner{outputs: []string{"Northwind\nAdventureWorks\n\n"}}
	s := NewMSSQL(run)

	databases, err := s.EnumerateDatabases(context.Background(), mssqlInstance())
	if err != nil {
		t.Fatalf("EnumerateDatabases: %v", err)
	}
	if !reflect.DeepEqual(databases, []string{"Northwind", "AdventureWorks"}) {
		t.Errorf("databases = %v", databases)
	}

	spec := run.lastSpec(t)
	argv := strings.Join(spec.Argv, " ")
	if !strings.Contains(argv, "-S mssql.example.com,1433") {
		t.Errorf("server argument missing: %v", spec.Argv)
	}
	if !strings.Contains(argv, "-h -1 -W") {
		t.Errorf("headerless output flags missing: %v", spec.Argv)
	}
	if !strings.Contains(argv, "database_id > 4") {
		t.Errorf("system database filter missing: %v", spec.Argv)
	}
}

func TestMSSQLBackupBindsArtifactDirectory(t *testing.T) {
	run := &fakeRunner{}
	s := NewMSSQL(run)

	dir := t.TempDir()
	destPath := filepath.Join(dir, "Northwind.bak")
	if err := s.BackupDatabase(context.Background(), mssqlInstance(), "Northwind", destPath); err != nil {
		t.Fatalf("BackupDatabase: %v", err)
	}

	spec := run.lastSpec(t)
	if spec.Image != "mcr.microsoft.com/mssql-tools" {
		t.Errorf("image = %q", spec.Image)
	}
	if len(spec.Binds) != 1 || spec.Binds[0] != dir+":/backup" {
		t.Errorf("binds = %v, want %s:/backup", spec.Binds, dir)
	}

	query := spec.Argv[len(spec.Argv)-1]
	if !strings.Contains(query, "BACKUP DATABASE [Northwind]") ||
		!strings.Contains(query, "TO DISK = '/backup/Northwind.bak'") ||
		!strings.Contains(query, "WITH INIT") {
		t.Errorf("backup query = %q", query)
	}
}

func TestMSSQLEnsureDestinationRecreates(t *testing.T) {
	run := &fakeRunner{}
	s := NewMSSQL(run)

	if err := s.EnsureDestination(context.Background(), mssqlInstance(), "Staging"); err != nil {
		t.Fatalf("EnsureDestination: %v", err)
	}

	query := run.lastSpec(t).Argv[len(run.lastSpec(t).Argv)-1]
	for _, stmt := range []string{
		"IF DB_ID(N'Staging') IS NOT NULL",
		"SET SINGLE_USER WITH ROLLBACK IMMEDIATE",
		"DROP DATABASE [Staging]",
		"CREATE DATABASE [Staging]",
	} {
		if !strings.Contains(query, stmt) {
			t.Errorf("ensure query missing %q:\n%s", stmt, query)
		}
	}
}

func TestMSSQLRestore(t *testing.T) {
	run := &fakeRunner{}
	s := NewMSSQL(run)

	dir := t.TempDir()
	artifact := filepath.Join(dir, "Northwind.bak")

	req := RestoreRequest{
		ArtifactPath: artifact,
		Mode:         ModeSingle,
		TargetDB:     "NorthwindCopy",
	}
	if err := s.RestoreDatabase(context.Background(), mssqlInstance(), req); err != nil {
		t.Fatalf("RestoreDatabase: %v", err)
	}

	if len(run.specs) != 2 {
		t.Fatalf("expected recreate then restore, got %d specs", len(run.specs))
	}

	restore := run.specs[1]
	if len(restore.Binds) != 1 || restore.Binds[0] != dir+":/backup" {
		t.Errorf("binds = %v", restore.Binds)
	}
	query := restore.Argv[len(restore.Argv)-1]
	if !strings.Contains(query, "RESTORE DATABASE [NorthwindCopy]") ||
		!strings.Contains(query, "FROM DISK = '/backup/Northwind.bak'") ||
		!strings.Contains(query, "WITH REPLACE") {
		t.Errorf("restore query = %q", query)
	}
}

func TestMSSQLRestoreRejectsAllMode(t *testing.T) {
	run := &fakeRunner{}
	s := NewMSSQL(run)

	err := s.RestoreDatabase(context.Background(), mssqlInstance(), RestoreRequest{
		ArtifactPath: "x.bak",
		Mode:         ModeAll,
		TargetDB:     "Staging",
	})
	if !errors.Is(err, ErrUnsupportedMode) {
		t.Errorf("expected ErrUnsupportedMode, got %v", err)
	}
	if len(run.specs) != 0 {
		t.Errorf("no tool should run after mode rejection, got %d specs", len(run.specs))
	}
}
