package engine

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"dbdock/pkg/config"
)

func mysqlInstance() config.Instance {
	return config.Instance{
		Name:     "primary",
		Host:     "db.example.com",
		User:     "root",
		Password: "hunter2",
	}
}

func TestMySQLEnumerateExcludesSystemDatabases(t *testing.T) {
	run := &fakeRunner{outputs: []string{
		"information_schema\nmysql\nshop\nperformance_schema\nsys\nwordpress\n",
	}}
	m := NewMySQL(run)

	databases, err := m.EnumerateDatabases(context.Background(), mysqlInstance())
	if err != nil {
		t.Fatalf("EnumerateDatabases: %v", err)
	}
	if !reflect.DeepEqual(databases, []string{"shop", "wordpress"}) {
		t.Errorf("databases = %v", databases)
	}

	spec := run.lastSpec(t)
	if spec.Image != "mysql:8" {
		t.Errorf("image = %q, want mysql:8", spec.Image)
	}
	argv := strings.Join(spec.Argv, " ")
	if !strings.Contains(argv, "SHOW DATABASES") || !strings.Contains(argv, "-N") {
		t.Errorf("unexpected argv: %v", spec.Argv)
	}
}

func TestMySQLBackupWritesGzippedDump(t *testing.T) {
	dump := "CREATE TABLE orders (id INT);\nINSERT INTO orders VALUES (1);\n"
	run := &fakeRunner{stdout: []byte(dump)}
	m := NewMySQL(run)

	destPath := filepath.Join(t.TempDir(), "shop.sql.gz")
	if err := m.BackupDatabase(context.Background(), mysqlInstance(), "shop", destPath); err != nil {
		t.Fatalf("BackupDatabase: %v", err)
	}

	spec := run.lastSpec(t)
	if spec.Tool() != "mysqldump" {
		t.Errorf("tool = %q", spec.Tool())
	}
	argv := strings.Join(spec.Argv, " ")
	for _, flag := range []string{"--column-statistics=0", "--single-transaction", "--quick", "--routines", "--events"} {
		if !strings.Contains(argv, flag) {
			t.Errorf("argv missing %s: %v", flag, spec.Argv)
		}
	}
	if spec.Argv[len(spec.Argv)-1] != "shop" {
		t.Errorf("database should be the last argument: %v", spec.Argv)
	}

	if got := gunzipFile(t, destPath); got != dump {
		t.Errorf("artifact content = %q, want %q", got, dump)
	}
}

func TestMySQLRestoreEnsuresDestinationFirst(t *testing.T) {
	dump := "CREATE TABLE orders (id INT);\n"
	run := &fakeRunner{}
	m := NewMySQL(run)

	artifact := writeGzipArtifact(t, dump)
	req := RestoreRequest{
		ArtifactPath: artifact,
		Mode:         ModeSingle,
		SourceDB:     "shop",
		TargetDB:     "shop_copy",
	}
	if err := m.RestoreDatabase(context.Background(), mysqlInstance(), req); err != nil {
		t.Fatalf("RestoreDatabase: %v", err)
	}

	if len(run.specs) != 2 {
		t.Fatalf("expected 2 invocations, got %d", len(run.specs))
	}
	ensure := strings.Join(run.specs[0].Argv, " ")
	if !strings.Contains(ensure, "CREATE DATABASE IF NOT EXISTS `shop_copy`") {
		t.Errorf("first invocation should create the target: %v", run.specs[0].Argv)
	}

	restore := run.specs[1]
	if restore.Argv[len(restore.Argv)-1] != "shop_copy" {
		t.Errorf("restore should target shop_copy: %v", restore.Argv)
	}
	if len(run.stdins) != 1 || string(run.stdins[0]) != dump {
		t.Errorf("restore stdin = %q, want decompressed dump", run.stdins)
	}
}

func TestMySQLRestoreRejectsAllMode(t *testing.T) {
	run := &fakeRunner{}
	m := NewMySQL(run)

	err := m.RestoreDatabase(context.Background(), mysqlInstance(), RestoreRequest{
		ArtifactPath: "x.sql.gz",
		Mode:         ModeAll,
		TargetDB:     "shop",
	})
	if !errors.Is(err, ErrUnsupportedMode) {
		t.Errorf("expected ErrUnsupportedMode, got %v", err)
	}
	if len(run.specs) != 0 {
		t.Errorf("no tool should run after mode rejection, got %d specs", len(run.specs))
	}
}

func TestMySQLRestoreRequiresTarget(t *testing.T) {
	run := &fakeRunner{}
	m := NewMySQL(run)

	err := m.RestoreDatabase(context.Background(), mysqlInstance(), RestoreRequest{
		ArtifactPath: "x.sql.gz",
		Mode:         ModeSingle,
	})
	if err == nil {
		t.Fatal("expected error for missing target database")
	}
	if len(run.specs) != 0 {
		t.Errorf("no tool should run without a target, got %d specs", len(run.specs))
	}
}

func TestMySQLImageOverride(t *testing.T) {
	run := &fakeRunner{outputs: []string{""}}
	m := NewMySQL(run)

	inst := mysqlInstance()
	inst.Image = "mysql:5.7"
	if _, err := m.EnumerateDatabases(context.Background(), inst); err != nil {
		t.Fatalf("EnumerateDatabases: %v", err)
	}
	if got := run.lastSpec(t).Image; got != "mysql:5.7" {
		t.Errorf("image = %q, want mysql:5.7", got)
	}
}

func gunzipFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("artifact is not gzip: %v", err)
	}
	defer zr.Close()

	var out bytes.Buffer
	if _, err := out.ReadFrom(zr); err != nil {
		t.Fatalf("decompressing artifact: %v", err)
	}
	return out.String()
}

func writeGzipArtifact(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "artifact.sql.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating artifact: %v", err)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write([]byte(content)); err != nil {
		t.Fatalf("writing artifact: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing gzip writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing artifact: %v", err)
	}
	return path
}
