package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestArtifactLayout(t *testing.T) {
	instDir := InstanceDir("backups", "mysql", "primary")
	if instDir != filepath.Join("backups", "mysql", "primary") {
		t.Errorf("InstanceDir = %q", instDir)
	}

	group := GroupDir(instDir, "20240101_030000")
	if group != filepath.Join("backups", "mysql", "primary", "20240101_030000") {
		t.Errorf("GroupDir = %q", group)
	}

	artifact := GroupArtifactPath(group, "shop", ".sql.gz")
	if filepath.Base(artifact) != "shop.sql.gz" {
		t.Errorf("GroupArtifactPath = %q", artifact)
	}

	flat := FlatArtifactPath(InstanceDir("backups", "sqlite", "notes"), "notes", "20240101_030000", ".sql.gz")
	if filepath.Base(flat) != "notes_20240101_030000.sql.gz" {
		t.Errorf("FlatArtifactPath = %q", flat)
	}
}

func TestTimestampFormatRoundTrip(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	stamp := at.Format(TimestampFormat)
	if stamp != "20240102_030405" {
		t.Errorf("timestamp = %q", stamp)
	}

	parsed, err := time.Parse(TimestampFormat, stamp)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !parsed.Equal(at) {
		t.Errorf("round trip = %v, want %v", parsed, at)
	}
}

func TestEnsureDirCreatesParents(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "mysql", "primary", "20240101_030000")
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Errorf("directory missing after EnsureDir: %v", err)
	}

	// Idempotent on an existing directory.
	if err := EnsureDir(dir); err != nil {
		t.Errorf("EnsureDir on existing dir: %v", err)
	}
}
