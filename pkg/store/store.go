// Package store owns the on-disk artifact layout and the retention
// rotation that prunes it. Layout: root/<engine>/<instance>/ holding
// either flat <instance>_<timestamp><ext> files (SQLite) or
// <timestamp>/<database><ext> groups (server engines).
package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// TimestampFormat names artifacts and artifact groups. One run
// shares one timestamp, so paths derived from (engine, instance,
// timestamp, database) cannot collide within a run.
const TimestampFormat = "20060102_150405"

// EngineDir returns the directory holding all of an engine's
// instances
func EngineDir(root, engine string) string {
	return filepath.Join(root, engine)
}

// InstanceDir returns the directory holding one instance's artifacts
func InstanceDir(root, engine, instance string) string {
	return filepath.Join(root, engine, instance)
}

// FlatArtifactPath returns the path of a single-file artifact
func FlatArtifactPath(instanceDir, instance, timestamp, ext string) string {
	return filepath.Join(instanceDir, instance+"_"+timestamp+ext)
}

// GroupDir returns the timestamp directory grouping one run's
// artifacts for an instance
func GroupDir(instanceDir, timestamp string) string {
	return filepath.Join(instanceDir, timestamp)
}

// GroupArtifactPath returns the path of one database's artifact
// inside a group
func GroupArtifactPath(groupDir, database, ext string) string {
	return filepath.Join(groupDir, database+ext)
}

// EnsureDir creates a directory and any missing parents
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}
