package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// Entry is one rotation candidate: an artifact file or a timestamp
// group directory
type Entry struct {
	Path    string
	ModTime time.Time
}

// Rotate deletes the oldest entries until at most keep remain,
// ordered by modification time with a stable sort. Every deletion is
// logged before it happens; deletion is irreversible. A failed
// deletion aborts the pass, returning the paths already deleted
// alongside the error so callers can report what completed. keep <= 0
// removes everything; keep >= len(entries) deletes nothing.
func Rotate(entries []Entry, keep int, remove func(string) error) ([]string, error) {
	if keep < 0 {
		keep = 0
	}

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ModTime.Before(sorted[j].ModTime)
	})

	var deleted []string
	for len(sorted) > keep {
		oldest := sorted[0]
		sorted = sorted[1:]

		logrus.Infof("Deleting old backup: %s", oldest.Path)
		if err := remove(oldest.Path); err != nil {
			return deleted, fmt.Errorf("retention: failed to delete %s after %d deletion(s): %w",
				oldest.Path, len(deleted), err)
		}
		deleted = append(deleted, oldest.Path)
	}
	return deleted, nil
}

// RotateFiles applies retention to the flat artifact files of an
// instance directory
func RotateFiles(dir string, keep int) ([]string, error) {
	entries, err := listEntries(dir, false)
	if err != nil {
		return nil, err
	}
	return Rotate(entries, keep, os.Remove)
}

// RotateGroups applies retention to the timestamp group directories
// of an instance directory; group deletion is recursive
func RotateGroups(dir string, keep int) ([]string, error) {
	entries, err := listEntries(dir, true)
	if err != nil {
		return nil, err
	}
	return Rotate(entries, keep, os.RemoveAll)
}

func listEntries(dir string, dirs bool) ([]Entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("retention: failed to list %s: %w", dir, err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() != dirs {
			continue
		}
		info, err := de.Info()
		if err != nil {
			return nil, fmt.Errorf("retention: failed to stat %s: %w", de.Name(), err)
		}
		entries = append(entries, Entry{
			Path:    filepath.Join(dir, de.Name()),
			ModTime: info.ModTime(),
		})
	}
	return entries, nil
}
