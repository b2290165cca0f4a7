// Package remote replicates finished backup artifacts to offsite
// storage. Replication is append-only: local retention remains the
// authority over what exists, and remote copies are a recovery of
// last resort.
package remote

import (
	"fmt"
	"time"

	"dbdock/pkg/config"
)

// Storage is an offsite replication target
type Storage interface {
	// Upload copies a local artifact to the remote name, creating
	// any missing remote directories.
	Upload(localPath, remoteName string) error

	// List returns the remote artifacts under the given prefix.
	List(prefix string) ([]Artifact, error)

	// Close releases any open connections.
	Close() error
}

// Artifact describes one replicated backup file
type Artifact struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Open constructs every configured offsite backend. A nil offsite
// section yields no backends.
func Open(offsite *config.Offsite) ([]Storage, error) {
	if offsite == nil {
		return nil, nil
	}

	var stores []Storage
	if offsite.S3 != nil {
		s3Store, err := NewS3(offsite.S3)
		if err != nil {
			closeAll(stores)
			return nil, fmt.Errorf("failed to open S3 offsite storage: %w", err)
		}
		stores = append(stores, s3Store)
	}
	if offsite.SFTP != nil {
		sftpStore, err := NewSFTP(offsite.SFTP)
		if err != nil {
			closeAll(stores)
			return nil, fmt.Errorf("failed to open SFTP offsite storage: %w", err)
		}
		stores = append(stores, sftpStore)
	}
	return stores, nil
}

// CloseAll closes every backend, returning the first error
func CloseAll(stores []Storage) error {
	var first error
	for _, s := range stores {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func closeAll(stores []Storage) {
	for _, s := range stores {
		s.Close()
	}
}
