package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	logrus "github.com/sirupsen/logrus"
)

// Store is a small durable key-value store used to keep the in-progress trip
// across process restarts. Load returns (nil, nil) when the key is absent.
type Store interface {
	Save(key string, data []byte) error
	Load(key string) ([]byte, error)
	Clear(key string) error
}

// FileStore keeps each key as one JSON file under a base directory.
// It is single-writer by contract (only the trip lifecycle writes it).
type FileStore struct {
	dir string
}

// NewFileStore creates the base directory if needed and returns the store.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Save writes the value atomically: a temp file in the same directory is
// renamed over the target so a crash mid-write never leaves a torn file.
func (s *FileStore) Save(key string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file for %s: %w", key, err)
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("committing %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) Load(key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, nil
}

func (s *FileStore) Clear(key string) error {
	err := os.Remove(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		logrus.WithError(err).WithField("key", key).Warn("Failed to clear stored value.")
		return fmt.Errorf("clearing %s: %w", key, err)
	}
	return nil
}
