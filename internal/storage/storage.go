package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// Store is a named-entry persistent store shared by every component of the
// client. Writes to an entry replace it entirely; when two processes write the
// same entry the later write wins.
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte) error
	Delete(key string) error
}

var validKey = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// ValidateKey rejects entry names that cannot be used as file names
func ValidateKey(key string) error {
	if !validKey.MatchString(key) || key == "." || key == ".." {
		return fmt.Errorf("invalid storage key %q", key)
	}
	return nil
}

// DefaultDir returns $HOME/.clearview/storage
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return filepath.Join(home, ".clearview", "storage"), nil
}

// Open returns the store used by the CLI: a memory layer over files in dir
func Open(dir string) (*LayeredStore, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	return NewLayeredStore(NewMemoryStore(), NewDiskStore(dir)), nil
}
