package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// DiskStore keeps each entry in its own file under dir.
// Writes replace the whole file atomically; concurrent writers from
// separate processes are last-write-wins.
type DiskStore struct {
	dir string
}

// NewDiskStore creates a disk store rooted at dir. The directory is created on first write.
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{dir: dir}
}

// Dir returns the root directory of the store
func (s *DiskStore) Dir() string {
	return s.dir
}

type diskEntry struct {
	Data      json.RawMessage `json:"data,omitempty"`
	Text      *string         `json:"text,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Get reads an entry. Missing or unreadable entries are reported as absent.
func (s *DiskStore) Get(key string) ([]byte, bool) {
	if ValidateKey(key) != nil {
		return nil, false
	}

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, false
	}

	// Anything that is not an envelope goes back to the caller as-is;
	// the caller decides whether it parses.
	var entry diskEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return data, true
	}
	switch {
	case entry.Text != nil:
		return []byte(*entry.Text), true
	case entry.Data != nil:
		return []byte(entry.Data), true
	default:
		return data, true
	}
}

// Set writes an entry atomically (temp file + rename)
func (s *DiskStore) Set(key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	entry := diskEntry{UpdatedAt: time.Now().UTC()}
	if json.Valid(value) {
		entry.Data = json.RawMessage(value)
	} else {
		text := string(value)
		entry.Text = &text
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write entry: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close entry: %w", err)
	}

	if err := os.Rename(tmpName, s.path(key)); err != nil {
		return fmt.Errorf("replace entry: %w", err)
	}
	return nil
}

// Delete removes an entry. Deleting a missing entry is not an error.
func (s *DiskStore) Delete(key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

func (s *DiskStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}
