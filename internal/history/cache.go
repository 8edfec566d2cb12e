package history

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/clearview/internal/model"
	"github.com/ppiankov/clearview/internal/storage"
)

// StorageKey names the storage entry holding the serialized history
const StorageKey = "factcheck_conversations"

// FilterAll disables the verdict filter
const FilterAll = "all"

// Cache is the local, newest-first record of past fact-checks.
// The whole collection is rewritten to storage on every change.
type Cache struct {
	mu      sync.RWMutex
	store   storage.Store
	entries []model.HistoryEntry
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

// NewCache creates an empty cache over store. Call Load to read persisted entries.
func NewCache(store storage.Store) *Cache {
	return &Cache{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// SetLogger sets the diagnostic logger
func (c *Cache) SetLogger(l *slog.Logger) {
	c.logger = l
}

// Load reads the persisted collection. A missing or unparsable entry yields an
// empty history.
func (c *Cache) Load() []model.HistoryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = nil
	data, ok := c.store.Get(StorageKey)
	if !ok || len(data) == 0 {
		return nil
	}

	var entries []model.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		c.logger.Warn("ignoring unreadable history", "error", err)
		return nil
	}
	c.entries = entries
	return c.snapshot()
}

// Append records a verification result as a new entry at the front of the
// history and persists the collection. The entry is kept in memory even when
// persisting fails.
func (c *Cache) Append(result model.VerificationResponse) (model.HistoryEntry, error) {
	entry := model.HistoryEntry{
		ID:              c.newID(),
		Claim:           result.Claim,
		Verdict:         result.Verdict,
		Confidence:      result.Confidence,
		PolicySources:   result.PolicySources,
		ExternalSources: result.ExternalSources,
		Reasoning:       result.Reasoning,
		ConflictsFound:  result.ConflictsFound,
		CreatedAt:       c.now().UTC(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = append([]model.HistoryEntry{entry}, c.entries...)
	return entry, c.persist()
}

// Persist writes the collection to storage. An empty collection is not written.
func (c *Cache) Persist() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.persist()
}

func (c *Cache) persist() error {
	if len(c.entries) == 0 {
		return nil
	}
	data, err := json.Marshal(c.entries)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := c.store.Set(StorageKey, data); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	c.logger.Debug("history saved", "entries", len(c.entries))
	return nil
}

// Find returns the entry with the given id
func (c *Cache) Find(id string) (model.HistoryEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.entries {
		if e.ID == id {
			return e, true
		}
	}
	return model.HistoryEntry{}, false
}

// Entries returns all entries, newest first
func (c *Cache) Entries() []model.HistoryEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot()
}

// Len returns the number of entries
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Filter returns the entries whose claim contains search and whose verdict
// contains verdict, both case-insensitive. An empty verdict or "all" matches
// every verdict. Order is preserved.
func (c *Cache) Filter(search, verdict string) []model.HistoryEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Filter(c.entries, search, verdict)
}

// Filter applies the history search to an arbitrary slice of entries
func Filter(entries []model.HistoryEntry, search, verdict string) []model.HistoryEntry {
	search = strings.ToLower(search)
	verdict = strings.ToLower(verdict)
	matchAll := verdict == "" || verdict == FilterAll

	out := make([]model.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		if search != "" && !strings.Contains(strings.ToLower(e.Claim), search) {
			continue
		}
		if !matchAll && !strings.Contains(strings.ToLower(string(e.Verdict)), verdict) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Clear empties the history and removes the persisted entry
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
	if err := c.store.Delete(StorageKey); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func (c *Cache) snapshot() []model.HistoryEntry {
	out := make([]model.HistoryEntry, len(c.entries))
	copy(out, c.entries)
	return out
}
