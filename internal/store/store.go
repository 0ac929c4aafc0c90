// Package store persists audit results keyed by the submission's
// idempotency key, so duplicate submissions are served from cache.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fairlens-ai/fairlens/internal/audit"
)

// Store provides idempotent result storage for audit submissions.
type Store interface {
	// Get retrieves a stored result by audit key. Returns nil if not found.
	Get(ctx context.Context, key string) (*audit.Result, error)

	// Set stores an audit result with TTL. First write wins.
	Set(ctx context.Context, key string, result *audit.Result, ttl time.Duration) error

	// Close releases resources
	Close() error
}

// MemoryStore is an in-memory result store with optional file snapshot.
type MemoryStore struct {
	mu       sync.RWMutex
	saves    sync.WaitGroup
	store    map[string]*entry
	snapshot string // optional file path for persistence
}

type entry struct {
	Result    *audit.Result
	ExpiresAt time.Time
}

// NewMemoryStore creates an in-memory result store.
func NewMemoryStore(snapshotPath string) *MemoryStore {
	ms := &MemoryStore{
		store:    make(map[string]*entry),
		snapshot: snapshotPath,
	}

	if snapshotPath != "" {
		ms.loadSnapshot()
	}

	return ms
}

func (m *MemoryStore) Get(ctx context.Context, key string) (*audit.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.store[key]
	if !ok {
		return nil, nil
	}

	if time.Now().After(e.ExpiresAt) {
		return nil, nil // expired
	}

	return e.Result, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, result *audit.Result, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// First write wins
	if e, exists := m.store[key]; exists {
		if time.Now().Before(e.ExpiresAt) {
			return nil
		}
	}

	m.store[key] = &entry{
		Result:    result,
		ExpiresAt: time.Now().Add(ttl),
	}

	if m.snapshot != "" {
		// Async to avoid blocking the request path.
		m.saves.Add(1)
		go func() {
			defer m.saves.Done()
			m.saveSnapshot()
		}()
	}

	return nil
}

func (m *MemoryStore) Close() error {
	if m.snapshot != "" {
		m.saves.Wait()
		return m.saveSnapshot()
	}
	return nil
}

func (m *MemoryStore) loadSnapshot() error {
	data, err := os.ReadFile(m.snapshot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // no snapshot yet
		}
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var snapshot map[string]*entry
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	// Only load non-expired entries
	now := time.Now()
	for k, v := range snapshot {
		if now.Before(v.ExpiresAt) {
			m.store[k] = v
		}
	}

	return nil
}

func (m *MemoryStore) saveSnapshot() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	toSave := make(map[string]*entry)
	for k, v := range m.store {
		if now.Before(v.ExpiresAt) {
			toSave[k] = v
		}
	}

	data, err := json.MarshalIndent(toSave, "", "  ")
	if err != nil {
		return err
	}

	// Write-then-rename so a crash or a concurrent reader never sees a
	// half-written snapshot. CreateTemp keeps concurrent savers off each
	// other's temp file; the last rename wins.
	dir, base := filepath.Split(m.snapshot)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), m.snapshot); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
