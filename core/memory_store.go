package core

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of PreferenceStore. It is the
// default when no Redis URL is configured: preferences then live only as
// long as the process, which matches a single browser tab.
type MemoryStore struct {
	mu        sync.RWMutex
	store     map[string]memoryEntry
	listeners map[string]map[int]func(string)
	nextID    int
	logger    Logger
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		store:     make(map[string]memoryEntry),
		listeners: make(map[string]map[int]func(string)),
		logger:    &NoOpLogger{},
	}
}

// SetLogger configures the logger for this store
func (m *MemoryStore) SetLogger(logger Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// Get retrieves a value. A missing or expired key yields "" and no error.
func (m *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, exists := m.store[key]
	if !exists {
		m.logger.Debug("Preference miss", map[string]interface{}{"key": key})
		return "", nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		m.logger.Debug("Preference expired", map[string]interface{}{
			"key":        key,
			"expired_at": entry.expiresAt.Format(time.RFC3339),
		})
		return "", nil
	}
	return entry.value, nil
}

// Set stores a value with optional TTL and notifies listeners for the key.
func (m *MemoryStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	m.mu.Lock()
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	m.store[key] = entry
	fns := m.listenersFor(key)
	m.mu.Unlock()

	m.logger.Debug("Preference set", map[string]interface{}{
		"key":     key,
		"has_ttl": ttl > 0,
	})
	for _, fn := range fns {
		fn(value)
	}
	return nil
}

// Delete removes a value and notifies listeners with the empty string.
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.store, key)
	fns := m.listenersFor(key)
	m.mu.Unlock()

	for _, fn := range fns {
		fn("")
	}
	return nil
}

// OnChange registers a listener for writes to key, mirroring the storage
// event the browser original relied on for cross-tab threshold updates.
func (m *MemoryStore) OnChange(key string, fn func(value string)) (cancel func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listeners[key] == nil {
		m.listeners[key] = make(map[int]func(string))
	}
	id := m.nextID
	m.nextID++
	m.listeners[key][id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners[key], id)
	}
}

// listenersFor must be called with the lock held.
func (m *MemoryStore) listenersFor(key string) []func(string) {
	fns := make([]func(string), 0, len(m.listeners[key]))
	for _, fn := range m.listeners[key] {
		fns = append(fns, fn)
	}
	return fns
}
