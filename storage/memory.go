package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryConfig configures the in-process store.
type MemoryConfig struct {
	// JanitorInterval is how often expired entries are swept.
	// Zero disables the janitor; expired entries are then dropped lazily on read.
	JanitorInterval time.Duration
}

// Memory is the reference in-process Storage. Values keep their declared type.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

type memoryEntry struct {
	value     Value
	expiresAt time.Time
}

// NewMemory creates a new in-process store.
func NewMemory(config MemoryConfig) *Memory {
	m := &Memory{
		entries: make(map[string]memoryEntry),
	}
	if config.JanitorInterval > 0 {
		m.stop = make(chan struct{})
		m.done = make(chan struct{})
		go m.janitor(config.JanitorInterval)
	}
	return m
}

// Get retrieves a value. Returns ok=false on miss or expiry.
func (m *Memory) Get(_ context.Context, key string) (Value, bool, error) {
	if err := ValidateKey(key); err != nil {
		return Value{}, false, err
	}

	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return Value{}, false, nil
	}

	now := time.Now()
	if !now.Before(entry.expiresAt) {
		// Expired - clean up lazily unless it was replaced meanwhile
		m.mu.Lock()
		if cur, ok := m.entries[key]; ok && !now.Before(cur.expiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return Value{}, false, nil
	}

	return entry.value.WithExpiry(entry.expiresAt), true, nil
}

// Set stores a value with an absolute expiry of now+ttl.
func (m *Memory) Set(_ context.Context, key string, value Value, ttl time.Duration) error {
	if err := ValidateEntry(key, ttl); err != nil {
		return err
	}

	m.mu.Lock()
	m.entries[key] = memoryEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	m.mu.Unlock()

	return nil
}

// Remove deletes a value. Idempotent - no error on miss.
func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of entries held, including expired ones not yet swept.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Sweep removes every expired entry and returns how many were dropped.
func (m *Memory) Sweep() int {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, entry := range m.entries {
		if !now.Before(entry.expiresAt) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Close stops the janitor, if any. It is safe to call more than once.
func (m *Memory) Close() error {
	m.closeOnce.Do(func() {
		if m.stop != nil {
			close(m.stop)
			<-m.done
		}
	})
	return nil
}

func (m *Memory) janitor(every time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Ensure Memory implements Storage
var _ Storage = (*Memory)(nil)
