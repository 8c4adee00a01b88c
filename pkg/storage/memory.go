// Package storage persists listener cursors so a durable listener can resume
// where it stopped.
package storage

import (
	"context"
	"fmt"
	"sync"
)

// Cursor is the position of the first event a listener has not handled yet.
// Ordinal counts the listener's events within the block at Height; event
// indexes restart in every transaction so they cannot serve as a position.
type Cursor struct {
	Height  uint64
	Ordinal uint64
}

func (c Cursor) String() string {
	return fmt.Sprintf("%d/%d", c.Height, c.Ordinal)
}

// Handled reports whether the event at (height, ordinal) lies before c.
func (c Cursor) Handled(height, ordinal uint64) bool {
	return height < c.Height || (height == c.Height && ordinal < c.Ordinal)
}

// Store persists cursors keyed by listener name.
type Store interface {
	// Load returns the saved cursor. ok is false when nothing was saved under key.
	Load(ctx context.Context, key string) (cur Cursor, ok bool, err error)

	Save(ctx context.Context, key string, cur Cursor) error

	Close() error
}

// MemoryStore keeps cursors in process memory. Nothing survives a restart.
type MemoryStore struct {
	data   map[string]Cursor
	prefix string
	mu     sync.RWMutex
}

func NewMemoryStore(prefix string) *MemoryStore {
	return &MemoryStore{
		data:   make(map[string]Cursor),
		prefix: prefix,
	}
}

func (m *MemoryStore) Load(_ context.Context, key string) (Cursor, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cur, ok := m.data[m.prefix+key]
	return cur, ok, nil
}

func (m *MemoryStore) Save(_ context.Context, key string, cur Cursor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[m.prefix+key] = cur
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
