// Package redirect remembers, per device, the path a visitor was trying to
// reach when the gate turned them away. The slot holds one path at a time and
// is consumed exactly once: after a successful login or verification the
// stored path is read and cleared in the same step, so a stale intent can
// never redirect a later, unrelated login.
package redirect

import (
	"context"
	"strings"
	"sync"
	"time"

	dErrors "concierge/pkg/domain-errors"
)

// Memory is the stash-then-consume slot. Stash overwrites any previous path
// for the key (last write wins; concurrent blocked requests from one device
// race, and the freshest intent is the one worth keeping). ConsumeOrDefault
// returns the stored path and clears it, or fallback when the slot is empty.
type Memory interface {
	Stash(ctx context.Context, key, path string) error
	ConsumeOrDefault(ctx context.Context, key, fallback string) (string, error)
}

// ValidatePath rejects stash targets that could be abused as open redirects.
// Only site-relative paths are storable.
func ValidatePath(path string) error {
	if path == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "redirect path is required")
	}
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") {
		return dErrors.New(dErrors.CodeInvalidInput, "redirect path must be site-relative")
	}
	return nil
}

type inMemoryEntry struct {
	path      string
	expiresAt time.Time
}

// InMemoryMemory keeps slots in a map. Used in tests and when no redis is
// configured.
type InMemoryMemory struct {
	mu      sync.Mutex
	entries map[string]inMemoryEntry
	ttl     time.Duration
}

func NewInMemoryMemory(ttl time.Duration) *InMemoryMemory {
	return &InMemoryMemory{
		entries: make(map[string]inMemoryEntry),
		ttl:     ttl,
	}
}

func (m *InMemoryMemory) Stash(_ context.Context, key, path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = inMemoryEntry{
		path:      path,
		expiresAt: time.Now().Add(m.ttl),
	}
	return nil
}

func (m *InMemoryMemory) ConsumeOrDefault(_ context.Context, key, fallback string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return fallback, nil
	}
	delete(m.entries, key)

	if time.Now().After(entry.expiresAt) {
		return fallback, nil
	}
	return entry.path, nil
}
