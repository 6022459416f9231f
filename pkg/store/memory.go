package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-training/oauth-member-demo/pkg/core"
)

var (
	// ErrStateNotFound is returned when no pending state exists for a session,
	// including when it already expired or was consumed.
	ErrStateNotFound = errors.New("pending state not found")
	// ErrNilState is returned when attempting to save a nil pending state.
	ErrNilState = errors.New("pending state cannot be nil")
	// ErrEmptySessionID is returned when the session ID string is empty.
	ErrEmptySessionID = errors.New("session ID cannot be empty")
	// ErrEmptyState is returned when the state string is empty.
	ErrEmptyState = errors.New("state string cannot be empty")
	// ErrStateExpired is returned when saving a state whose expiry is already in the past.
	ErrStateExpired = errors.New("pending state is already expired")
)

const defaultCleanupInterval = time.Minute

// MemoryStore implements core.StateStore using an in-memory map keyed by session ID.
// Expired entries are dropped lazily on read and by a background sweep.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]*core.PendingState

	now         func() time.Time
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewMemoryStore creates a new instance of MemoryStore and starts its cleanup loop.
// Call Close to stop the loop.
func NewMemoryStore() *MemoryStore {
	return newMemoryStore(time.Now, defaultCleanupInterval)
}

func newMemoryStore(now func() time.Time, cleanupInterval time.Duration) *MemoryStore {
	m := &MemoryStore{
		states:      make(map[string]*core.PendingState),
		now:         now,
		stopCleanup: make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go m.cleanupLoop(cleanupInterval)
	}
	return m
}

// SaveState stores a pending state in memory, replacing any earlier state for the session.
func (m *MemoryStore) SaveState(ctx context.Context, state *core.PendingState) error {
	if err := validateState(state); err != nil {
		return err
	}
	if state.Expired(m.now()) {
		return ErrStateExpired
	}

	stored := *state

	m.mu.Lock()
	defer m.mu.Unlock()

	m.states[state.SessionID] = &stored
	return nil
}

// ConsumeState returns and removes the pending state for the session.
// It returns ErrStateNotFound if none exists or it has expired.
func (m *MemoryStore) ConsumeState(ctx context.Context, sessionID string) (*core.PendingState, error) {
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}

	m.mu.Lock()
	state, exists := m.states[sessionID]
	delete(m.states, sessionID)
	m.mu.Unlock()

	if !exists || state.Expired(m.now()) {
		return nil, ErrStateNotFound
	}

	return state, nil
}

// Len returns the number of stored states, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.states)
}

// Close stops the background cleanup loop. It is safe to call more than once.
func (m *MemoryStore) Close() {
	m.stopOnce.Do(func() { close(m.stopCleanup) })
}

func (m *MemoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.stopCleanup:
			return
		}
	}
}

// cleanup removes all expired states from the store.
func (m *MemoryStore) cleanup() {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for sessionID, state := range m.states {
		if state.Expired(now) {
			delete(m.states, sessionID)
			count++
		}
	}

	if count > 0 {
		slog.Debug("Cleaned up expired pending states", "count", count)
	}
}

func validateState(state *core.PendingState) error {
	if state == nil {
		return ErrNilState
	}
	if state.SessionID == "" {
		return ErrEmptySessionID
	}
	if state.State == "" {
		return ErrEmptyState
	}
	return nil
}
