package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-training/oauth-member-demo/pkg/core"

	"github.com/redis/rueidis"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer starts a throwaway Redis and returns its host:port.
// The container is terminated when the test finishes.
func setupRedisContainer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("Failed to setup Redis container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	addr, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}
	return addr
}

// setupRedisStore creates a RedisStore backed by a Redis container.
func setupRedisStore(t *testing.T) *RedisStore {
	t.Helper()

	store, err := NewRedisStoreFromClientOption(rueidis.ClientOption{
		InitAddress:  []string{setupRedisContainer(t)},
		DisableCache: true,
	})
	if err != nil {
		t.Skipf("Redis not available, skipping test: %v", err)
	}
	t.Cleanup(store.Close)

	return store
}

func TestRedisStore_SaveState(t *testing.T) {
	store := setupRedisStore(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		state   *core.PendingState
		wantErr error
	}{
		{
			name:  "valid state",
			state: newPendingState("redis-session", "state", 10*time.Minute),
		},
		{
			name:    "nil state",
			state:   nil,
			wantErr: ErrNilState,
		},
		{
			name:    "empty session ID",
			state:   newPendingState("", "state", 10*time.Minute),
			wantErr: ErrEmptySessionID,
		},
		{
			name:    "already expired",
			state:   newPendingState("redis-session", "state", -time.Minute),
			wantErr: ErrStateExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.SaveState(ctx, tt.state)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("SaveState() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRedisStore_ConsumeState(t *testing.T) {
	store := setupRedisStore(t)
	ctx := context.Background()

	saved := newPendingState("redis-consume", "expected-state", 10*time.Minute)
	if err := store.SaveState(ctx, saved); err != nil {
		t.Fatalf("SaveState() error = %v", err)
	}

	got, err := store.ConsumeState(ctx, "redis-consume")
	if err != nil {
		t.Fatalf("ConsumeState() error = %v", err)
	}
	if got.State != saved.State || got.SessionID != saved.SessionID {
		t.Errorf("ConsumeState() = %+v, want %+v", got, saved)
	}

	if _, err := store.ConsumeState(ctx, "redis-consume"); !errors.Is(err, ErrStateNotFound) {
		t.Errorf("second ConsumeState() error = %v, want %v", err, ErrStateNotFound)
	}

	if _, err := store.ConsumeState(ctx, ""); !errors.Is(err, ErrEmptySessionID) {
		t.Errorf("ConsumeState(\"\") error = %v, want %v", err, ErrEmptySessionID)
	}
}

func TestRedisStore_ReplacesPerSession(t *testing.T) {
	store := setupRedisStore(t)
	ctx := context.Background()

	_ = store.SaveState(ctx, newPendingState("redis-replace", "first", time.Minute))
	_ = store.SaveState(ctx, newPendingState("redis-replace", "second", time.Minute))

	got, err := store.ConsumeState(ctx, "redis-replace")
	if err != nil {
		t.Fatalf("ConsumeState() error = %v", err)
	}
	if got.State != "second" {
		t.Errorf("ConsumeState() state = %q, want %q", got.State, "second")
	}
}

func TestRedisStore_ExpiredOnRead(t *testing.T) {
	store := setupRedisStore(t)
	ctx := context.Background()

	if err := store.SaveState(ctx, newPendingState("redis-expired", "state", time.Minute)); err != nil {
		t.Fatalf("SaveState() error = %v", err)
	}

	store.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := store.ConsumeState(ctx, "redis-expired"); !errors.Is(err, ErrStateNotFound) {
		t.Errorf("ConsumeState() error = %v, want %v", err, ErrStateNotFound)
	}
}
