package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-training/oauth-member-demo/pkg/core"
	"github.com/redis/rueidis"
)

// Key prefix for Redis storage
const statePrefix = "oauth_state:"

// RedisStore implements core.StateStore using Redis via rueidis.
// Entries carry a Redis TTL and are read with GETDEL so a state is single use
// across every process sharing the Redis instance.
type RedisStore struct {
	client rueidis.Client
	now    func() time.Time
}

// NewRedisStore creates a new instance of RedisStore with the provided rueidis client.
func NewRedisStore(client rueidis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		now:    time.Now,
	}
}

// RedisOptions contains configuration for Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStoreFromOptions creates a new RedisStore with simplified options.
func NewRedisStoreFromOptions(opts RedisOptions) (*RedisStore, error) {
	return NewRedisStoreFromClientOption(rueidis.ClientOption{
		InitAddress: []string{opts.Addr},
		Password:    opts.Password,
		SelectDB:    opts.DB,
	})
}

// NewRedisStoreFromClientOption creates a new RedisStore with full rueidis client options.
func NewRedisStoreFromClientOption(opts rueidis.ClientOption) (*RedisStore, error) {
	client, err := rueidis.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}
	return NewRedisStore(client), nil
}

// Close closes the Redis client connection.
func (r *RedisStore) Close() {
	r.client.Close()
}

// SaveState stores a pending state in Redis with a TTL derived from its expiry.
func (r *RedisStore) SaveState(ctx context.Context, state *core.PendingState) error {
	if err := validateState(state); err != nil {
		return err
	}

	ttl := time.Unix(state.ExpiresAt, 0).Sub(r.now())
	if ttl < time.Second {
		return ErrStateExpired
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal pending state: %w", err)
	}

	cmd := r.client.B().Set().Key(statePrefix + state.SessionID).Value(string(data)).
		ExSeconds(int64(ttl.Seconds())).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to save pending state to redis: %w", err)
	}

	return nil
}

// ConsumeState atomically reads and deletes the pending state for the session.
func (r *RedisStore) ConsumeState(ctx context.Context, sessionID string) (*core.PendingState, error) {
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}

	cmd := r.client.B().Getdel().Key(statePrefix + sessionID).Build()
	result, err := r.client.Do(ctx, cmd).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("failed to consume pending state from redis: %w", err)
	}

	var state core.PendingState
	if err := json.Unmarshal([]byte(result), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending state: %w", err)
	}

	// Redis TTL has second granularity
	if state.Expired(r.now()) {
		return nil, ErrStateNotFound
	}

	return &state, nil
}
