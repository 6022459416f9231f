package core

import (
	"context"
	"time"
)

// PendingState is the anti-replay token issued for one in-flight
// authorization, keyed by the browser session that started it.
type PendingState struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
	CreatedAt int64  `json:"created_at"`
	ExpiresAt int64  `json:"expires_at"`
}

// Expired reports whether the pending state is past its expiry at now.
func (p *PendingState) Expired(now time.Time) bool {
	return now.Unix() >= p.ExpiresAt
}

// StateStore keeps at most one pending state per session.
type StateStore interface {
	// SaveState stores the pending state, replacing any earlier one for the same session.
	SaveState(ctx context.Context, state *PendingState) error
	// ConsumeState returns and removes the pending state for the session.
	// A consumed state can never be returned twice.
	ConsumeState(ctx context.Context, sessionID string) (*PendingState, error)
}
