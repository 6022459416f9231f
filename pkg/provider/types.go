package provider

import (
	"encoding/json"
	"fmt"
	"time"
)

// Token represents the token pair returned by the provider's token endpoint.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in,omitempty"` // Duration in seconds
	Scope        string    `json:"scope,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitzero"`
}

// Plan is the plan a subscription belongs to.
type Plan struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Subscription is one of the member's subscriptions. ExpiresAt is kept as
// the provider sent it, either a Unix timestamp or a string.
type Subscription struct {
	Active    bool            `json:"active"`
	ExpiresAt json.RawMessage `json:"expiresAt,omitempty"`
	Plan      Plan            `json:"plan"`
}

// Member is the authenticated member profile.
type Member struct {
	ID            string         `json:"id"`
	Email         string         `json:"email"`
	FullName      string         `json:"fullName"`
	Subscriptions []Subscription `json:"subscriptions"`
}

// StatusError is returned when the provider answers with a non-2xx status.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed with status %d: %s", e.Op, e.StatusCode, e.Body)
}

// GraphQLError is a single entry of a GraphQL "errors" array.
type GraphQLError struct {
	Message string `json:"message"`
}
