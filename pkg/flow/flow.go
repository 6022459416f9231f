// Package flow runs the OAuth2 authorization-code flow against the identity
// provider: Begin issues a per-session anti-replay state and the consent URL,
// Complete validates the callback and performs the code exchange, the member
// profile query and a demonstration refresh, strictly in that order.
package flow

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/go-training/oauth-member-demo/pkg/core"
	"github.com/go-training/oauth-member-demo/pkg/provider"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultStateTTL is how long a pending state stays valid.
	DefaultStateTTL = 10 * time.Minute
	// DefaultStepTimeout bounds each outbound call.
	DefaultStepTimeout = 10 * time.Second

	tracerName = "github.com/go-training/oauth-member-demo/pkg/flow"
)

// Stage names a step of the flow's state machine.
type Stage string

const (
	StageAwaitingCallback Stage = "awaiting_callback"
	StageValidating       Stage = "validating"
	StageExchangingCode   Stage = "exchanging_code"
	StageFetchingProfile  Stage = "fetching_profile"
	StageRefreshingToken  Stage = "refreshing_token"
	StageDone             Stage = "done"
	StageRejected         Stage = "rejected"
	StageFailed           Stage = "failed"
)

// Provider is the part of the identity provider client the flow needs.
type Provider interface {
	AuthorizeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*provider.Token, error)
	FetchMember(ctx context.Context, accessToken string) (*provider.Member, error)
	RefreshToken(ctx context.Context, refreshToken string) (*provider.Token, error)
}

// Result holds the three provider payloads of a completed flow.
type Result struct {
	Token     *provider.Token  `json:"token"`
	Member    *provider.Member `json:"member"`
	Refreshed *provider.Token  `json:"refreshed"`
}

// Flow is safe for concurrent use; all per-flow state lives in the StateStore.
type Flow struct {
	provider    Provider
	states      core.StateStore
	stateTTL    time.Duration
	stepTimeout time.Duration
	stateLength int
	now         func() time.Time
	tracer      trace.Tracer
}

// Option customizes a Flow.
type Option func(*Flow)

// WithStateTTL sets how long a pending state stays valid.
func WithStateTTL(d time.Duration) Option {
	return func(f *Flow) {
		if d > 0 {
			f.stateTTL = d
		}
	}
}

// WithStepTimeout sets the timeout applied to each outbound call.
func WithStepTimeout(d time.Duration) Option {
	return func(f *Flow) {
		if d > 0 {
			f.stepTimeout = d
		}
	}
}

// New creates a Flow.
func New(p Provider, states core.StateStore, opts ...Option) *Flow {
	f := &Flow{
		provider:    p,
		states:      states,
		stateTTL:    DefaultStateTTL,
		stepTimeout: DefaultStepTimeout,
		stateLength: StateLength,
		now:         time.Now,
		tracer:      otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Begin issues a fresh state for the session, replacing any pending one, and
// returns the provider consent URL carrying it.
func (f *Flow) Begin(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", errors.New("session ID is required")
	}

	state, err := GenerateState(f.stateLength, StateAlphabet)
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}

	now := f.now()
	pending := &core.PendingState{
		SessionID: sessionID,
		State:     state,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(f.stateTTL).Unix(),
	}
	if err := f.states.SaveState(ctx, pending); err != nil {
		return "", fmt.Errorf("failed to save pending state: %w", err)
	}

	core.LoggerFromCtx(ctx).Debug("Authorization flow started", "stage", StageAwaitingCallback)
	return f.provider.AuthorizeURL(state), nil
}

// Complete validates the callback state for the session and, on a match, runs
// the code exchange, profile fetch and refresh. A matching callback without a
// code consumes the state and makes no outbound call. Any failure is an *Error
// and no partial result is returned.
func (f *Flow) Complete(ctx context.Context, sessionID, state, code string) (*Result, error) {
	logger := core.LoggerFromCtx(ctx)

	if err := f.validate(ctx, sessionID, state); err != nil {
		logger.Warn("Authorization callback rejected", "stage", StageRejected, "error", err)
		return nil, newError(KindValidationFailed, err)
	}
	if code == "" {
		logger.Warn("Authorization callback carries no code", "stage", StageRejected)
		return nil, newError(KindAuthorizationDenied, errors.New("callback carries no authorization code"))
	}

	var token *provider.Token
	err := f.step(ctx, StageExchangingCode, func(ctx context.Context) error {
		var err error
		token, err = f.provider.ExchangeCode(ctx, code)
		return err
	})
	if err != nil {
		return nil, f.fail(ctx, KindExchangeFailed, err)
	}

	var member *provider.Member
	err = f.step(ctx, StageFetchingProfile, func(ctx context.Context) error {
		var err error
		member, err = f.provider.FetchMember(ctx, token.AccessToken)
		return err
	})
	if err != nil {
		return nil, f.fail(ctx, KindProfileFetchFailed, err)
	}

	var refreshed *provider.Token
	err = f.step(ctx, StageRefreshingToken, func(ctx context.Context) error {
		var err error
		refreshed, err = f.provider.RefreshToken(ctx, token.RefreshToken)
		return err
	})
	if err != nil {
		return nil, f.fail(ctx, KindRefreshFailed, err)
	}

	logger.Info("Authorization flow completed", "stage", StageDone, "member_id", member.ID)
	return &Result{Token: token, Member: member, Refreshed: refreshed}, nil
}

// validate consumes the pending state of the session and compares it with
// the callback state in constant time.
func (f *Flow) validate(ctx context.Context, sessionID, state string) error {
	if sessionID == "" {
		return errors.New("no session")
	}
	if state == "" {
		return errors.New("callback carries no state")
	}

	pending, err := f.states.ConsumeState(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("no pending state: %w", err)
	}
	if pending.Expired(f.now()) {
		return errors.New("pending state expired")
	}
	if subtle.ConstantTimeCompare([]byte(pending.State), []byte(state)) != 1 {
		return errors.New("state mismatch")
	}
	return nil
}

// step runs fn in its own span with the per-call timeout.
func (f *Flow) step(ctx context.Context, stage Stage, fn func(context.Context) error) error {
	ctx, span := f.tracer.Start(ctx, "oauth."+string(stage))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, f.stepTimeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)

	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	addSpanAttributes(ctx,
		attribute.String("oauth.stage", string(stage)),
		attribute.String("oauth.status", status),
		attribute.Float64("oauth.duration_ms", float64(time.Since(start).Microseconds())/1000.0),
	)
	return err
}

func (f *Flow) fail(ctx context.Context, kind Kind, err error) *Error {
	core.LoggerFromCtx(ctx).Error("Authorization flow failed",
		"stage", StageFailed,
		"kind", kind.String(),
		"error", err,
	)
	return newError(kind, err)
}
