package flow

import (
	"fmt"
	"net/http"
)

// Kind classifies why a flow did not finish.
type Kind int

const (
	// KindValidationFailed means the callback state did not match the pending state.
	KindValidationFailed Kind = iota + 1
	// KindExchangeFailed means the authorization code exchange failed.
	KindExchangeFailed
	// KindProfileFetchFailed means the member profile query failed.
	KindProfileFetchFailed
	// KindRefreshFailed means the refresh token exchange failed.
	KindRefreshFailed
	// KindAuthorizationDenied means the state matched but the provider sent
	// no authorization code, e.g. the member declined consent.
	KindAuthorizationDenied
)

func (k Kind) String() string {
	switch k {
	case KindValidationFailed:
		return "validation_failed"
	case KindExchangeFailed:
		return "exchange_failed"
	case KindProfileFetchFailed:
		return "profile_fetch_failed"
	case KindRefreshFailed:
		return "refresh_failed"
	case KindAuthorizationDenied:
		return "authorization_denied"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// UserMessage is safe to show in a browser. It never contains provider data.
func (k Kind) UserMessage() string {
	switch k {
	case KindValidationFailed:
		return "State mismatch. Authorization request rejected."
	case KindExchangeFailed:
		return "Sign-in failed: the authorization code could not be exchanged."
	case KindProfileFetchFailed:
		return "Sign-in failed: your profile could not be loaded."
	case KindRefreshFailed:
		return "Sign-in failed: the access token could not be refreshed."
	case KindAuthorizationDenied:
		return "Sign-in was cancelled or not authorized."
	default:
		return "Sign-in failed."
	}
}

// HTTPStatus is the response status used for the kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidationFailed, KindAuthorizationDenied:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

// Error is returned by Complete. Err holds the underlying cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
