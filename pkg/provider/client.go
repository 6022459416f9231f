// Package provider talks to the external identity provider: it builds the
// consent URL, exchanges authorization codes and refresh tokens, and queries
// the member profile over GraphQL.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-training/oauth-member-demo/pkg/core"

	"github.com/mark3labs/mcp-go/client/transport"
	"golang.org/x/oauth2"
)

const (
	authorizePath = "/oauth/"
	tokenPath     = "/oauth/token"
	memberAPIPath = "/api/graphql/member"

	// DefaultRequestTimeout bounds every outbound call.
	DefaultRequestTimeout = 10 * time.Second

	// maxBodySize caps how much of a provider response is read.
	maxBodySize = 1 << 20
)

// MemberQuery is the GraphQL document sent to the member endpoint.
const MemberQuery = `query {
  currentMember {
    id
    email
    fullName
    subscriptions {
      active
      expiresAt
      plan {
        id
        name
      }
    }
  }
}`

// Client calls a single identity provider on behalf of one OAuth client.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	oauth        *oauth2.Config
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for outbound calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a provider client for baseURL, e.g. "https://id.example.com".
func NewClient(baseURL, clientID, clientSecret string, opts ...Option) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	c := &Client{
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient: &http.Client{
			Timeout: DefaultRequestTimeout,
		},
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   baseURL + authorizePath,
				TokenURL:  baseURL + tokenPath,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AuthorizeURL returns the consent page URL carrying response_type=code,
// the client ID and the given state.
func (c *Client) AuthorizeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// ExchangeCode exchanges an authorization code for a token pair.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	if code == "" {
		return nil, errors.New("authorization code is required")
	}
	return c.requestToken(ctx, "token exchange", map[string]string{
		"grant_type":    "authorization_code",
		"code":          code,
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
	})
}

// RefreshToken exchanges a refresh token for a new token pair.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*Token, error) {
	if refreshToken == "" {
		return nil, errors.New("refresh token is required")
	}
	return c.requestToken(ctx, "token refresh", map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
	})
}

func (c *Client) requestToken(ctx context.Context, op string, reqBody map[string]string) (*Token, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request body: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.oauth.Endpoint.TokenURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req, op)
	if err != nil {
		return nil, err
	}

	var tokenResp transport.Token
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s response: %w", op, err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("%s response has no access_token", op)
	}

	token := &Token{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		TokenType:    tokenResp.TokenType,
		ExpiresIn:    tokenResp.ExpiresIn,
		Scope:        tokenResp.Scope,
		ExpiresAt:    tokenResp.ExpiresAt,
	}
	if token.ExpiresAt.IsZero() && token.ExpiresIn > 0 {
		token.ExpiresAt = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	}
	return token, nil
}

// FetchMember runs MemberQuery with the access token as bearer credential.
func (c *Client) FetchMember(ctx context.Context, accessToken string) (*Member, error) {
	if accessToken == "" {
		return nil, errors.New("access token is required")
	}

	u, err := url.Parse(c.baseURL + memberAPIPath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse member API URL: %w", err)
	}
	u.RawQuery = url.Values{"query": {MemberQuery}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req, "member query")
	if err != nil {
		return nil, err
	}
	core.LoggerFromCtx(ctx).Debug("Member query response received", "bytes", len(body))

	// Accept both the bare shape and the standard GraphQL envelope.
	var resp struct {
		CurrentMember *Member `json:"currentMember"`
		Data          *struct {
			CurrentMember *Member `json:"currentMember"`
		} `json:"data"`
		Errors []GraphQLError `json:"errors"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode member query response: %w", err)
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, fmt.Errorf("member query returned errors: %s", strings.Join(msgs, "; "))
	}

	member := resp.CurrentMember
	if member == nil && resp.Data != nil {
		member = resp.Data.CurrentMember
	}
	if member == nil {
		return nil, errors.New("member query response has no currentMember")
	}
	return member, nil
}

// do sends the request and returns the body of a 2xx response.
func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response body: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
