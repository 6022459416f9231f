// Package web exposes the three HTTP routes of the sign-in demo: the lobby,
// the flow initiator and the provider callback.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-training/oauth-member-demo/pkg/core"
	"github.com/go-training/oauth-member-demo/pkg/flow"
	"github.com/go-training/oauth-member-demo/pkg/session"

	sloggin "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"
)

// Authorizer starts and finishes authorization flows.
type Authorizer interface {
	Begin(ctx context.Context, sessionID string) (string, error)
	Complete(ctx context.Context, sessionID, state, code string) (*flow.Result, error)
}

// Routes are the paths of the three endpoints.
type Routes struct {
	Lobby    string
	Login    string
	Callback string
}

// Server holds the handlers' dependencies.
type Server struct {
	authorizer Authorizer
	sessions   *session.Manager
	routes     Routes
}

// NewServer creates a Server.
func NewServer(authorizer Authorizer, sessions *session.Manager, routes Routes) *Server {
	return &Server{
		authorizer: authorizer,
		sessions:   sessions,
		routes:     routes,
	}
}

// Router returns a gin engine serving the three routes.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(requestIDMiddleware, sloggin.SetLogger(), gin.Recovery())
	router.SetHTMLTemplate(templates)

	router.GET(s.routes.Lobby, s.handleLobby)
	router.GET(s.routes.Login, noStoreMiddleware, s.handleLogin)
	router.GET(s.routes.Callback, noStoreMiddleware, s.handleCallback)

	return router
}

// handleLobby renders a static page linking to the initiator.
func (s *Server) handleLobby(c *gin.Context) {
	c.HTML(http.StatusOK, lobbyTemplate, lobbyData{LoginPath: s.routes.Login})
}

// handleLogin binds the browser to a session and redirects it to the provider's consent page.
func (s *Server) handleLogin(c *gin.Context) {
	sessionID, err := s.sessions.FromRequest(c.Request)
	if err != nil {
		sessionID = session.NewID()
	}

	ctx := core.WithSessionID(c.Request.Context(), sessionID)
	logger := core.LoggerFromCtx(ctx)

	cookie, err := s.sessions.Cookie(sessionID)
	if err != nil {
		logger.Error("Failed to issue session cookie", "error", err)
		c.String(http.StatusInternalServerError, "Could not start sign-in.")
		return
	}

	authURL, err := s.authorizer.Begin(ctx, sessionID)
	if err != nil {
		logger.Error("Failed to begin authorization flow", "error", err)
		c.String(http.StatusInternalServerError, "Could not start sign-in.")
		return
	}

	http.SetCookie(c.Writer, cookie)
	logger.Info("Redirecting to provider")
	c.Redirect(http.StatusFound, authURL)
}

// handleCallback validates the provider callback and renders the three payloads.
func (s *Server) handleCallback(c *gin.Context) {
	// An invalid cookie leaves the session empty, which the flow rejects.
	sessionID, _ := s.sessions.FromRequest(c.Request)

	ctx := core.WithSessionID(c.Request.Context(), sessionID)
	logger := core.LoggerFromCtx(ctx)

	if providerErr := c.Query("error"); providerErr != "" {
		logger.Warn("Provider returned an authorization error",
			"error", providerErr,
			"error_description", c.Query("error_description"),
		)
	}

	result, err := s.authorizer.Complete(ctx, sessionID, c.Query("state"), c.Query("code"))
	if err != nil {
		var flowErr *flow.Error
		if errors.As(err, &flowErr) {
			c.String(flowErr.Kind.HTTPStatus(), flowErr.Kind.UserMessage())
			return
		}
		logger.Error("Authorization callback failed", "error", err)
		c.String(http.StatusInternalServerError, "Sign-in failed.")
		return
	}

	data, err := newResultData(result, s.routes.Lobby)
	if err != nil {
		logger.Error("Failed to render authorization result", "error", err)
		c.String(http.StatusInternalServerError, "Sign-in failed.")
		return
	}
	c.HTML(http.StatusOK, resultTemplate, data)
}

func newResultData(result *flow.Result, lobbyPath string) (resultData, error) {
	token, err := json.MarshalIndent(result.Token, "", "  ")
	if err != nil {
		return resultData{}, err
	}
	member, err := json.MarshalIndent(result.Member, "", "  ")
	if err != nil {
		return resultData{}, err
	}
	refreshed, err := json.MarshalIndent(result.Refreshed, "", "  ")
	if err != nil {
		return resultData{}, err
	}
	return resultData{
		Token:     string(token),
		Member:    string(member),
		Refreshed: string(refreshed),
		LobbyPath: lobbyPath,
	}, nil
}
