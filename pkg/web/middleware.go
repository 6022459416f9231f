package web

import (
	"github.com/go-training/oauth-member-demo/pkg/core"

	"github.com/gin-gonic/gin"
)

// RequestIDHeader carries the request ID back to the caller.
const RequestIDHeader = "X-Request-ID"

// requestIDMiddleware attaches a fresh request ID to the request context
// and echoes it in the response headers.
func requestIDMiddleware(c *gin.Context) {
	ctx := core.WithRequestID(c.Request.Context())
	c.Request = c.Request.WithContext(ctx)
	c.Header(RequestIDHeader, core.RequestIDFromCtx(ctx))
	c.Next()
}

// noStoreMiddleware keeps browsers and proxies from caching responses that
// carry redirects with state or token payloads.
func noStoreMiddleware(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.Next()
}
