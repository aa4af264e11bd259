// Package requestid tags every request with an identifier that is echoed in
// the X-Request-ID response header and recorded with audit events.
package requestid

import (
	"context"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Header is the request and response header carrying the id.
const Header = "X-Request-ID"

type contextKey struct{}

// Accept ids from upstream proxies only when they look harmless.
var validID = regexp.MustCompile(`^[A-Za-z0-9\-_.]{1,64}$`)

// Middleware assigns a request id, reusing a well-formed incoming one.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if !validID.MatchString(id) {
			id = uuid.NewString()
		}

		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), contextKey{}, id))
		c.Header(Header, id)
		c.Next()
	}
}

// FromContext returns the request id stored by Middleware, or "".
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}
