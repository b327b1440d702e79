// Package requestid tags every request with an ID that survives into logs
// and response headers, so a failed generate run can be traced back from a
// client report.
package requestid

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// Header carries the ID on both request and response.
	Header = "X-Request-ID"

	contextKey = "request_id"
	maxLen     = 64
)

// Middleware adopts the caller-supplied X-Request-ID when it is printable
// and short enough, and mints a UUID otherwise.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := sanitize(c.GetHeader(Header))
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(contextKey, id)
		c.Writer.Header().Set(Header, id)
		c.Next()
	}
}

// Value returns the request ID stored on the context, or "".
func Value(c *gin.Context) string {
	if v, ok := c.Get(contextKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

func sanitize(id string) string {
	if len(id) == 0 || len(id) > maxLen {
		return ""
	}
	for _, r := range id {
		if r <= ' ' || r > '~' {
			return ""
		}
	}
	return strings.TrimSpace(id)
}
