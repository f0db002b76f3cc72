package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	headerKey  = "X-Request-ID"
	contextKey = "request_id"

	// maxInboundLen bounds IDs forwarded by upstream proxies so a
	// hostile client cannot stuff arbitrary payloads into log lines.
	maxInboundLen = 64
)

// Middleware assigns a correlation ID to each incoming HTTP request.
// An inbound X-Request-ID is kept when it looks sane, otherwise a
// fresh UUID is issued. The ID is echoed on the response so clients
// can quote it in bug reports.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(headerKey)
		if reqID == "" || len(reqID) > maxInboundLen {
			reqID = uuid.NewString()
		}

		c.Set(contextKey, reqID)
		c.Writer.Header().Set(headerKey, reqID)

		c.Next()
	}
}

// Value returns the request ID stored in the Gin context.
func Value(c *gin.Context) string {
	if v, exists := c.Get(contextKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
