package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/veritas-edu/class-scheduler/internal/service"
)

// unmatchedLabel stands in for requests that hit no route. Recording the
// raw URL would blow up label cardinality, since export download paths
// embed per-job tokens.
const unmatchedLabel = "unmatched"

// Metrics observes every request on the shared metrics service, labeled by
// route template rather than concrete path.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedLabel
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
