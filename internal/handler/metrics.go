package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var responsesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rephrase_http_responses_total",
		Help: "Total number of rephrase API responses by status.",
	},
	[]string{"status"},
)

// countResponses считает каждый ответ API по итоговому статусу,
// включая 401 из AuthMiddleware и 204 на preflight.
func countResponses(skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, path := range skipPaths {
		skip[path] = struct{}{}
	}
	return func(c *gin.Context) {
		c.Next()
		if _, ok := skip[c.Request.URL.Path]; ok {
			return
		}
		responsesTotal.WithLabelValues(http.StatusText(c.Writer.Status())).Inc()
	}
}
