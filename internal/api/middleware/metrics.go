package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"campus-records/pkg/metrics"
)

// Metrics HTTP 请求指标中间件
// route 取 Gin 路由模板（如 /api/v1/accounts/:id），避免路径参数导致标签基数膨胀
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		m.InFlight.Inc()
		defer m.InFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.Requests.WithLabelValues(c.Request.Method, route, status).Inc()
		m.Duration.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
	}
}
