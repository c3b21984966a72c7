package middleware

import (
	"strconv"
	"time"

	"llm-observability-api/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics Prometheus HTTP 指标采集中间件
func Metrics(m *metrics.HTTPCollectors) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		method := c.Request.Method

		if reqSize := float64(c.Request.ContentLength); reqSize > 0 {
			m.RequestSize.WithLabelValues(method, path).Observe(reqSize)
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		m.RequestsTotal.WithLabelValues(method, path, status).Inc()
		m.RequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		if respSize := float64(c.Writer.Size()); respSize > 0 {
			m.ResponseSize.WithLabelValues(method, path).Observe(respSize)
		}
	}
}
