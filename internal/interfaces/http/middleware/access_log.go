package middleware

import (
	"time"

	"llm-observability-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// DefaultAccessLogSkipPaths 默认不记录访问日志的路径
var DefaultAccessLogSkipPaths = []string{
	"/",
	"/api/health",
	"/live",
	"/ready",
}

// AccessLog 访问日志中间件
func AccessLog(skipPaths []string) gin.HandlerFunc {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		logger.Info(c.Request.Context(), "api request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
			"body_size", c.Writer.Size(),
		)
	}
}
