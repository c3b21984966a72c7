package middleware

import (
	"llm-observability-api/pkg/logger"
	"llm-observability-api/pkg/tracer"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// TraceIDHeader 响应中携带的 trace ID 头
const TraceIDHeader = "X-Trace-ID"

// Trace OpenTelemetry 服务端 Span 中间件
// 使用全局 TracerProvider 与传播器，补全调用的 Span 挂在其下
func Trace(serviceName string, opts ...otelgin.Option) gin.HandlerFunc {
	return otelgin.Middleware(serviceName, opts...)
}

// TraceContext 注入 trace_id / span_id 到 gin 与日志 Context
func TraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if traceID := tracer.TraceID(c.Request.Context()); traceID != "" {
			spanID := tracer.SpanID(c.Request.Context())

			c.Set("trace_id", traceID)
			c.Set("span_id", spanID)

			ctx := logger.WithContext(c.Request.Context(), logger.TraceIDKey, traceID)
			ctx = logger.WithContext(ctx, logger.SpanIDKey, spanID)
			c.Request = c.Request.WithContext(ctx)

			c.Header(TraceIDHeader, traceID)
		}

		c.Next()
	}
}
