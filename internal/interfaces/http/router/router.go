// Package router 提供 HTTP 路由配置
package router

import (
	"llm-observability-api/internal/config"
	"llm-observability-api/internal/interfaces/http/dto"
	"llm-observability-api/internal/interfaces/http/handler"
	"llm-observability-api/internal/interfaces/http/middleware"
	"llm-observability-api/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// Handlers 路由依赖的处理器集合
type Handlers struct {
	Chat   *handler.ChatHandler
	Health *handler.HealthHandler
}

// Router HTTP 路由器
type Router struct {
	engine      *gin.Engine
	cfg         *config.Config
	handlers    Handlers
	httpMetrics *metrics.HTTPCollectors
}

// New 创建新的路由器
func New(cfg *config.Config, handlers Handlers, httpMetrics *metrics.HTTPCollectors) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	dto.RegisterValidation()

	r := &Router{
		engine:      gin.New(),
		cfg:         cfg,
		handlers:    handlers,
		httpMetrics: httpMetrics,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置中间件
func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.CORS(r.cfg.Security.CORS))

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	if r.cfg.Observability.Metrics.Enabled && r.httpMetrics != nil {
		r.engine.Use(middleware.Metrics(r.httpMetrics))
	}

	r.engine.Use(middleware.AccessLog(middleware.DefaultAccessLogSkipPaths))
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	health := r.handlers.Health

	r.engine.GET("/", health.Root)
	r.engine.GET("/live", health.Live)
	r.engine.GET("/ready", health.Ready)

	api := r.engine.Group("/api")
	{
		api.POST("/chat", r.handlers.Chat.Chat)
		api.GET("/health", health.Health)
	}
}
