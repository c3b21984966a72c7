//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"github.com/google/wire"

	"llm-observability-api/internal/config"
	"llm-observability-api/internal/interfaces/http/router"
	"llm-observability-api/internal/observability"
)

// InitializeApp 初始化整个应用（带路由器）
// tel 由调用方先行初始化，指标端口冲突在此之前已暴露
func InitializeApp(cfg *config.Config, tel *observability.Telemetry) (*router.Router, func(), error) {
	wire.Build(
		TelemetrySet,
		LLMSet,
		RouterSet,
	)
	return nil, nil, nil
}
