package wire

import (
	"context"

	"github.com/google/wire"
	"go.opentelemetry.io/otel/trace"

	"llm-observability-api/internal/application/completion"
	"llm-observability-api/internal/config"
	"llm-observability-api/internal/infrastructure/llm"
	"llm-observability-api/internal/interfaces/http/handler"
	"llm-observability-api/internal/interfaces/http/router"
	"llm-observability-api/internal/observability"
	"llm-observability-api/pkg/logger"
	"llm-observability-api/pkg/metrics"
	"llm-observability-api/pkg/tracer"
)

// TelemetrySet 从已初始化的 Telemetry 取出各类观测依赖
var TelemetrySet = wire.NewSet(
	ProvideTracer,
	ProvideLLMInstruments,
	ProvideHTTPCollectors,
)

// LLMSet LLM 调用链提供者集合
var LLMSet = wire.NewSet(
	llm.NewEinoFactory,
	wire.Bind(new(completion.ChatModelFactory), new(*llm.EinoFactory)),
	ProvideCompletionService,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	wire.Bind(new(handler.Completer), new(*completion.Service)),
	handler.NewChatHandler,
	handler.NewHealthHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)

// ProvideTracer 提供进程级 Tracer
func ProvideTracer() trace.Tracer {
	return tracer.Tracer()
}

// ProvideLLMInstruments 提供 LLM 调用指标
func ProvideLLMInstruments(tel *observability.Telemetry) *metrics.LLMInstruments {
	return tel.Metrics.LLM
}

// ProvideHTTPCollectors 提供 HTTP 请求指标
func ProvideHTTPCollectors(tel *observability.Telemetry) *metrics.HTTPCollectors {
	return tel.Metrics.HTTP
}

// ProvideCompletionService 按默认提供商创建补全服务
// 提供商配置缺失时仅告警，调用时再返回错误
func ProvideCompletionService(cfg *config.Config, factory completion.ChatModelFactory, tr trace.Tracer, inst *metrics.LLMInstruments) *completion.Service {
	name, p, ok := cfg.LLM.Default()
	switch {
	case !ok:
		logger.Warn(context.Background(), "default llm provider not configured", "provider", name)
	case p.Model == "":
		logger.Warn(context.Background(), "default llm provider has no model", "provider", name)
	}
	return completion.NewService(factory, tr, inst, name, p.Model)
}
