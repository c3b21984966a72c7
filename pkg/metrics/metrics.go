// Package metrics 提供指标采集功能
//
// LLM 业务指标通过 OpenTelemetry Meter 记录，并由 OTel Prometheus exporter
// 桥接到独立的 Prometheus Registry；HTTP 指标直接使用 client_golang。
// 两者共用同一个 Registry，由独立端口拉取。
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// InstrumentationName LLM 指标所属的 Meter 名称
const InstrumentationName = "llm-observability-api/llm"

// Config 指标配置
type Config struct {
	ServiceName string
}

// Registry 进程级指标注册中心，启动时创建一次，按引用传递
type Registry struct {
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider

	LLM  *LLMInstruments
	HTTP *HTTPCollectors
}

// New 创建指标注册中心
func New(cfg Config) (*Registry, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
		)),
		sdkmetric.WithReader(exporter),
	)

	llm, err := NewLLMInstruments(provider.Meter(InstrumentationName))
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, err
	}

	return &Registry{
		registry: reg,
		provider: provider,
		LLM:      llm,
		HTTP:     NewHTTPCollectors(reg),
	}, nil
}

// MeterProvider 返回 OTel MeterProvider
func (r *Registry) MeterProvider() metric.MeterProvider {
	return r.provider
}

// Handler 返回 Prometheus 文本格式的拉取端点
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		Registry: r.registry,
	})
}

// Shutdown 关闭 MeterProvider
func (r *Registry) Shutdown(ctx context.Context) error {
	return r.provider.Shutdown(ctx)
}
