// Package tracer 提供 OpenTelemetry 链路追踪功能
package tracer

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// ProtocolHTTP OTLP over HTTP/protobuf
	ProtocolHTTP = "http/protobuf"
	// ProtocolGRPC OTLP over gRPC
	ProtocolGRPC = "grpc"
)

var tracer trace.Tracer

// Config 追踪配置
type Config struct {
	ServiceName    string
	ServiceVersion string
	Protocol       string
	Endpoint       string
	Insecure       bool
	SampleRate     float64
	Enabled        bool
}

// Init 初始化 OpenTelemetry 追踪
// Span 通过 Batcher 异步导出，Collector 不可达不会影响请求
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if !cfg.Enabled {
		// 追踪未启用，返回空的 shutdown 函数
		tracer = otel.Tracer(cfg.ServiceName)
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	tp := NewProvider(cfg, sdktrace.WithBatcher(exporter))

	// 设置全局 TracerProvider
	otel.SetTracerProvider(tp)

	// 设置传播器
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	tracer = tp.Tracer(cfg.ServiceName)

	return tp.Shutdown, nil
}

// NewProvider 基于配置创建 TracerProvider，opts 用于挂载 SpanProcessor
func NewProvider(cfg Config, opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	base := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(newResource(cfg)),
		sdktrace.WithSampler(newSampler(cfg.SampleRate)),
	}
	return sdktrace.NewTracerProvider(append(base, opts...)...)
}

// newResource 不与 resource.Default() 合并，避免 schema URL 冲突
func newResource(cfg Config) *resource.Resource {
	attrs := []attribute.KeyValue{semconv.ServiceName(cfg.ServiceName)}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}
	return resource.NewWithAttributes(semconv.SchemaURL, attrs...)
}

func newSampler(rate float64) sdktrace.Sampler {
	var sampler sdktrace.Sampler
	if rate >= 1.0 {
		sampler = sdktrace.AlwaysSample()
	} else if rate <= 0 {
		sampler = sdktrace.NeverSample()
	} else {
		sampler = sdktrace.TraceIDRatioBased(rate)
	}
	return sdktrace.ParentBased(sampler)
}

// newExporter 按协议创建 OTLP exporter
// endpoint 带 scheme 时按完整 URL 处理（例如 http://localhost:4318/v1/traces）
func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	hasScheme := strings.Contains(cfg.Endpoint, "://")

	switch cfg.Protocol {
	case ProtocolGRPC:
		var opts []otlptracegrpc.Option
		if hasScheme {
			opts = append(opts, otlptracegrpc.WithEndpointURL(cfg.Endpoint))
		} else if cfg.Endpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	case ProtocolHTTP, "":
		var opts []otlptracehttp.Option
		if hasScheme {
			opts = append(opts, otlptracehttp.WithEndpointURL(cfg.Endpoint))
		} else {
			if cfg.Endpoint != "" {
				opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
			}
			if cfg.Insecure {
				opts = append(opts, otlptracehttp.WithInsecure())
			}
		}
		return otlptracehttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported otlp protocol: %s", cfg.Protocol)
	}
}

// Tracer 返回当前进程的 Tracer
func Tracer() trace.Tracer {
	if tracer == nil {
		tracer = otel.Tracer("llm-observability-api")
	}
	return tracer
}

// TraceID 从 context 获取 trace ID
func TraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

// SpanID 从 context 获取 span ID
func SpanID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().SpanID().String()
	}
	return ""
}
