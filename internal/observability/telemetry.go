// Package observability 负责进程级的追踪与指标初始化
package observability

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"

	"go.opentelemetry.io/otel"

	"llm-observability-api/internal/config"
	"llm-observability-api/pkg/logger"
	"llm-observability-api/pkg/metrics"
	"llm-observability-api/pkg/tracer"
)

// ErrAlreadyInitialized 重复初始化属于编程错误
var ErrAlreadyInitialized = errors.New("telemetry already initialized")

var initialized atomic.Bool

// Telemetry 持有进程级的 TracerProvider / 指标注册中心 / 指标端口
type Telemetry struct {
	Metrics *metrics.Registry

	server         *metrics.Server
	shutdownTracer func(context.Context) error
}

// Init 初始化追踪与指标，每个进程只能调用一次
// 指标端口在此处同步绑定，端口占用时返回错误
func Init(ctx context.Context, cfg *config.Config) (*Telemetry, error) {
	if !initialized.CompareAndSwap(false, true) {
		return nil, ErrAlreadyInitialized
	}

	// 导出失败只记录日志，不影响请求
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		logger.Warn(context.Background(), "opentelemetry error", "error", err.Error())
	}))

	shutdownTracer, err := tracer.Init(ctx, tracer.Config{
		ServiceName:    cfg.App.Name,
		ServiceVersion: cfg.App.Version,
		Protocol:       cfg.Observability.Tracing.Protocol,
		Endpoint:       cfg.Observability.Tracing.Endpoint,
		Insecure:       cfg.Observability.Tracing.Insecure,
		SampleRate:     cfg.Observability.Tracing.SampleRate,
		Enabled:        cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init tracer: %w", err)
	}

	reg, err := metrics.New(metrics.Config{ServiceName: cfg.App.Name})
	if err != nil {
		_ = shutdownTracer(ctx)
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	otel.SetMeterProvider(reg.MeterProvider())

	t := &Telemetry{
		Metrics:        reg,
		shutdownTracer: shutdownTracer,
	}

	mc := cfg.Observability.Metrics
	if mc.Enabled {
		addr := net.JoinHostPort(mc.Host, strconv.Itoa(mc.Port))
		srv, err := metrics.Listen(addr, mc.Path, reg.Handler())
		if err != nil {
			_ = reg.Shutdown(ctx)
			_ = shutdownTracer(ctx)
			return nil, err
		}
		t.server = srv
		logger.Info(ctx, "metrics listener bound", "addr", srv.Addr(), "path", mc.Path)
	}

	return t, nil
}

// MetricsAddr 返回指标端口地址，未启用时为空
func (t *Telemetry) MetricsAddr() string {
	if t.server == nil {
		return ""
	}
	return t.server.Addr()
}

// ServeMetrics 阻塞处理指标拉取请求，未启用时立即返回
func (t *Telemetry) ServeMetrics() error {
	if t.server == nil {
		return nil
	}
	return t.server.Serve()
}

// Shutdown 关闭指标端口并刷新剩余 Span 与指标
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.server != nil {
		if err := t.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server: %w", err))
		}
	}
	if err := t.Metrics.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("meter provider: %w", err))
	}
	if err := t.shutdownTracer(ctx); err != nil {
		errs = append(errs, fmt.Errorf("tracer provider: %w", err))
	}
	return errors.Join(errs...)
}
