package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// 调用状态标签值
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// 导出后的 Prometheus 名称分别为
// llm_requests_total / llm_response_time_seconds / llm_tokens_total
const (
	requestsName     = "llm_requests"
	responseTimeName = "llm_response_time"
	tokensName       = "llm_tokens"
)

// LLMInstruments LLM 调用指标
type LLMInstruments struct {
	requests     metric.Int64Counter
	responseTime metric.Float64Histogram
	tokens       metric.Int64Counter
}

// NewLLMInstruments 在给定 Meter 上创建 LLM 指标
func NewLLMInstruments(meter metric.Meter) (*LLMInstruments, error) {
	requests, err := meter.Int64Counter(requestsName,
		metric.WithDescription("Total number of LLM requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s counter: %w", requestsName, err)
	}

	responseTime, err := meter.Float64Histogram(responseTimeName,
		metric.WithDescription("LLM response time in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(.1, .25, .5, 1, 2.5, 5, 10, 30, 60),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s histogram: %w", responseTimeName, err)
	}

	tokens, err := meter.Int64Counter(tokensName,
		metric.WithDescription("Total tokens used"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s counter: %w", tokensName, err)
	}

	return &LLMInstruments{
		requests:     requests,
		responseTime: responseTime,
		tokens:       tokens,
	}, nil
}

// RecordSuccess 记录一次成功调用：请求数、耗时样本、Token 数各一次
func (m *LLMInstruments) RecordSuccess(ctx context.Context, model string, elapsed time.Duration, tokensUsed int) {
	modelAttr := attribute.String("model", model)

	m.requests.Add(ctx, 1, metric.WithAttributes(modelAttr, attribute.String("status", StatusSuccess)))
	m.responseTime.Record(ctx, elapsed.Seconds(), metric.WithAttributes(modelAttr))
	m.tokens.Add(ctx, int64(tokensUsed), metric.WithAttributes(modelAttr))
}

// RecordError 记录一次失败调用，仅计入请求数
func (m *LLMInstruments) RecordError(ctx context.Context, model string) {
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("status", StatusError),
	))
}
