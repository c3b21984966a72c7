package completion

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"llm-observability-api/pkg/logger"
	"llm-observability-api/pkg/metrics"
)

// Service 单次 LLM 调用：一个 Span，一次请求计数，成功时一次耗时样本与 Token 计数
type Service struct {
	factory  ChatModelFactory
	tracer   trace.Tracer
	metrics  *metrics.LLMInstruments
	provider string
	model    string
}

// NewService 创建补全服务
func NewService(factory ChatModelFactory, tracer trace.Tracer, instruments *metrics.LLMInstruments, provider, modelName string) *Service {
	return &Service{
		factory:  factory,
		tracer:   tracer,
		metrics:  instruments,
		provider: provider,
		model:    modelName,
	}
}

// Model 返回当前部署使用的模型名称
func (s *Service) Model() string {
	return s.model
}

// Complete 调用外部补全接口
// 提供商返回的错误在记录后原样返回，不做重试与分类
func (s *Service) Complete(ctx context.Context, req Request) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, SpanName, trace.WithAttributes(
		attribute.String(AttrProvider, s.provider),
		attribute.String(AttrModel, s.model),
		attribute.String(AttrPrompt, req.Prompt),
		attribute.Int(AttrMaxTokens, req.MaxTokens),
		attribute.Float64(AttrTemperature, req.Temperature),
	))
	defer span.End()

	start := time.Now()

	out, err := s.generate(ctx, req)
	if err != nil {
		span.SetAttributes(
			attribute.String(AttrStatus, metrics.StatusError),
			attribute.String(AttrErrorMessage, err.Error()),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		s.metrics.RecordError(ctx, s.model)

		logger.Error(ctx, "llm completion failed", err,
			"provider", s.provider,
			"model", s.model,
		)
		return nil, err
	}

	elapsed := time.Since(start)
	tokensUsed := totalTokens(out)

	span.SetAttributes(
		attribute.Float64(AttrResponseTime, elapsed.Seconds()),
		attribute.Int(AttrTokensUsed, tokensUsed),
		attribute.String(AttrStatus, metrics.StatusSuccess),
	)
	s.metrics.RecordSuccess(ctx, s.model, elapsed, tokensUsed)

	logger.Debug(ctx, "llm completion finished",
		"model", s.model,
		"tokens_used", tokensUsed,
		"duration_ms", elapsed.Milliseconds(),
	)

	return &Result{
		ResponseText: out.Content,
		Model:        s.model,
		TokensUsed:   tokensUsed,
	}, nil
}

// generate 单次同步调用，不设置额外超时
func (s *Service) generate(ctx context.Context, req Request) (*schema.Message, error) {
	chatModel, err := s.factory.Get(ctx, s.provider)
	if err != nil {
		return nil, err
	}

	out, err := chatModel.Generate(ctx,
		[]*schema.Message{schema.UserMessage(req.Prompt)},
		model.WithModel(s.model),
		model.WithMaxTokens(req.MaxTokens),
		model.WithTemperature(float32(req.Temperature)),
	)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("empty llm response")
	}
	return out, nil
}

// totalTokens 提取总 Token 数，缺失时为 0
func totalTokens(msg *schema.Message) int {
	if msg.ResponseMeta == nil || msg.ResponseMeta.Usage == nil {
		return 0
	}
	u := msg.ResponseMeta.Usage
	total := u.TotalTokens
	if total == 0 {
		total = u.PromptTokens + u.CompletionTokens
	}
	if total < 0 {
		return 0
	}
	return total
}
