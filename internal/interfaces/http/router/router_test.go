package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"llm-observability-api/internal/application/completion"
	"llm-observability-api/internal/config"
	"llm-observability-api/internal/interfaces/http/dto"
	"llm-observability-api/internal/interfaces/http/handler"
	"llm-observability-api/internal/interfaces/http/middleware"
	"llm-observability-api/pkg/metrics"
)

type scriptedModel struct {
	reply *schema.Message
	err   error
}

func (m *scriptedModel) Generate(context.Context, []*schema.Message, ...model.Option) (*schema.Message, error) {
	return m.reply, m.err
}

func (m *scriptedModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

type staticFactory struct{ m model.BaseChatModel }

func (f staticFactory) Get(context.Context, string) (model.BaseChatModel, error) { return f.m, nil }

type env struct {
	engine   *gin.Engine
	spans    *tracetest.SpanRecorder
	reader   *sdkmetric.ManualReader
	http     *metrics.HTTPCollectors
}

func newEnv(t *testing.T, chatModel model.BaseChatModel) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	inst, err := metrics.NewLLMInstruments(mp.Meter(metrics.InstrumentationName))
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.App.Name = "llm-observability-api"
	cfg.App.Env = "test"
	cfg.LLM.DefaultProvider = "groq"
	cfg.LLM.DefaultMaxTokens = 100
	cfg.LLM.DefaultTemperature = 0.7
	cfg.LLM.Providers = map[string]config.ProviderConfig{"groq": {APIKey: "k", Model: "llama-3.1-8b-instant"}}
	cfg.Observability.Tracing.Enabled = true
	cfg.Observability.Metrics.Enabled = true

	svc := completion.NewService(staticFactory{m: chatModel}, tp.Tracer("test"), inst, "groq", "llama-3.1-8b-instant")

	httpMetrics := metrics.NewHTTPCollectors(prometheus.NewRegistry())
	r := New(cfg, Handlers{
		Chat:   handler.NewChatHandler(svc, cfg),
		Health: handler.NewHealthHandler(cfg),
	}, httpMetrics)

	return &env{engine: r.Engine(), spans: spans, reader: reader, http: httpMetrics}
}

func (e *env) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	return rec
}

func (e *env) llmSpans() []sdktrace.ReadOnlySpan {
	var out []sdktrace.ReadOnlySpan
	for _, s := range e.spans.Ended() {
		if s.Name() == completion.SpanName {
			out = append(out, s)
		}
	}
	return out
}

func (e *env) requestCounts(t *testing.T) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, e.reader.Collect(context.Background(), &rm))

	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				if status, ok := dp.Attributes.Value(attribute.Key("status")); ok {
					out[status.AsString()] += dp.Value
				}
			}
		}
	}
	return out
}

func withUsage(text string, total int) *schema.Message {
	msg := schema.AssistantMessage(text, nil)
	msg.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{TotalTokens: total}}
	return msg
}

func TestChat_SayHiScenario(t *testing.T) {
	e := newEnv(t, &scriptedModel{reply: withUsage("Hello!", 5)})

	rec := e.do(http.MethodPost, "/api/chat", `{"prompt":"Say hi"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"response":"Hello!","model":"llama-3.1-8b-instant","tokens_used":5}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
	assert.NotEmpty(t, rec.Header().Get(middleware.TraceIDHeader))

	llm := e.llmSpans()
	require.Len(t, llm, 1)

	// 补全 Span 挂在 otelgin 服务端 Span 之下
	var server sdktrace.ReadOnlySpan
	for _, s := range e.spans.Ended() {
		if s.Name() != completion.SpanName {
			server = s
		}
	}
	require.NotNil(t, server)
	assert.Equal(t, server.SpanContext().SpanID(), llm[0].Parent().SpanID())
	assert.Equal(t, rec.Header().Get(middleware.TraceIDHeader), llm[0].SpanContext().TraceID().String())

	assert.Equal(t, map[string]int64{"success": 1}, e.requestCounts(t))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.http.RequestsTotal.WithLabelValues(http.MethodPost, "/api/chat", "200")))
}

func TestChat_AuthFaultScenario(t *testing.T) {
	e := newEnv(t, &scriptedModel{err: errors.New("Error code: 401 - {'error': {'message': 'Invalid API Key'}}")})

	rec := e.do(http.MethodPost, "/api/chat", `{"prompt":"Say hi"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Detail, "Invalid API Key")
	assert.Equal(t, rec.Header().Get(middleware.TraceIDHeader), resp.TraceID)

	require.Len(t, e.llmSpans(), 1)
	assert.Equal(t, map[string]int64{"error": 1}, e.requestCounts(t))
}

func TestChat_ValidationFailureEmitsNoTelemetry(t *testing.T) {
	e := newEnv(t, &scriptedModel{reply: withUsage("x", 1)})

	rec := e.do(http.MethodPost, "/api/chat", `{"max_tokens":5}`)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, e.llmSpans())
	assert.Empty(t, e.requestCounts(t))
	// HTTP 层指标仍然记录该请求
	assert.Equal(t, 1.0, testutil.ToFloat64(e.http.RequestsTotal.WithLabelValues(http.MethodPost, "/api/chat", "422")))
}

func TestHealthRoutes(t *testing.T) {
	e := newEnv(t, &scriptedModel{err: errors.New("provider down")})

	rec := e.do(http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = e.do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"LLM Observability API is running"}`, rec.Body.String())

	rec = e.do(http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Empty(t, e.llmSpans())
}

func TestUnknownRoute(t *testing.T) {
	e := newEnv(t, &scriptedModel{})

	rec := e.do(http.MethodGet, "/api/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(e.http.RequestsTotal.WithLabelValues(http.MethodGet, "unknown", "404")))
}
