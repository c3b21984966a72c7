package completion

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"llm-observability-api/pkg/metrics"
)

const testModel = "llama-3.1-8b-instant"

type fakeModel struct {
	mu       sync.Mutex
	reply    *schema.Message
	err      error
	calls    int
	lastIn   []*schema.Message
	lastOpts *model.Options
}

func (f *fakeModel) Generate(_ context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastIn = in
	f.lastOpts = model.GetCommonOptions(nil, opts...)
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func (f *fakeModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

type fakeFactory struct {
	model model.BaseChatModel
	err   error
}

func (f *fakeFactory) Get(context.Context, string) (model.BaseChatModel, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.model, nil
}

type harness struct {
	svc    *Service
	spans  *tracetest.SpanRecorder
	reader *sdkmetric.ManualReader
}

func newHarness(t *testing.T, factory ChatModelFactory) *harness {
	t.Helper()

	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	inst, err := metrics.NewLLMInstruments(mp.Meter(metrics.InstrumentationName))
	require.NoError(t, err)

	return &harness{
		svc:    NewService(factory, tp.Tracer("test"), inst, "groq", testModel),
		spans:  spans,
		reader: reader,
	}
}

func replyWithUsage(text string, total int) *schema.Message {
	msg := schema.AssistantMessage(text, nil)
	msg.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{TotalTokens: total}}
	return msg
}

type collected struct {
	requests map[string]int64
	samples  uint64
	minSum   float64
	tokens   int64
}

func (h *harness) collect(t *testing.T) collected {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, h.reader.Collect(context.Background(), &rm))

	out := collected{requests: map[string]int64{}}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					if status, ok := dp.Attributes.Value(attribute.Key("status")); ok {
						out.requests[status.AsString()] += dp.Value
					} else {
						out.tokens += dp.Value
					}
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					out.samples += dp.Count
					out.minSum += dp.Sum
				}
			}
		}
	}
	return out
}

func attrsOf(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestComplete_Success(t *testing.T) {
	fm := &fakeModel{reply: replyWithUsage("Hello!", 5)}
	h := newHarness(t, &fakeFactory{model: fm})

	res, err := h.svc.Complete(context.Background(), Request{Prompt: "Say hi", MaxTokens: 100, Temperature: 0.7})
	require.NoError(t, err)
	assert.Equal(t, &Result{ResponseText: "Hello!", Model: testModel, TokensUsed: 5}, res)

	// 调用参数透传
	require.Equal(t, 1, fm.calls)
	require.Len(t, fm.lastIn, 1)
	assert.Equal(t, schema.User, fm.lastIn[0].Role)
	assert.Equal(t, "Say hi", fm.lastIn[0].Content)
	require.NotNil(t, fm.lastOpts.MaxTokens)
	assert.Equal(t, 100, *fm.lastOpts.MaxTokens)
	require.NotNil(t, fm.lastOpts.Temperature)
	assert.InDelta(t, 0.7, *fm.lastOpts.Temperature, 1e-6)
	require.NotNil(t, fm.lastOpts.Model)
	assert.Equal(t, testModel, *fm.lastOpts.Model)

	// Span
	ended := h.spans.Ended()
	require.Len(t, ended, 1)
	span := ended[0]
	assert.Equal(t, SpanName, span.Name())
	attrs := attrsOf(span)
	assert.Equal(t, "groq", attrs[AttrProvider].AsString())
	assert.Equal(t, testModel, attrs[AttrModel].AsString())
	assert.Equal(t, "Say hi", attrs[AttrPrompt].AsString())
	assert.Equal(t, int64(100), attrs[AttrMaxTokens].AsInt64())
	assert.InDelta(t, 0.7, attrs[AttrTemperature].AsFloat64(), 1e-9)
	assert.Equal(t, int64(5), attrs[AttrTokensUsed].AsInt64())
	assert.Equal(t, metrics.StatusSuccess, attrs[AttrStatus].AsString())
	assert.GreaterOrEqual(t, attrs[AttrResponseTime].AsFloat64(), 0.0)
	assert.NotContains(t, attrs, attribute.Key(AttrErrorMessage))
	assert.NotEqual(t, codes.Error, span.Status().Code)

	// 指标
	got := h.collect(t)
	assert.Equal(t, map[string]int64{metrics.StatusSuccess: 1}, got.requests)
	assert.Equal(t, uint64(1), got.samples)
	assert.GreaterOrEqual(t, got.minSum, 0.0)
	assert.Equal(t, int64(5), got.tokens)
}

func TestComplete_ProviderFaultPropagatedUnmodified(t *testing.T) {
	providerErr := errors.New("Error code: 401 - invalid api key")
	h := newHarness(t, &fakeFactory{model: &fakeModel{err: providerErr}})

	res, err := h.svc.Complete(context.Background(), Request{Prompt: "Say hi", MaxTokens: 100, Temperature: 0.7})
	require.Nil(t, res)
	assert.Same(t, providerErr, err)

	ended := h.spans.Ended()
	require.Len(t, ended, 1)
	span := ended[0]
	attrs := attrsOf(span)
	assert.Equal(t, metrics.StatusError, attrs[AttrStatus].AsString())
	assert.Equal(t, providerErr.Error(), attrs[AttrErrorMessage].AsString())
	assert.Equal(t, codes.Error, span.Status().Code)
	assert.NotContains(t, attrs, attribute.Key(AttrTokensUsed))

	var exceptions int
	for _, ev := range span.Events() {
		if ev.Name == "exception" {
			exceptions++
		}
	}
	assert.Equal(t, 1, exceptions)

	got := h.collect(t)
	assert.Equal(t, map[string]int64{metrics.StatusError: 1}, got.requests)
	assert.Zero(t, got.samples)
	assert.Zero(t, got.tokens)
}

func TestComplete_FactoryErrorCountsAsProviderFault(t *testing.T) {
	factoryErr := errors.New("provider groq: api key not configured")
	h := newHarness(t, &fakeFactory{err: factoryErr})

	_, err := h.svc.Complete(context.Background(), Request{Prompt: "x", MaxTokens: 1})
	assert.Same(t, factoryErr, err)

	require.Len(t, h.spans.Ended(), 1)
	got := h.collect(t)
	assert.Equal(t, map[string]int64{metrics.StatusError: 1}, got.requests)
	assert.Zero(t, got.samples)
}

func TestComplete_NilResponseIsFault(t *testing.T) {
	h := newHarness(t, &fakeFactory{model: &fakeModel{}})

	_, err := h.svc.Complete(context.Background(), Request{Prompt: "x", MaxTokens: 1})
	require.Error(t, err)

	got := h.collect(t)
	assert.Equal(t, map[string]int64{metrics.StatusError: 1}, got.requests)
}

func TestComplete_MissingUsageRecordsZeroTokens(t *testing.T) {
	h := newHarness(t, &fakeFactory{model: &fakeModel{reply: schema.AssistantMessage("ok", nil)}})

	res, err := h.svc.Complete(context.Background(), Request{Prompt: "x", MaxTokens: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, res.TokensUsed)

	got := h.collect(t)
	assert.Equal(t, int64(0), got.tokens)
	assert.Equal(t, uint64(1), got.samples)
}

func TestComplete_ConcurrentCallsAreIndependent(t *testing.T) {
	fm := &fakeModel{reply: replyWithUsage("ok", 3)}
	h := newHarness(t, &fakeFactory{model: fm})

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.Complete(context.Background(), Request{Prompt: "p", MaxTokens: 10})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, h.spans.Ended(), n)
	got := h.collect(t)
	assert.Equal(t, int64(n), got.requests[metrics.StatusSuccess])
	assert.Equal(t, uint64(n), got.samples)
	assert.Equal(t, int64(3*n), got.tokens)
}

func TestTotalTokens(t *testing.T) {
	msg := schema.AssistantMessage("x", nil)
	assert.Equal(t, 0, totalTokens(msg))

	msg.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{PromptTokens: 2, CompletionTokens: 3}}
	assert.Equal(t, 5, totalTokens(msg))

	msg.ResponseMeta.Usage.TotalTokens = 9
	assert.Equal(t, 9, totalTokens(msg))
}
