package wire

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"llm-observability-api/internal/config"
	"llm-observability-api/internal/observability"
	"llm-observability-api/pkg/logger"
)

func TestInitializeApp(t *testing.T) {
	cfg := &config.Config{}
	cfg.App.Name = "llm-observability-api"
	cfg.LLM.DefaultProvider = "groq"
	cfg.LLM.Providers = map[string]config.ProviderConfig{"groq": {Model: "llama-3.1-8b-instant"}}

	tel, err := observability.Init(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })

	app, cleanup, err := InitializeApp(cfg, tel)
	require.NoError(t, err)
	defer cleanup()

	rec := httptest.NewRecorder()
	app.Engine().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	// 未配置 API Key 时只在调用时失败
	rec = httptest.NewRecorder()
	app.Engine().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestProvideCompletionService_WarnsOnMisconfiguredProvider(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "info", "json")
	t.Cleanup(func() { logger.Init("info", "json") })

	cfg := &config.Config{}
	cfg.LLM.DefaultProvider = "openai"
	cfg.LLM.Providers = map[string]config.ProviderConfig{"groq": {Model: "llama-3.1-8b-instant"}}

	svc := ProvideCompletionService(cfg, nil, noop.NewTracerProvider().Tracer("test"), nil)
	require.NotNil(t, svc)
	assert.Empty(t, svc.Model())
	assert.Contains(t, buf.String(), "default llm provider not configured")
	assert.Contains(t, buf.String(), `"provider":"openai"`)

	buf.Reset()
	cfg.LLM.DefaultProvider = "groq"
	svc = ProvideCompletionService(cfg, nil, noop.NewTracerProvider().Tracer("test"), nil)
	assert.Equal(t, "llama-3.1-8b-instant", svc.Model())
	assert.Empty(t, buf.String())
}
