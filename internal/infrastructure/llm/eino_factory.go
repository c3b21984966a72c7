// Package llm 提供 LLM ChatModel 客户端
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"llm-observability-api/internal/config"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// ErrAPIKeyMissing 提供商未配置 API Key
var ErrAPIKeyMissing = errors.New("api key not configured")

// NewChatModelFunc 根据提供商配置构造 ChatModel
type NewChatModelFunc func(ctx context.Context, cfg config.ProviderConfig) (model.BaseChatModel, error)

// EinoFactory 管理多个 Eino ChatModel 客户端实例
// 客户端在首次调用时惰性创建，API Key 缺失只会在调用时报错
type EinoFactory struct {
	config   *config.LLMConfig
	newModel NewChatModelFunc
	models   map[string]model.BaseChatModel
	mu       sync.RWMutex
}

// NewEinoFactory 创建 Eino LLM 工厂
func NewEinoFactory(cfg *config.Config) *EinoFactory {
	return NewEinoFactoryWith(&cfg.LLM, newOpenAIChatModel)
}

// NewEinoFactoryWith 使用自定义构造函数创建工厂
func NewEinoFactoryWith(cfg *config.LLMConfig, newModel NewChatModelFunc) *EinoFactory {
	return &EinoFactory{
		config:   cfg,
		newModel: newModel,
		models:   make(map[string]model.BaseChatModel),
	}
}

// Get 获取指定名称的 ChatModel，如果未指定则返回默认客户端
func (f *EinoFactory) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	if name == "" {
		name = f.config.DefaultProvider
	}

	f.mu.RLock()
	m, ok := f.models[name]
	f.mu.RUnlock()
	if ok {
		return m, nil
	}

	// 惰性加载
	f.mu.Lock()
	defer f.mu.Unlock()

	// 再次检查防止竞态
	if m, ok = f.models[name]; ok {
		return m, nil
	}

	providerCfg, ok := f.config.Providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %s not found in LLM config", name)
	}
	if strings.TrimSpace(providerCfg.APIKey) == "" {
		return nil, fmt.Errorf("provider %s: %w", name, ErrAPIKeyMissing)
	}

	chatModel, err := f.newModel(ctx, providerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create eino chat model for %s: %w", name, err)
	}

	f.models[name] = chatModel
	return chatModel, nil
}

// newOpenAIChatModel 使用 Eino 的 OpenAI 适配器（Groq 提供 OpenAI 兼容接口）
func newOpenAIChatModel(ctx context.Context, cfg config.ProviderConfig) (model.BaseChatModel, error) {
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return chatModel, nil
}
