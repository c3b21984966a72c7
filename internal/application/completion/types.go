// Package completion 提供带追踪与指标的 LLM 补全调用
package completion

import (
	"context"

	"github.com/cloudwego/eino/components/model"
)

// SpanName 单次补全调用的 Span 名称
const SpanName = "llm_generate_completion"

// Span 属性键
const (
	AttrProvider     = "llm.provider"
	AttrModel        = "llm.model"
	AttrPrompt       = "llm.prompt"
	AttrMaxTokens    = "llm.max_tokens"
	AttrTemperature  = "llm.temperature"
	AttrResponseTime = "llm.response_time"
	AttrTokensUsed   = "llm.tokens_used"
	AttrStatus       = "llm.status"
	AttrErrorMessage = "error.message"
)

// ChatModelFactory 对 LLM ChatModel 的最小依赖
type ChatModelFactory interface {
	Get(ctx context.Context, name string) (model.BaseChatModel, error)
}

// Request 补全请求，已完成校验与默认值填充
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Result 补全结果
type Result struct {
	ResponseText string
	Model        string
	TokensUsed   int
}
