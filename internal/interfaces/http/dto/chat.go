// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"bytes"
	"encoding/json"

	"llm-observability-api/internal/application/completion"
)

// ChatRequest 补全请求
// max_tokens / temperature 缺省时使用配置中的默认值
type ChatRequest struct {
	Prompt      string   `json:"prompt" binding:"required"`
	MaxTokens   *int     `json:"max_tokens,omitempty" binding:"omitempty,gt=0"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// NullFieldError 可选字段显式传入 null
type NullFieldError struct {
	Field string
}

func (e *NullFieldError) Error() string {
	return e.Field + ": must not be null"
}

// UnmarshalJSON 省略字段取默认值，显式 null 视为非法输入
func (r *ChatRequest) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for _, name := range []string{"max_tokens", "temperature"} {
		if raw, ok := fields[name]; ok && bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return &NullFieldError{Field: name}
		}
	}

	type plain ChatRequest
	return json.Unmarshal(data, (*plain)(r))
}

// ToCompletionRequest 填充默认值并转换为应用层请求
func (r *ChatRequest) ToCompletionRequest(defaultMaxTokens int, defaultTemperature float64) completion.Request {
	out := completion.Request{
		Prompt:      r.Prompt,
		MaxTokens:   defaultMaxTokens,
		Temperature: defaultTemperature,
	}
	if r.MaxTokens != nil {
		out.MaxTokens = *r.MaxTokens
	}
	if r.Temperature != nil {
		out.Temperature = *r.Temperature
	}
	return out
}

// ChatResponse 补全响应
type ChatResponse struct {
	Response   string `json:"response"`
	Model      string `json:"model"`
	TokensUsed int    `json:"tokens_used"`
}

// NewChatResponse 从应用层结果构造响应
func NewChatResponse(res *completion.Result) ChatResponse {
	return ChatResponse{
		Response:   res.ResponseText,
		Model:      res.Model,
		TokensUsed: res.TokensUsed,
	}
}

// StatusResponse 健康检查响应
type StatusResponse struct {
	Status string `json:"status"`
}

// MessageResponse 根路径响应
type MessageResponse struct {
	Message string `json:"message"`
}
