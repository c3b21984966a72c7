// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"llm-observability-api/internal/application/completion"
	"llm-observability-api/internal/config"
	"llm-observability-api/internal/interfaces/http/dto"
	apperrors "llm-observability-api/pkg/errors"
	"llm-observability-api/pkg/logger"
)

// Completer 执行一次补全调用
type Completer interface {
	Complete(ctx context.Context, req completion.Request) (*completion.Result, error)
}

// ChatHandler 补全处理器
type ChatHandler struct {
	svc                Completer
	defaultMaxTokens   int
	defaultTemperature float64
}

// NewChatHandler 创建补全处理器
func NewChatHandler(svc Completer, cfg *config.Config) *ChatHandler {
	return &ChatHandler{
		svc:                svc,
		defaultMaxTokens:   cfg.LLM.DefaultMaxTokens,
		defaultTemperature: cfg.LLM.DefaultTemperature,
	}
}

// Chat 生成补全
// @Summary 生成补全
// @Description 将 prompt 转发给 LLM 提供商并返回结果
// @Tags LLM
// @Accept json
// @Produce json
// @Param body body dto.ChatRequest true "补全请求"
// @Success 200 {object} dto.ChatResponse
// @Failure 422 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/chat [post]
func (h *ChatHandler) Chat(c *gin.Context) {
	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.ValidationError(c, err)
		return
	}

	// 调用方断开连接不取消上游调用，Span 照常结束
	ctx := context.WithoutCancel(c.Request.Context())

	res, err := h.svc.Complete(ctx, req.ToCompletionRequest(h.defaultMaxTokens, h.defaultTemperature))
	if err != nil {
		appErr := apperrors.Wrap(err, apperrors.CodeLLMCallFailed, "llm call failed")
		logger.Warn(ctx, "chat request failed", "code", appErr.Code, "detail", appErr.Detail)
		dto.AppError(c, appErr)
		return
	}

	c.JSON(http.StatusOK, dto.NewChatResponse(res))
}
