package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"llm-observability-api/internal/config"
	"llm-observability-api/internal/interfaces/http/dto"
)

// RootMessage 根路径返回的存活横幅
const RootMessage = "LLM Observability API is running"

// HealthHandler 健康检查处理器
type HealthHandler struct {
	llm *config.LLMConfig
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(cfg *config.Config) *HealthHandler {
	return &HealthHandler{llm: &cfg.LLM}
}

type readinessCheck struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Root 存活横幅
// @Summary 存活横幅
// @Tags System
// @Produce json
// @Success 200 {object} dto.MessageResponse
// @Router / [get]
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, dto.MessageResponse{Message: RootMessage})
}

// Health 健康检查接口，不依赖追踪或 LLM 调用链路
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} dto.StatusResponse
// @Router /api/health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, dto.StatusResponse{Status: "healthy"})
}

// Live 存活检查接口
// @Summary 存活检查
// @Tags System
// @Produce json
// @Success 200 {object} dto.StatusResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, dto.StatusResponse{Status: "ok"})
}

// Ready 就绪检查接口：默认提供商已配置且带有 API Key
// 不发起外部调用
// @Summary 就绪检查
// @Tags System
// @Produce json
// @Success 200 {object} readinessResponse
// @Failure 503 {object} readinessResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	check := &readinessCheck{Status: "ok"}

	name, p, ok := h.llm.Default()
	switch {
	case !ok:
		check.Status = "missing"
		check.Error = "llm provider not configured: " + name
	case strings.TrimSpace(p.APIKey) == "":
		check.Status = "missing"
		check.Error = "api key not configured"
	}

	resp := readinessResponse{
		Status: "ok",
		Checks: map[string]*readinessCheck{"llm": check},
	}
	if check.Status != "ok" {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}
