package dto

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	apperrors "llm-observability-api/pkg/errors"
)

// ErrorResponse 错误响应结构
type ErrorResponse struct {
	Detail  string `json:"detail"`
	TraceID string `json:"trace_id,omitempty"`
}

// Error 返回错误响应
func Error(c *gin.Context, httpCode int, detail string) {
	c.JSON(httpCode, ErrorResponse{
		Detail:  detail,
		TraceID: c.GetString("trace_id"),
	})
}

// AppError 按 AppError 的状态码与 Detail 返回
func AppError(c *gin.Context, err *apperrors.AppError) {
	detail := err.Detail
	if detail == "" {
		detail = err.Message
	}
	Error(c, err.HTTPStatus, detail)
}

// ValidationError 请求绑定或校验失败时返回 422
func ValidationError(c *gin.Context, err error) {
	Error(c, http.StatusUnprocessableEntity, describeBindError(err))
}

// describeBindError 把 validator 错误转换为以 JSON 字段名表述的信息
func describeBindError(err error) string {
	var nullErr *NullFieldError
	if errors.As(err, &nullErr) {
		return nullErr.Error()
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request body: " + err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s: field required", fe.Field()))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s: must be greater than %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s: failed on '%s'", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
