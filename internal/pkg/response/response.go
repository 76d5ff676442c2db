package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/lk2023060901/file-portal-backend/internal/pkg/errors"
)

// Response 统一响应结构
type Response struct {
	Code    int    `json:"code"`              // 业务错误码（0表示成功）
	Reason  string `json:"reason,omitempty"`  // 机器可读的错误原因
	Message string `json:"message,omitempty"` // 提示信息
	Data    any    `json:"data"`              // 实际数据（可能为空对象 {}）
}

// Success 成功响应（200）
func Success(c *gin.Context, data any) {
	if data == nil {
		data = struct{}{}
	}
	c.JSON(http.StatusOK, Response{Code: apperrors.Success, Data: data})
}

// Created 创建资源成功（201）
func Created(c *gin.Context, data any) {
	if data == nil {
		data = struct{}{}
	}
	c.JSON(http.StatusCreated, Response{Code: apperrors.Success, Data: data})
}

// ErrorWithCode 使用错误码的错误响应
func ErrorWithCode(c *gin.Context, code int, details ...string) {
	c.AbortWithStatusJSON(apperrors.GetHTTPStatus(code), Response{
		Code:    code,
		Reason:  apperrors.GetReason(code),
		Message: apperrors.FormatError(code, details...),
		Data:    struct{}{},
	})
}

// ErrorWithData 错误响应，附带数据（例如未登录时的 authenticated=false）
func ErrorWithData(c *gin.Context, code int, data any) {
	c.AbortWithStatusJSON(apperrors.GetHTTPStatus(code), Response{
		Code:    code,
		Reason:  apperrors.GetReason(code),
		Message: apperrors.GetMessage(code),
		Data:    data,
	})
}

// HandleError 统一错误处理（使用AppError）
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	code := apperrors.ExtractCode(err)
	ErrorWithCode(c, code, apperrors.GetDetails(err))
}

// BadRequest 400 错误
func BadRequest(c *gin.Context, message string) {
	ErrorWithCode(c, apperrors.ErrInvalidParams, message)
}

// Unauthorized 401 错误
func Unauthorized(c *gin.Context) {
	ErrorWithCode(c, apperrors.ErrUnauthorized)
}

// TooManyRequests 429 错误
func TooManyRequests(c *gin.Context) {
	ErrorWithCode(c, apperrors.ErrTooManyRequests)
}

// InternalError 500 错误
func InternalError(c *gin.Context) {
	ErrorWithCode(c, apperrors.ErrInternalServer)
}
