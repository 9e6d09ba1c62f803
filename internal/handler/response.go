package handler

import (
	"errors"
	"net/http"

	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/logic"
	"github.com/gin-gonic/gin"
)

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
		Data:    nil,
	})
}

// LogicErrorResponse 按业务错误分类映射 HTTP 状态码
func LogicErrorResponse(c *gin.Context, err error) {
	switch {
	case errors.Is(err, logic.ErrNotFound):
		ErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, logic.ErrStateConflict),
		errors.Is(err, logic.ErrConcurrencyConflict):
		ErrorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, logic.ErrInvalidInput),
		errors.Is(err, logic.ErrBelowMinimumParts),
		errors.Is(err, logic.ErrInsufficientParts):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	default:
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
	}
}
