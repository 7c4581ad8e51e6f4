// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"personal-site-go/internal/service"
	"personal-site-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// writeError 将业务层错误映射为 HTTP 状态码，响应体为 {"error": ...}。
func writeError(c *gin.Context, err error) {
	status, msg := errorStatus(c, err)
	c.JSON(status, gin.H{"error": msg})
}

// errorStatus 返回错误对应的状态码和对外消息。未知错误记录日志后按 500 处理。
func errorStatus(c *gin.Context, err error) (int, string) {
	var (
		vErr     *service.ValidationError
		nfErr    *service.NotFoundError
		authErr  *service.AuthorizationError
		conflict *service.ConflictError
	)
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest, vErr.Message
	case errors.As(err, &nfErr):
		return http.StatusNotFound, "Not found"
	case errors.As(err, &authErr):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.As(err, &conflict):
		return http.StatusConflict, conflict.Reason
	case errors.Is(err, service.ErrUnavailable):
		return http.StatusServiceUnavailable, "Service unavailable"
	default:
		log.Error("request failed: "+c.Request.URL.Path, err)
		return http.StatusInternalServerError, "internal error"
	}
}

// parseID 解析路径中的数字 ID，失败时写入 404。
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return 0, false
	}
	return uint(id), true
}
