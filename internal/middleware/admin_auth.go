// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"net/http"

	"personal-site-go/internal/auth"
	"personal-site-go/internal/service"

	"github.com/gin-gonic/gin"
)

const adminKey = "isAdmin"

// AdminGuard 读取 admin_token cookie，把是否为管理员存入上下文。
// 它不拦截任何请求，具体权限由 handler 或 RequireAdmin 决定。
func AdminGuard(authn auth.AdminAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		isAdmin := false
		if tok, err := c.Cookie(auth.CookieName); err == nil {
			isAdmin = authn.IsAdmin(tok)
		}
		c.Set(adminKey, isAdmin)
		c.Next()
	}
}

// IsAdmin 返回 AdminGuard 记录的结果。
func IsAdmin(c *gin.Context) bool {
	return c.GetBool(adminKey)
}

// CallerFrom 将请求上下文转换为业务层的调用方。
func CallerFrom(c *gin.Context) service.Caller {
	return service.Caller{Admin: IsAdmin(c)}
}

// RequireAdmin 拒绝非管理员请求。必须在 AdminGuard 之后使用。
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}
