package handler

import (
	"errors"
	"net/http"

	"personal-site-go/internal/auth"
	"personal-site-go/internal/middleware"
	"personal-site-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// AdminHandler 负责管理员登录与登出。
type AdminHandler struct {
	authn        auth.AdminAuthenticator
	cookieSecure bool
}

// NewAdminHandler 创建一个新的 AdminHandler 实例。
func NewAdminHandler(authn auth.AdminAuthenticator, cookieSecure bool) *AdminHandler {
	return &AdminHandler{authn: authn, cookieSecure: cookieSecure}
}

// Status 返回当前请求是否带有管理员凭据。
func (h *AdminHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"admin": middleware.IsAdmin(c)})
}

// Login 校验表单中的密码，成功后写入 admin_token cookie。
func (h *AdminHandler) Login(c *gin.Context) {
	tok, err := h.authn.Login(c.PostForm("password"))
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			log.Error("管理员登录失败", err)
		} else {
			log.Warnw("admin login rejected", "clientIP", c.ClientIP())
		}
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid password"})
		return
	}
	h.setCookie(c, tok, h.authn.CookieMaxAge())
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Logout 清除 admin_token cookie。
func (h *AdminHandler) Logout(c *gin.Context) {
	h.setCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AdminHandler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, value, maxAge, "/", "", h.cookieSecure, true)
}
