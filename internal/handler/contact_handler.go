package handler

import (
	"net/http"

	"personal-site-go/internal/middleware"
	"personal-site-go/internal/service"

	"github.com/gin-gonic/gin"
)

// ContactHandler 负责联系表单相关的接口。
type ContactHandler struct {
	contacts service.ContactService
}

// NewContactHandler 创建一个新的 ContactHandler。
func NewContactHandler(contacts service.ContactService) *ContactHandler {
	return &ContactHandler{contacts: contacts}
}

// Submit 处理联系表单提交。
func (h *ContactHandler) Submit(c *gin.Context) {
	msg, err := h.contacts.Submit(c.Request.Context(), service.ContactSubmission{
		Name:     c.PostForm("name"),
		Email:    c.PostForm("email"),
		Message:  c.PostForm("message"),
		Captcha:  c.PostForm("g-recaptcha-response"),
		RemoteIP: c.ClientIP(),
	})
	if err != nil {
		status, errMsg := errorStatus(c, err)
		c.JSON(status, gin.H{"success": false, "error": errMsg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": msg.ID})
}

// List 返回联系消息，?unread=1 时只返回未读。
func (h *ContactHandler) List(c *gin.Context) {
	unreadOnly := c.Query("unread") == "1" || c.Query("unread") == "true"
	msgs, err := h.contacts.List(c.Request.Context(), middleware.CallerFrom(c), unreadOnly)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": msgs})
}

// MarkRead 将联系消息标记为已读。
func (h *ContactHandler) MarkRead(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.contacts.MarkRead(c.Request.Context(), middleware.CallerFrom(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
