package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"personal-site-go/internal/middleware"
	"personal-site-go/internal/model"
	"personal-site-go/internal/realtime"
	"personal-site-go/internal/service"
	"personal-site-go/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源，chat_id 本身就是访问凭据
	},
}

// ChatHandler 负责匿名会话相关的接口。
type ChatHandler struct {
	messages service.MessageService
	hub      *realtime.Hub
}

// NewChatHandler 创建一个新的 ChatHandler。hub 为 nil 时不提供 websocket 推送。
func NewChatHandler(messages service.MessageService, hub *realtime.Hub) *ChatHandler {
	return &ChatHandler{messages: messages, hub: hub}
}

// Index 对管理员返回会话列表，对访客下发一个新的 chat_id。
func (h *ChatHandler) Index(c *gin.Context) {
	if !middleware.IsAdmin(c) {
		c.JSON(http.StatusOK, gin.H{"chat_id": h.messages.NewChatID()})
		return
	}
	threads, err := h.messages.ListThreads(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]model.ThreadDTO, 0, len(threads))
	for _, t := range threads {
		out = append(out, t.ToDTO())
	}
	c.JSON(http.StatusOK, gin.H{"threads": out})
}

// Thread 返回单个会话的全部消息，仅限管理员。
func (h *ChatHandler) Thread(c *gin.Context) {
	chatID := c.Param("chat_id")
	msgs, err := h.messages.GetMessages(c.Request.Context(), chatID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat_id": chatID, "messages": toDTOs(msgs)})
}

// Messages 返回会话消息数组，供访客轮询。
func (h *ChatHandler) Messages(c *gin.Context) {
	msgs, err := h.messages.GetMessages(c.Request.Context(), c.Param("chat_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDTOs(msgs))
}

// Send 处理访客发送消息的表单。
func (h *ChatHandler) Send(c *gin.Context) {
	msg, err := h.messages.SendMessage(c.Request.Context(),
		c.PostForm("chat_id"), c.PostForm("sender_name"), c.PostForm("content"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg.ToDTO())
}

// MarkRead 将消息标记为已读。
func (h *ChatHandler) MarkRead(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.messages.MarkRead(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Respond 记录管理员对消息的回复。
func (h *ChatHandler) Respond(c *gin.Context) {
	caller := middleware.CallerFrom(c)
	if !caller.Admin {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	msg, err := h.messages.Respond(c.Request.Context(), caller, id, c.PostForm("response"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg.ToDTO())
}

// Stream 将会话的新消息和回复通过 websocket 推送给客户端。
func (h *ChatHandler) Stream(c *gin.Context) {
	if h.hub == nil {
		writeError(c, service.ErrUnavailable)
		return
	}
	chatID := c.Param("chat_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe(chatID)
	defer sub.Close()
	log.Infof("WebSocket 连接已建立，会话: %s", chatID)

	// 读循环只用于感知客户端断开
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			log.Infof("WebSocket 连接已关闭，会话: %s", chatID)
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				log.Error("序列化会话事件失败", err)
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func toDTOs(msgs []model.AnonymousMessage) []model.MessageDTO {
	out := make([]model.MessageDTO, 0, len(msgs))
	for i := range msgs {
		out = append(out, msgs[i].ToDTO())
	}
	return out
}
