// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// DefaultSenderName 是访客未填写名字时使用的显示名。
const DefaultSenderName = "Anonymous"

// AnonymousMessage 对应于数据库中的 'anonymous_messages' 表。
// 同一个 ChatID 的所有消息构成一个会话（会话本身不单独存储）。
type AnonymousMessage struct {
	ID         uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatID     string     `gorm:"type:varchar(64);not null;index" json:"chatId"`
	SenderName string     `gorm:"type:varchar(100);not null;default:'Anonymous'" json:"senderName"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	Response   *string    `gorm:"type:text" json:"response"`
	ResponseAt *time.Time `gorm:"default:null" json:"responseAt"`
	CreatedAt  time.Time  `gorm:"not null;index" json:"createdAt"`
	IsRead     bool       `gorm:"not null;default:false" json:"isRead"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (AnonymousMessage) TableName() string {
	return "anonymous_messages"
}

// Answered 报告管理员是否已回复。
func (m *AnonymousMessage) Answered() bool {
	return m.Response != nil
}

// ThreadSummary 是按 (chat_id, sender_name) 聚合得到的会话概要，不落库。
type ThreadSummary struct {
	ChatID        string    `json:"chat_id"`
	SenderName    string    `json:"sender_name"`
	MessageCount  int64     `json:"message_count"`
	UnreadCount   int64     `json:"unread_count"`
	LastMessageAt time.Time `json:"-"`
}

// MessageDTO 是对外 JSON 接口返回的消息结构。
type MessageDTO struct {
	ID         uint       `json:"id"`
	ChatID     string     `json:"chat_id"`
	SenderName string     `json:"sender_name"`
	Content    string     `json:"content"`
	Response   *string    `json:"response"`
	ResponseAt *LocalTime `json:"response_at"`
	CreatedAt  LocalTime  `json:"created_at"`
	IsRead     bool       `json:"is_read"`
}

// ToDTO 将数据库模型转换为接口输出格式。
func (m *AnonymousMessage) ToDTO() MessageDTO {
	return MessageDTO{
		ID:         m.ID,
		ChatID:     m.ChatID,
		SenderName: m.SenderName,
		Content:    m.Content,
		Response:   m.Response,
		ResponseAt: NewLocalTime(m.ResponseAt),
		CreatedAt:  LocalTime(m.CreatedAt),
		IsRead:     m.IsRead,
	}
}

// ThreadDTO 是会话列表的输出格式。
type ThreadDTO struct {
	ThreadSummary
	LastMessageAt LocalTime `json:"last_message_at"`
}

// ToDTO 将会话概要转换为接口输出格式。
func (t ThreadSummary) ToDTO() ThreadDTO {
	return ThreadDTO{ThreadSummary: t, LastMessageAt: LocalTime(t.LastMessageAt)}
}

// 实时推送的事件类型。
const (
	EventMessage  = "message"
	EventResponse = "response"
)

// ChatEvent 是通过 websocket 推送给会话订阅者的事件。
type ChatEvent struct {
	Type    string     `json:"type"`
	Message MessageDTO `json:"message"`
}
