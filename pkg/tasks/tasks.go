// Package tasks defines the notification tasks handed to the notifier, in-process or via Kafka.
package tasks

import (
	"strconv"
	"time"
)

// Notification kinds.
const (
	KindChatMessage  = "chat_message"
	KindChatResponse = "chat_response"
	KindContact      = "contact"
	KindDigest       = "digest"
)

// Notification is a fire-and-forget email job describing a committed state change.
type Notification struct {
	Kind       string    `json:"kind"`
	ChatID     string    `json:"chat_id,omitempty"`
	MessageID  uint      `json:"message_id,omitempty"`
	SenderName string    `json:"sender_name,omitempty"`
	Email      string    `json:"email,omitempty"`
	Content    string    `json:"content,omitempty"`
	Response   string    `json:"response,omitempty"`
	// digest counters
	UnreadMessages int64     `json:"unread_messages,omitempty"`
	UnreadContacts int64     `json:"unread_contacts,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Key identifies a notification for retry bookkeeping.
func (n Notification) Key() string {
	switch n.Kind {
	case KindDigest:
		return n.Kind + ":" + n.CreatedAt.Format("20060102150405")
	default:
		return n.Kind + ":" + n.ChatID + ":" + strconv.FormatUint(uint64(n.MessageID), 10)
	}
}

