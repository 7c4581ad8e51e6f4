// Package realtime 将会话事件推送给通过 websocket 订阅同一 chat_id 的客户端。
package realtime

import (
	"sync"

	"personal-site-go/internal/model"
	"personal-site-go/pkg/log"
)

// subscriberBuffer 是每个订阅者的事件缓冲。缓冲满的订阅者会被移除。
const subscriberBuffer = 16

// Subscription 是一个订阅，事件从 Events 读取。
type Subscription struct {
	chatID string
	events chan model.ChatEvent
	hub    *Hub
	once   sync.Once
}

// Events 返回事件通道，订阅被取消后通道关闭。
func (s *Subscription) Events() <-chan model.ChatEvent {
	return s.events
}

// Close 取消订阅，可重复调用。
func (s *Subscription) Close() {
	s.hub.remove(s)
}

// Hub 管理每个 chat_id 的订阅者集合。
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

// NewHub 创建一个新的 Hub。
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscribe 订阅某个会话的事件。
func (h *Hub) Subscribe(chatID string) *Subscription {
	sub := &Subscription{chatID: chatID, events: make(chan model.ChatEvent, subscriberBuffer), hub: h}
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[chatID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[chatID] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Publish 非阻塞地把事件发给会话的所有订阅者，跟不上的订阅者被断开。
func (h *Hub) Publish(chatID string, event model.ChatEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[chatID] {
		select {
		case sub.events <- event:
		default:
			log.Warnf("realtime: subscriber of chat %s too slow, dropping", chatID)
			h.removeLocked(sub)
		}
	}
}

// Subscribers 返回会话当前的订阅者数量。
func (h *Hub) Subscribers(chatID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[chatID])
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub)
}

func (h *Hub) removeLocked(sub *Subscription) {
	sub.once.Do(func() {
		if set, ok := h.subs[sub.chatID]; ok {
			delete(set, sub)
			if len(set) == 0 {
				delete(h.subs, sub.chatID)
			}
		}
		close(sub.events)
	})
}
