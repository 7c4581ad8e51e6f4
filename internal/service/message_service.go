// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"personal-site-go/internal/model"
	"personal-site-go/internal/repository"
	"personal-site-go/pkg/log"
	"personal-site-go/pkg/tasks"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notifier 接收状态变更提交后的通知任务，不能阻塞或失败调用方。
type Notifier interface {
	Dispatch(ctx context.Context, task tasks.Notification)
}

// Publisher 将会话事件推送给实时订阅者。
type Publisher interface {
	Publish(chatID string, event model.ChatEvent)
}

// MessageService 定义了匿名消息（会话）的业务操作。
type MessageService interface {
	ListThreads(ctx context.Context, caller Caller) ([]model.ThreadSummary, error)
	GetMessages(ctx context.Context, chatID string) ([]model.AnonymousMessage, error)
	SendMessage(ctx context.Context, chatID, senderName, content string) (*model.AnonymousMessage, error)
	MarkRead(ctx context.Context, id uint) error
	Respond(ctx context.Context, caller Caller, id uint, response string) (*model.AnonymousMessage, error)
	NewChatID() string
}

type messageService struct {
	repo      repository.MessageRepository
	notifier  Notifier
	publisher Publisher

	clockMu sync.Mutex
	last    time.Time
	now     func() time.Time
}

// NewMessageService 创建一个新的 MessageService。notifier 和 publisher 可以为 nil。
func NewMessageService(repo repository.MessageRepository, notifier Notifier, publisher Publisher) MessageService {
	return &messageService{
		repo:      repo,
		notifier:  notifier,
		publisher: publisher,
		now:       time.Now,
	}
}

// timestamp 返回单调不减的当前时间，避免系统时钟回拨导致 created_at 倒序。
func (s *messageService) timestamp() time.Time {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	t := s.now()
	if t.Before(s.last) {
		t = s.last
	}
	s.last = t
	return t
}

// ListThreads 聚合所有会话，最近活跃的在前。
func (s *messageService) ListThreads(ctx context.Context, caller Caller) ([]model.ThreadSummary, error) {
	if err := requireAdmin(caller, "list threads"); err != nil {
		return nil, err
	}
	threads, err := s.repo.ListThreads(ctx)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	return threads, nil
}

// GetMessages 返回会话中的全部消息，按创建时间升序。
// 知道 chat_id 即可读取会话，chat_id 本身就是访问凭据。
func (s *messageService) GetMessages(ctx context.Context, chatID string) ([]model.AnonymousMessage, error) {
	if strings.TrimSpace(chatID) == "" {
		return nil, newValidationError("chat_id", "chat_id is required")
	}
	msgs, err := s.repo.FindByChatID(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("get messages for %s: %w", chatID, err)
	}
	return msgs, nil
}

// SendMessage 向会话追加一条访客消息。会话不存在时由第一条消息隐式创建。
func (s *messageService) SendMessage(ctx context.Context, chatID, senderName, content string) (*model.AnonymousMessage, error) {
	// chat_id 原样保存，只在校验时去掉空白
	if strings.TrimSpace(chatID) == "" {
		return nil, newValidationError("chat_id", "chat_id is required")
	}
	if strings.TrimSpace(content) == "" {
		return nil, newValidationError("content", "Message content is required")
	}
	senderName = strings.TrimSpace(senderName)
	if senderName == "" {
		senderName = model.DefaultSenderName
	}

	msg := &model.AnonymousMessage{
		ChatID:     chatID,
		SenderName: senderName,
		Content:    content,
		CreatedAt:  s.timestamp(),
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	log.Infow("anonymous message stored", "chatId", chatID, "messageId", msg.ID)

	s.afterCommit(ctx, model.EventMessage, msg, tasks.Notification{
		Kind:       tasks.KindChatMessage,
		ChatID:     msg.ChatID,
		MessageID:  msg.ID,
		SenderName: msg.SenderName,
		Content:    msg.Content,
		CreatedAt:  msg.CreatedAt,
	})
	return msg, nil
}

// MarkRead 将消息标记为已读，重复调用不报错。
func (s *messageService) MarkRead(ctx context.Context, id uint) error {
	found, err := s.repo.MarkRead(ctx, id)
	if err != nil {
		return fmt.Errorf("mark read %d: %w", id, err)
	}
	if !found {
		return &NotFoundError{Resource: "message", ID: id}
	}
	return nil
}

// Respond 记录管理员的回复。response 与 response_at 在同一条 UPDATE 中写入，
// 每条消息只能回复一次。检查顺序：权限、内容、记录是否存在、是否已回复。
func (s *messageService) Respond(ctx context.Context, caller Caller, id uint, response string) (*model.AnonymousMessage, error) {
	if err := requireAdmin(caller, "respond"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(response) == "" {
		return nil, newValidationError("response", "Response text is required")
	}

	at := s.timestamp()
	found, err := s.repo.SetResponse(ctx, id, response, at)
	if errors.Is(err, repository.ErrAlreadyAnswered) {
		return nil, &ConflictError{Resource: "message", ID: id, Reason: "Message has already been answered"}
	}
	if err != nil {
		return nil, fmt.Errorf("respond %d: %w", id, err)
	}
	if !found {
		return nil, &NotFoundError{Resource: "message", ID: id}
	}

	msg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "message", ID: id}
		}
		return nil, fmt.Errorf("reload message %d: %w", id, err)
	}
	log.Infow("admin response recorded", "chatId", msg.ChatID, "messageId", msg.ID)

	s.afterCommit(ctx, model.EventResponse, msg, tasks.Notification{
		Kind:       tasks.KindChatResponse,
		ChatID:     msg.ChatID,
		MessageID:  msg.ID,
		SenderName: msg.SenderName,
		Content:    msg.Content,
		Response:   response,
		CreatedAt:  at,
	})
	return msg, nil
}

// NewChatID 为新访客生成会话 ID。
func (s *messageService) NewChatID() string {
	return uuid.NewString()
}

// afterCommit 在写入成功后推送实时事件并投递通知，两者都不影响调用结果。
func (s *messageService) afterCommit(ctx context.Context, eventType string, msg *model.AnonymousMessage, task tasks.Notification) {
	if s.publisher != nil {
		s.publisher.Publish(msg.ChatID, model.ChatEvent{Type: eventType, Message: msg.ToDTO()})
	}
	if s.notifier != nil {
		s.notifier.Dispatch(context.WithoutCancel(ctx), task)
	}
}
