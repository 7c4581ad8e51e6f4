// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"errors"
	"time"

	"personal-site-go/internal/model"

	"gorm.io/gorm"
)

// ErrAlreadyAnswered 表示消息已有回复，response 只能写入一次。
var ErrAlreadyAnswered = errors.New("message already answered")

// MessageRepository 定义了匿名消息的持久化操作。
// 所有写操作都是单行单语句，原子性由数据库保证。
type MessageRepository interface {
	Create(ctx context.Context, msg *model.AnonymousMessage) error
	FindByID(ctx context.Context, id uint) (*model.AnonymousMessage, error)
	FindByChatID(ctx context.Context, chatID string) ([]model.AnonymousMessage, error)
	// MarkRead 返回是否找到该消息。
	MarkRead(ctx context.Context, id uint) (bool, error)
	// SetResponse 在一条 UPDATE 中同时写入 response 和 response_at，返回是否找到该消息。
	// 消息已有回复时返回 ErrAlreadyAnswered。
	SetResponse(ctx context.Context, id uint, response string, at time.Time) (bool, error)
	ListThreads(ctx context.Context) ([]model.ThreadSummary, error)
	CountUnread(ctx context.Context) (int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建一个新的 MessageRepository 实例。
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *model.AnonymousMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// FindByID 未找到时返回 gorm.ErrRecordNotFound。
func (r *messageRepository) FindByID(ctx context.Context, id uint) (*model.AnonymousMessage, error) {
	var msg model.AnonymousMessage
	if err := r.db.WithContext(ctx).First(&msg, id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// FindByChatID 按创建时间升序返回会话中的全部消息，时间相同按 id 排序。
func (r *messageRepository) FindByChatID(ctx context.Context, chatID string) ([]model.AnonymousMessage, error) {
	var msgs []model.AnonymousMessage
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC").Order("id ASC").
		Find(&msgs).Error
	return msgs, err
}

func (r *messageRepository) MarkRead(ctx context.Context, id uint) (bool, error) {
	// 已读的消息再次标记时 RowsAffected 可能为 0，所以先判断是否存在
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.AnonymousMessage{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, nil
	}
	err := r.db.WithContext(ctx).Model(&model.AnonymousMessage{}).
		Where("id = ?", id).
		Update("is_read", true).Error
	return err == nil, err
}

func (r *messageRepository) SetResponse(ctx context.Context, id uint, response string, at time.Time) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.AnonymousMessage{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, nil
	}
	// 条件更新保证并发回复时只有一个成功
	result := r.db.WithContext(ctx).Model(&model.AnonymousMessage{}).
		Where("id = ? AND response IS NULL", id).
		Updates(map[string]interface{}{
			"response":    response,
			"response_at": at,
		})
	if result.Error != nil {
		return true, result.Error
	}
	if result.RowsAffected == 0 {
		return true, ErrAlreadyAnswered
	}
	return true, nil
}

// threadRow 用于接收聚合查询结果。SQLite 的 MAX() 返回字符串，这里统一按字符串扫描再解析。
type threadRow struct {
	ChatID       string
	SenderName   string
	MessageCount int64
	UnreadCount  int64
	LastMessage  string
}

// ListThreads 按 (chat_id, sender_name) 分组聚合，最近活跃的会话在前。
func (r *messageRepository) ListThreads(ctx context.Context) ([]model.ThreadSummary, error) {
	var rows []threadRow
	err := r.db.WithContext(ctx).Model(&model.AnonymousMessage{}).
		Select("chat_id, sender_name, COUNT(*) AS message_count, " +
			"SUM(CASE WHEN is_read THEN 0 ELSE 1 END) AS unread_count, " +
			"MAX(created_at) AS last_message").
		Group("chat_id, sender_name").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	threads := make([]model.ThreadSummary, 0, len(rows))
	for _, row := range rows {
		last, err := parseDBTime(row.LastMessage)
		if err != nil {
			return nil, err
		}
		threads = append(threads, model.ThreadSummary{
			ChatID:        row.ChatID,
			SenderName:    row.SenderName,
			MessageCount:  row.MessageCount,
			UnreadCount:   row.UnreadCount,
			LastMessageAt: last,
		})
	}
	sortThreads(threads)
	return threads, nil
}

func (r *messageRepository) CountUnread(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.AnonymousMessage{}).Where("is_read = ?", false).Count(&count).Error
	return count, err
}
