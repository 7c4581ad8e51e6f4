package repository

import (
	"context"

	"personal-site-go/internal/model"

	"gorm.io/gorm"
)

// ContactRepository 定义了联系表单消息的持久化操作。
type ContactRepository interface {
	Create(ctx context.Context, msg *model.ContactMessage) error
	List(ctx context.Context, unreadOnly bool) ([]model.ContactMessage, error)
	MarkRead(ctx context.Context, id uint) (bool, error)
	CountUnread(ctx context.Context) (int64, error)
}

type contactRepository struct {
	db *gorm.DB
}

// NewContactRepository 创建一个新的 ContactRepository 实例。
func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{db: db}
}

func (r *contactRepository) Create(ctx context.Context, msg *model.ContactMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// List 按提交时间倒序返回联系消息。
func (r *contactRepository) List(ctx context.Context, unreadOnly bool) ([]model.ContactMessage, error) {
	var msgs []model.ContactMessage
	q := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if unreadOnly {
		q = q.Where("`read` = ?", false)
	}
	err := q.Find(&msgs).Error
	return msgs, err
}

func (r *contactRepository) MarkRead(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.ContactMessage{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, nil
	}
	err := r.db.WithContext(ctx).Model(&model.ContactMessage{}).Where("id = ?", id).Update("read", true).Error
	return err == nil, err
}

func (r *contactRepository) CountUnread(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ContactMessage{}).Where("`read` = ?", false).Count(&count).Error
	return count, err
}
