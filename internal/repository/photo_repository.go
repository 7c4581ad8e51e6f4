package repository

import (
	"context"

	"personal-site-go/internal/model"

	"gorm.io/gorm"
)

// PhotoRepository 定义了相册照片元数据的持久化操作。
type PhotoRepository interface {
	Create(ctx context.Context, photo *model.Photo) error
	List(ctx context.Context, limit int) ([]model.Photo, error)
}

type photoRepository struct {
	db *gorm.DB
}

// NewPhotoRepository 创建一个新的 PhotoRepository 实例。
func NewPhotoRepository(db *gorm.DB) PhotoRepository {
	return &photoRepository{db: db}
}

func (r *photoRepository) Create(ctx context.Context, photo *model.Photo) error {
	return r.db.WithContext(ctx).Create(photo).Error
}

// List 按上传时间倒序返回照片，limit <= 0 表示不限制。
func (r *photoRepository) List(ctx context.Context, limit int) ([]model.Photo, error) {
	var photos []model.Photo
	q := r.db.WithContext(ctx).Order("uploaded_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&photos).Error
	return photos, err
}
