package repository

import (
	"context"

	"personal-site-go/internal/model"

	"gorm.io/gorm"
)

// PostRepository 定义了博客文章的持久化操作。
type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	FindBySlug(ctx context.Context, slug string) (*model.Post, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context, limit int) ([]model.Post, error)
	SearchLike(ctx context.Context, query string, limit int) ([]model.Post, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository 创建一个新的 PostRepository 实例。
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) FindBySlug(ctx context.Context, slug string) (*model.Post, error) {
	var post model.Post
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// SlugExists 用 COUNT 判断，未命中不产生 record not found 日志。
func (r *postRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Post{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

// List 按发布时间倒序返回文章，limit <= 0 表示不限制。
func (r *postRepository) List(ctx context.Context, limit int) ([]model.Post, error) {
	var posts []model.Post
	q := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&posts).Error
	return posts, err
}

// SearchLike 是未配置 Elasticsearch 时的兜底搜索。
func (r *postRepository) SearchLike(ctx context.Context, query string, limit int) ([]model.Post, error) {
	var posts []model.Post
	pattern := "%" + query + "%"
	q := r.db.WithContext(ctx).
		Where("title LIKE ? OR content LIKE ?", pattern, pattern).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&posts).Error
	return posts, err
}
