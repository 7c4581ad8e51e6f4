package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"personal-site-go/internal/model"
	"personal-site-go/internal/repository"
	"personal-site-go/pkg/log"

	"github.com/google/uuid"
)

const presignExpiry = time.Hour

var (
	allowedImageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}
	unsafeFilename   = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// ObjectStore 是相册的对象存储，由 storage.MinIOStore 实现。
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// PhotoUpload 描述一次上传的文件。
type PhotoUpload struct {
	Filename    string
	Description string
	ContentType string
	Size        int64
	Body        io.Reader
}

// PhotoService 定义了相册的业务操作。
type PhotoService interface {
	Upload(ctx context.Context, caller Caller, in PhotoUpload) (*model.Photo, error)
	List(ctx context.Context) ([]model.PhotoView, error)
}

type photoService struct {
	repo  repository.PhotoRepository
	store ObjectStore
}

// NewPhotoService 创建一个新的 PhotoService。store 为 nil 时上传返回 ErrUnavailable。
func NewPhotoService(repo repository.PhotoRepository, store ObjectStore) PhotoService {
	return &photoService{repo: repo, store: store}
}

// SanitizeFilename 去掉路径部分并替换不安全字符。
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeFilename.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	return name
}

func (s *photoService) Upload(ctx context.Context, caller Caller, in PhotoUpload) (*model.Photo, error) {
	if err := requireAdmin(caller, "upload photo"); err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, ErrUnavailable
	}
	if in.Body == nil || in.Filename == "" {
		return nil, newValidationError("photo", "No file selected")
	}
	name := SanitizeFilename(in.Filename)
	ext := strings.ToLower(filepath.Ext(name))
	if name == "" || !allowedImageExts[ext] {
		return nil, newValidationError("photo", "File type not allowed")
	}

	key := fmt.Sprintf("photos/%s-%s", uuid.NewString(), name)
	if err := s.store.Put(ctx, key, in.Body, in.Size, in.ContentType); err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}

	photo := &model.Photo{Filename: name, ObjectKey: key, Description: strings.TrimSpace(in.Description)}
	if err := s.repo.Create(ctx, photo); err != nil {
		return nil, fmt.Errorf("save photo %s: %w", key, err)
	}
	log.Infow("photo uploaded", "photoId", photo.ID, "key", key)
	return photo, nil
}

// List 返回全部照片。对象存储不可用时 URL 为空。
func (s *photoService) List(ctx context.Context) ([]model.PhotoView, error) {
	photos, err := s.repo.List(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	views := make([]model.PhotoView, 0, len(photos))
	for _, p := range photos {
		view := model.PhotoView{Photo: p}
		if s.store != nil {
			url, err := s.store.PresignedURL(ctx, p.ObjectKey, presignExpiry)
			if err != nil {
				log.Warnw("presign photo failed", "key", p.ObjectKey, "error", err)
			} else {
				view.URL = url
			}
		}
		views = append(views, view)
	}
	return views, nil
}
