package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"personal-site-go/internal/model"
	"personal-site-go/internal/repository"
	"personal-site-go/pkg/log"

	"github.com/gosimple/slug"
	"github.com/yuin/goldmark"
	"gorm.io/gorm"
)

const searchLimit = 20

// PostIndex 是文章全文检索的后端，由 es.Client 实现。
type PostIndex interface {
	IndexPost(ctx context.Context, post model.EsPost) error
	SearchPosts(ctx context.Context, query string, size int) ([]model.EsPost, error)
}

// PostService 定义了博客文章的业务操作。
type PostService interface {
	Create(ctx context.Context, caller Caller, title, content string) (*model.Post, error)
	List(ctx context.Context, limit int) ([]model.Post, error)
	GetBySlug(ctx context.Context, slug string) (*model.PostDetail, error)
	Search(ctx context.Context, query string) ([]model.Post, error)
}

type postService struct {
	repo  repository.PostRepository
	index PostIndex
	md    goldmark.Markdown
}

// NewPostService 创建一个新的 PostService。index 为 nil 时搜索退化为 SQL LIKE。
func NewPostService(repo repository.PostRepository, index PostIndex) PostService {
	return &postService{repo: repo, index: index, md: goldmark.New()}
}

func (s *postService) Create(ctx context.Context, caller Caller, title, content string) (*model.Post, error) {
	if err := requireAdmin(caller, "write post"); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, newValidationError("title", "Title is required")
	}
	if strings.TrimSpace(content) == "" {
		return nil, newValidationError("content", "Content is required")
	}

	postSlug, err := s.uniqueSlug(ctx, title)
	if err != nil {
		return nil, err
	}
	post := &model.Post{Title: title, Slug: postSlug, Content: content}
	if err := s.repo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	log.Infow("post created", "postId", post.ID, "slug", post.Slug)

	if s.index != nil {
		doc := model.EsPost{ID: post.ID, Title: post.Title, Slug: post.Slug, Content: post.Content, CreatedAt: post.CreatedAt}
		if err := s.index.IndexPost(ctx, doc); err != nil {
			// 索引失败不影响发布，搜索会暂时查不到这篇文章
			log.Error("文章写入搜索索引失败", err)
		}
	}
	return post, nil
}

// uniqueSlug 由标题生成 slug，冲突时依次追加 -2、-3。
func (s *postService) uniqueSlug(ctx context.Context, title string) (string, error) {
	base := slug.Make(title)
	if base == "" {
		base = "post"
	}
	candidate := base
	for n := 2; ; n++ {
		exists, err := s.repo.SlugExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check slug %s: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(n)
	}
}

func (s *postService) List(ctx context.Context, limit int) ([]model.Post, error) {
	posts, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// GetBySlug 返回文章及其渲染后的 HTML。
func (s *postService) GetBySlug(ctx context.Context, postSlug string) (*model.PostDetail, error) {
	post, err := s.repo.FindBySlug(ctx, postSlug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "post", ID: postSlug}
		}
		return nil, fmt.Errorf("get post %s: %w", postSlug, err)
	}
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(post.Content), &buf); err != nil {
		return nil, fmt.Errorf("render post %s: %w", postSlug, err)
	}
	return &model.PostDetail{Post: *post, HTML: buf.String()}, nil
}

// Search 优先使用搜索索引，索引不可用或出错时回退到数据库模糊匹配。
func (s *postService) Search(ctx context.Context, query string) ([]model.Post, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, newValidationError("q", "Search query is required")
	}
	if s.index != nil {
		hits, err := s.index.SearchPosts(ctx, query, searchLimit)
		if err == nil {
			posts := make([]model.Post, 0, len(hits))
			for _, h := range hits {
				posts = append(posts, model.Post{ID: h.ID, Title: h.Title, Slug: h.Slug, Content: h.Content, CreatedAt: h.CreatedAt})
			}
			return posts, nil
		}
		log.Warnw("search index failed, falling back to database", "error", err)
	}
	posts, err := s.repo.SearchLike(ctx, query, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}
	return posts, nil
}
