package handler

import (
	"net/http"
	"strconv"

	"personal-site-go/internal/middleware"
	"personal-site-go/internal/service"

	"github.com/gin-gonic/gin"
)

// PostHandler 负责博客文章相关的接口。
type PostHandler struct {
	posts service.PostService
}

// NewPostHandler 创建一个新的 PostHandler。
func NewPostHandler(posts service.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

// List 返回文章列表，?limit=N 限制数量。
func (h *PostHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	posts, err := h.posts.List(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// Get 返回单篇文章及渲染后的 HTML。
func (h *PostHandler) Get(c *gin.Context) {
	post, err := h.posts.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// Search 按关键字检索文章。
func (h *PostHandler) Search(c *gin.Context) {
	posts, err := h.posts.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// Write 发布一篇新文章。
func (h *PostHandler) Write(c *gin.Context) {
	post, err := h.posts.Create(c.Request.Context(), middleware.CallerFrom(c), c.PostForm("title"), c.PostForm("content"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}
