package handler

import (
	"net/http"

	"personal-site-go/internal/middleware"
	"personal-site-go/internal/service"
	"personal-site-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// PhotoHandler 负责相册相关的接口。
type PhotoHandler struct {
	photos service.PhotoService
}

// NewPhotoHandler 创建一个新的 PhotoHandler。
func NewPhotoHandler(photos service.PhotoService) *PhotoHandler {
	return &PhotoHandler{photos: photos}
}

// List 返回相册中的照片及临时访问链接。
func (h *PhotoHandler) List(c *gin.Context) {
	photos, err := h.photos.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"photos": photos})
}

// Upload 处理 multipart 表单中的 photo 文件。
func (h *PhotoHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file selected"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		log.Error("打开上传文件失败", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file selected"})
		return
	}
	defer file.Close()

	photo, err := h.photos.Upload(c.Request.Context(), middleware.CallerFrom(c), service.PhotoUpload{
		Filename:    fileHeader.Filename,
		Description: c.PostForm("description"),
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Body:        file,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, photo)
}
