package handler

import (
	"context"
	"net/http"

	"personal-site-go/internal/auth"
	"personal-site-go/internal/config"
	"personal-site-go/internal/middleware"
	"personal-site-go/internal/realtime"
	"personal-site-go/internal/service"

	"github.com/gin-gonic/gin"
)

// Deps 汇总了路由需要的全部依赖。
type Deps struct {
	Config   *config.Config
	Authn    auth.AdminAuthenticator
	Messages service.MessageService
	Contacts service.ContactService
	Posts    service.PostService
	Photos   service.PhotoService
	Hub      *realtime.Hub
	// Ping 用于健康检查，通常检查数据库连接。
	Ping func(ctx context.Context) error
}

// NewRouter 创建 gin 引擎并注册所有路由。
func NewRouter(d Deps) *gin.Engine {
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.MaxMultipartMemory = d.Config.Server.MaxUploadMB << 20
	r.Use(middleware.RequestLogger(), gin.Recovery(), middleware.CORS(d.Config.CORS), middleware.AdminGuard(d.Authn))

	r.GET("/healthz", func(c *gin.Context) {
		if d.Ping != nil {
			if err := d.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 匿名会话
	chat := NewChatHandler(d.Messages, d.Hub)
	r.GET("/chat", chat.Index)
	r.GET("/chat/:chat_id", middleware.RequireAdmin(), chat.Thread)
	r.GET("/api/messages/:chat_id", chat.Messages)
	r.GET("/ws/messages/:chat_id", chat.Stream)
	r.POST("/send_message", chat.Send)
	r.POST("/mark_read/:id", chat.MarkRead)
	r.POST("/respond/:id", chat.Respond)

	// 管理员登录
	admin := NewAdminHandler(d.Authn, d.Config.Admin.CookieSecure)
	r.GET("/admin_login", admin.Status)
	r.POST("/admin_login", admin.Login)
	r.GET("/admin_logout", admin.Logout)

	// 联系表单
	contact := NewContactHandler(d.Contacts)
	r.POST("/contact", contact.Submit)
	adminGroup := r.Group("/admin", middleware.RequireAdmin())
	{
		adminGroup.GET("/contacts", contact.List)
		adminGroup.POST("/contacts/:id/read", contact.MarkRead)
	}

	// 博客
	posts := NewPostHandler(d.Posts)
	r.GET("/api/posts", posts.List)
	r.GET("/api/posts/search", posts.Search)
	r.GET("/api/posts/:slug", posts.Get)
	r.POST("/write", middleware.RequireAdmin(), posts.Write)

	// 相册
	photos := NewPhotoHandler(d.Photos)
	r.GET("/api/photos", photos.List)
	r.POST("/upload", middleware.RequireAdmin(), photos.Upload)

	return r
}
