package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"personal-site-go/internal/auth"
	"personal-site-go/internal/config"
	"personal-site-go/internal/handler"
	"personal-site-go/internal/notify"
	"personal-site-go/internal/realtime"
	"personal-site-go/internal/repository"
	"personal-site-go/internal/service"
	"personal-site-go/pkg/database"
	"personal-site-go/pkg/es"
	"personal-site-go/pkg/kafka"
	"personal-site-go/pkg/log"
	"personal-site-go/pkg/mail"
	"personal-site-go/pkg/recaptcha"
	"personal-site-go/pkg/storage"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

func runServer(configPath string) error {
	// 1. 初始化配置
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 初始化数据库和 Redis
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	rdb, err := database.InitRedis(ctx, cfg.Database.Redis)
	if err != nil {
		// Redis 只用于通知重试计数，不可用时继续启动
		log.Error("Redis 连接失败，通知失败将不再重试", err)
		rdb = nil
	}

	// 4. 初始化 Repository
	messageRepo := repository.NewMessageRepository(db)
	contactRepo := repository.NewContactRepository(db)
	postRepo := repository.NewPostRepository(db)
	photoRepo := repository.NewPhotoRepository(db)

	// 5. 初始化外部协作方，均为可选
	dispatcher := newDispatcher(ctx, cfg, rdb)
	defer dispatcher.Close()

	var postIndex service.PostIndex
	if cfg.Elasticsearch.Addresses != "" {
		esClient, err := es.NewClient(cfg.Elasticsearch)
		if err != nil {
			log.Error("Elasticsearch 初始化失败，搜索将使用数据库", err)
		} else {
			postIndex = esClient
		}
	}

	var objectStore service.ObjectStore
	if cfg.MinIO.Endpoint != "" {
		store, err := storage.NewMinIO(ctx, cfg.MinIO)
		if err != nil {
			log.Error("MinIO 初始化失败，相册上传不可用", err)
		} else {
			objectStore = store
		}
	}

	authn, err := auth.New(cfg.Admin)
	if err != nil {
		return err
	}

	// 6. 初始化 Service (依赖注入)
	hub := realtime.NewHub()
	messageService := service.NewMessageService(messageRepo, dispatcher, hub)
	contactService := service.NewContactService(contactRepo, recaptcha.NewClient(cfg.Recaptcha), dispatcher)
	postService := service.NewPostService(postRepo, postIndex)
	photoService := service.NewPhotoService(photoRepo, objectStore)

	// 7. 定时摘要
	if cfg.Notify.Enabled {
		digest, err := notify.StartDigest(cfg.Notify.DigestCron, notify.NewDigestJob(messageRepo, contactRepo, dispatcher))
		if err != nil {
			return fmt.Errorf("start digest: %w", err)
		}
		if digest != nil {
			defer func() { <-digest.Stop().Done() }()
		}
	}

	// 8. 设置 Gin 模式并注册路由
	gin.SetMode(cfg.Server.Mode)
	r := handler.NewRouter(handler.Deps{
		Config:   cfg,
		Authn:    authn,
		Messages: messageService,
		Contacts: contactService,
		Posts:    postService,
		Photos:   photoService,
		Hub:      hub,
		Ping:     pinger(db),
	})

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("HTTP 服务监听失败: %w", err)
	case <-ctx.Done():
	}
	log.Info("接收到停机信号，正在关闭服务...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP 服务器关闭失败", err)
	}
	log.Info("服务已优雅关闭")
	return nil
}

// newDispatcher 根据配置选择通知投递方式：
// 未启用时丢弃；配置了 Kafka 时写入 Kafka 并在本进程消费；否则进程内直接发信。
func newDispatcher(ctx context.Context, cfg *config.Config, rdb *redis.Client) notify.Dispatcher {
	if !cfg.Notify.Enabled {
		log.Info("邮件通知未启用")
		return notify.NopDispatcher{}
	}

	mailer := mail.NewSMTPMailer(cfg.Mail)
	if !mailer.Enabled() {
		log.Warnf("SMTP 未配置，通知只会被记录")
	}
	processor := notify.NewProcessor(mailer, cfg.Mail.AdminRecipient)

	if cfg.Kafka.Brokers == "" {
		return notify.NewAsyncDispatcher(processor, cfg.Notify.Workers, cfg.Notify.QueueSize)
	}

	var attempts kafka.AttemptCounter
	if rdb != nil {
		attempts = kafka.NewRedisAttempts(rdb)
	}
	go kafka.StartConsumer(ctx, cfg.Kafka, processor, attempts)

	producer := kafka.NewProducer(cfg.Kafka)
	return &producerDispatcher{AsyncDispatcher: notify.NewAsyncDispatcher(producer, cfg.Notify.Workers, cfg.Notify.QueueSize), producer: producer}
}

// producerDispatcher 在队列排空后关闭 Kafka writer。
type producerDispatcher struct {
	*notify.AsyncDispatcher
	producer *kafka.Producer
}

func (d *producerDispatcher) Close() {
	d.AsyncDispatcher.Close()
	if err := d.producer.Close(); err != nil {
		log.Error("关闭 Kafka 生产者失败", err)
	}
}

func pinger(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
