package database

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"personal-site-go/internal/config"
	"personal-site-go/pkg/log"
)

// InitRedis 初始化 Redis 客户端连接。未配置地址时返回 nil。
func InitRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		log.Info("Redis 未配置，跳过初始化")
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 测试连接
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("Redis client connected successfully")
	return rdb, nil
}
