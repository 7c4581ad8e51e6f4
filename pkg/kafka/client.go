// Package kafka 提供了通过 Kafka 投递通知任务的生产者与消费者。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"personal-site-go/internal/config"
	"personal-site-go/pkg/log"
	"personal-site-go/pkg/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
)

// maxAttempts 是单个任务允许的最大处理次数，达到后提交 offset 放弃。
const maxAttempts = 3

// TaskProcessor 定义了消费端处理通知任务的接口，与具体的邮件实现解耦。
type TaskProcessor interface {
	Handle(ctx context.Context, task tasks.Notification) error
}

// Producer 将通知任务写入 Kafka。它实现了 notify.Sink。
type Producer struct {
	writer *kafka.Writer
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	log.Info("Kafka 生产者初始化成功")
	return &Producer{writer: w}
}

// Handle 发送一个通知任务到 Kafka。
func (p *Producer) Handle(ctx context.Context, task tasks.Notification) error {
	value, err := EncodeTask(task)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.Key()),
		Value: value,
	})
}

// Close 关闭底层 writer。
func (p *Producer) Close() error {
	return p.writer.Close()
}

// EncodeTask 将任务序列化为消息体。
func EncodeTask(task tasks.Notification) ([]byte, error) {
	return json.Marshal(task)
}

// DecodeTask 解析消息体，缺少 kind 的消息视为格式错误。
func DecodeTask(value []byte) (tasks.Notification, error) {
	var task tasks.Notification
	if err := json.Unmarshal(value, &task); err != nil {
		return task, err
	}
	if task.Kind == "" {
		return task, errors.New("kafka: notification without kind")
	}
	return task, nil
}

// AttemptCounter 记录任务失败次数。
type AttemptCounter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string)
}

// RedisAttempts 使用 Redis 计数失败次数，计数保留 24 小时。
type RedisAttempts struct {
	rdb *redis.Client
}

// NewRedisAttempts 创建一个基于 Redis 的 AttemptCounter。
func NewRedisAttempts(rdb *redis.Client) *RedisAttempts {
	return &RedisAttempts{rdb: rdb}
}

func attemptsKey(key string) string {
	return fmt.Sprintf("notify:attempts:%s", key)
}

func (a *RedisAttempts) Incr(ctx context.Context, key string) (int64, error) {
	k := attemptsKey(key)
	n, err := a.rdb.Incr(ctx, k).Result()
	if err != nil {
		return 0, err
	}
	_ = a.rdb.Expire(ctx, k, 24*time.Hour).Err()
	return n, nil
}

func (a *RedisAttempts) Reset(ctx context.Context, key string) {
	_ = a.rdb.Del(ctx, attemptsKey(key)).Err()
}

// messageReader 是 kafka.Reader 中消费循环用到的部分。
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// retryBackoff 是同一任务两次尝试之间的基础等待时间，按已失败次数线性增长。
var retryBackoff = 2 * time.Second

// StartConsumer 启动一个 Kafka 消费者来处理通知任务，ctx 取消时退出。
// attempts 用于跨进程重启累计失败次数，为 nil 时只在内存中计数。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, processor TaskProcessor, attempts AttemptCounter) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{cfg.Brokers},
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)
	consume(ctx, r, processor, attempts)
}

// consume 逐条处理消息。消费组内未提交的消息不会被重新投递，
// 所以失败的任务在这里原地重试，处理完（成功或放弃）才提交 offset。
func consume(ctx context.Context, r messageReader, processor TaskProcessor, attempts AttemptCounter) {
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Error("从 Kafka 读取消息失败", err)
			}
			return
		}

		task, err := DecodeTask(m.Value)
		if err != nil {
			log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
			// 消息格式错误，直接提交，避免阻塞队列
			commit(ctx, r, m)
			continue
		}

		if !handleWithRetry(ctx, processor, attempts, task) {
			// ctx 已取消，不提交，重启后由消费组重新投递
			return
		}
		commit(ctx, r, m)
	}
}

// handleWithRetry 处理任务，失败后等待并重试，直到成功或累计失败达到 maxAttempts。
// 返回 false 表示在等待期间 ctx 被取消。
func handleWithRetry(ctx context.Context, processor TaskProcessor, attempts AttemptCounter, task tasks.Notification) bool {
	key := task.Key()
	var failures int64
	for {
		err := processor.Handle(ctx, task)
		if err == nil {
			if attempts != nil {
				attempts.Reset(ctx, key)
			}
			return true
		}

		failures++
		n := failures
		if attempts != nil {
			// Redis 中的计数包含重启前的失败次数
			if total, incErr := attempts.Incr(ctx, key); incErr == nil {
				n = total
			} else {
				log.Warnw("更新通知失败次数失败，使用本地计数", "key", key, "error", incErr)
			}
		}
		log.Errorf("处理通知任务失败(%d/%d): key=%s, error: %v", n, maxAttempts, key, err)

		if n >= maxAttempts {
			log.Errorf("通知任务多次失败(>=%d)，提交 offset 终止重试: key=%s", maxAttempts, key)
			if attempts != nil {
				attempts.Reset(ctx, key)
			}
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(retryBackoff * time.Duration(n)):
		}
	}
}

func commit(ctx context.Context, r messageReader, m kafka.Message) {
	if err := r.CommitMessages(ctx, m); err != nil {
		log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
	}
}
