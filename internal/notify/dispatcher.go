// Package notify 负责把通知任务异步投递给邮件发送方，失败只记录日志。
package notify

import (
	"context"
	"sync"
	"time"

	"personal-site-go/pkg/log"
	"personal-site-go/pkg/tasks"
)

// Sink 处理单个通知任务：直接发邮件（Processor）或写入 Kafka（kafka.Producer）。
type Sink interface {
	Handle(ctx context.Context, task tasks.Notification) error
}

// Dispatcher 接收通知任务。Dispatch 不阻塞，也不向调用方返回错误。
type Dispatcher interface {
	Dispatch(ctx context.Context, task tasks.Notification)
	Close()
}

// NopDispatcher 丢弃所有任务，用于关闭通知时。
type NopDispatcher struct{}

func (NopDispatcher) Dispatch(context.Context, tasks.Notification) {}
func (NopDispatcher) Close()                                       {}

// AsyncDispatcher 使用有界队列和固定数量的 worker 处理任务，队列满时丢弃并告警。
type AsyncDispatcher struct {
	sink    Sink
	queue   chan tasks.Notification
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewAsyncDispatcher 创建并启动一个 AsyncDispatcher。
func NewAsyncDispatcher(sink Sink, workers, queueSize int) *AsyncDispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	d := &AsyncDispatcher{
		sink:    sink,
		queue:   make(chan tasks.Notification, queueSize),
		timeout: 30 * time.Second,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Dispatch 将任务放入队列。
func (d *AsyncDispatcher) Dispatch(_ context.Context, task tasks.Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		log.Warnw("notification dropped: dispatcher closed", "kind", task.Kind, "key", task.Key())
		return
	}
	select {
	case d.queue <- task:
	default:
		log.Warnw("notification dropped: queue full", "kind", task.Kind, "key", task.Key())
	}
}

// Close 停止接收新任务并等待队列中的任务处理完。
func (d *AsyncDispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *AsyncDispatcher) worker() {
	defer d.wg.Done()
	for task := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.sink.Handle(ctx, task); err != nil {
			log.Warnw("notification delivery failed", "kind", task.Kind, "key", task.Key(), "error", err)
		}
		cancel()
	}
}
