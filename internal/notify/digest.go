package notify

import (
	"context"
	"fmt"
	"time"

	"personal-site-go/pkg/log"
	"personal-site-go/pkg/tasks"

	"github.com/robfig/cron/v3"
)

// UnreadCounter 返回未读记录数量。
type UnreadCounter interface {
	CountUnread(ctx context.Context) (int64, error)
}

// DigestJob 定期汇总未读的匿名消息与联系消息，有未读时通知管理员。
type DigestJob struct {
	messages   UnreadCounter
	contacts   UnreadCounter
	dispatcher Dispatcher
	now        func() time.Time
}

// NewDigestJob 创建一个新的 DigestJob。
func NewDigestJob(messages, contacts UnreadCounter, dispatcher Dispatcher) *DigestJob {
	return &DigestJob{messages: messages, contacts: contacts, dispatcher: dispatcher, now: time.Now}
}

// Run 执行一次汇总，返回是否投递了通知。
func (j *DigestJob) Run(ctx context.Context) (bool, error) {
	unreadMessages, err := j.messages.CountUnread(ctx)
	if err != nil {
		return false, fmt.Errorf("digest: count unread messages: %w", err)
	}
	unreadContacts, err := j.contacts.CountUnread(ctx)
	if err != nil {
		return false, fmt.Errorf("digest: count unread contacts: %w", err)
	}
	if unreadMessages == 0 && unreadContacts == 0 {
		return false, nil
	}
	j.dispatcher.Dispatch(ctx, tasks.Notification{
		Kind:           tasks.KindDigest,
		UnreadMessages: unreadMessages,
		UnreadContacts: unreadContacts,
		CreatedAt:      j.now(),
	})
	return true, nil
}

// StartDigest 按 5 段 cron 表达式调度 DigestJob。spec 为空时不调度，返回 nil。
func StartDigest(spec string, job *DigestJob) (*cron.Cron, error) {
	if spec == "" {
		return nil, nil
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if _, err := job.Run(context.Background()); err != nil {
			log.Error("unread digest failed", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("digest: invalid cron spec %q: %w", spec, err)
	}
	c.Start()
	log.Infof("unread digest scheduled: %s", spec)
	return c, nil
}
