package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"personal-site-go/pkg/log"
	"personal-site-go/pkg/mail"
	"personal-site-go/pkg/tasks"
)

// Processor 把通知任务渲染成邮件并发给站点管理员。
type Processor struct {
	sender    mail.Sender
	recipient string
}

// NewProcessor 创建一个新的 Processor。
func NewProcessor(sender mail.Sender, recipient string) *Processor {
	return &Processor{sender: sender, recipient: recipient}
}

// Handle 实现 Sink。未配置收件人或 SMTP 时跳过。
func (p *Processor) Handle(ctx context.Context, task tasks.Notification) error {
	if p.sender == nil || p.recipient == "" {
		log.Infof("notification %s skipped: no mail recipient configured", task.Key())
		return nil
	}
	subject, body, err := Render(task)
	if err != nil {
		return err
	}
	if err := p.sender.Send(ctx, p.recipient, subject, body); err != nil {
		if errors.Is(err, mail.ErrDisabled) {
			log.Infof("notification %s skipped: smtp not configured", task.Key())
			return nil
		}
		return err
	}
	log.Infow("notification sent", "kind", task.Kind, "key", task.Key())
	return nil
}

// Render 生成邮件主题和正文。
func Render(task tasks.Notification) (subject, body string, err error) {
	var b strings.Builder
	switch task.Kind {
	case tasks.KindChatMessage:
		subject = fmt.Sprintf("New anonymous message from %s", task.SenderName)
		fmt.Fprintf(&b, "New message in chat %s\n\nFrom: %s\nMessage:\n%s\n", task.ChatID, task.SenderName, task.Content)
	case tasks.KindChatResponse:
		subject = fmt.Sprintf("Response sent to %s", task.SenderName)
		fmt.Fprintf(&b, "You responded in chat %s\n\nTheir message:\n%s\n\nYour response:\n%s\n", task.ChatID, task.Content, task.Response)
	case tasks.KindContact:
		subject = "New Contact Form Submission"
		fmt.Fprintf(&b, "New message from your website:\n\nFrom: %s <%s>\nMessage:\n%s\n", task.SenderName, task.Email, task.Content)
	case tasks.KindDigest:
		subject = "Unread messages waiting"
		fmt.Fprintf(&b, "Unread anonymous messages: %d\nUnread contact messages: %d\n", task.UnreadMessages, task.UnreadContacts)
	default:
		return "", "", fmt.Errorf("notify: unknown notification kind %q", task.Kind)
	}
	return subject, b.String(), nil
}
