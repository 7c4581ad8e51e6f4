// Package mail 通过 SMTP 发送通知邮件。
package mail

import (
	"context"
	"errors"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"
	"personal-site-go/internal/config"
)

// ErrDisabled 表示未配置 SMTP。
var ErrDisabled = errors.New("mail: smtp not configured")

// Sender 定义了发送一封纯文本邮件的能力。
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer 是基于 go-mail 的 Sender 实现。
type SMTPMailer struct {
	cfg config.MailConfig
}

// NewSMTPMailer 创建一个 SMTPMailer。Host 或 From 为空时 Send 返回 ErrDisabled。
func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Enabled 报告是否配置了 SMTP。
func (m *SMTPMailer) Enabled() bool {
	return m.cfg.Host != "" && m.cfg.From != ""
}

// Send 发送一封纯文本邮件。465 端口使用隐式 TLS，587 端口强制 STARTTLS。
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if !m.Enabled() {
		return ErrDisabled
	}

	msg := gomail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("mail: invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mail: invalid recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	opts := []gomail.Option{gomail.WithTimeout(15 * time.Second)}
	switch m.cfg.Port {
	case 465:
		opts = append(opts, gomail.WithSSL())
	case 587:
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	default:
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}
	// WithPort 放在最后，避免被 TLS 选项改写
	opts = append(opts, gomail.WithPort(m.cfg.Port))
	if m.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.cfg.Username),
			gomail.WithPassword(m.cfg.Password),
		)
	}

	client, err := gomail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("mail: create client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mail: send to %s: %w", to, err)
	}
	return nil
}
