package service

import (
	"context"
	"fmt"
	"strings"

	"personal-site-go/internal/model"
	"personal-site-go/internal/repository"
	"personal-site-go/pkg/log"
	"personal-site-go/pkg/recaptcha"
	"personal-site-go/pkg/tasks"
)

// ContactSubmission 是联系表单提交的内容。
type ContactSubmission struct {
	Name     string
	Email    string
	Message  string
	Captcha  string
	RemoteIP string
}

// ContactService 定义了联系表单相关的业务操作。
type ContactService interface {
	Submit(ctx context.Context, in ContactSubmission) (*model.ContactMessage, error)
	List(ctx context.Context, caller Caller, unreadOnly bool) ([]model.ContactMessage, error)
	MarkRead(ctx context.Context, caller Caller, id uint) error
}

type contactService struct {
	repo     repository.ContactRepository
	verifier recaptcha.Verifier
	notifier Notifier
}

// NewContactService 创建一个新的 ContactService。verifier 为 nil 时不做人机校验。
func NewContactService(repo repository.ContactRepository, verifier recaptcha.Verifier, notifier Notifier) ContactService {
	return &contactService{repo: repo, verifier: verifier, notifier: notifier}
}

func (s *contactService) Submit(ctx context.Context, in ContactSubmission) (*model.ContactMessage, error) {
	if s.verifier != nil {
		ok, err := s.verifier.Verify(ctx, in.Captcha, in.RemoteIP)
		if err != nil {
			log.Error("reCAPTCHA 校验出错", err)
			return nil, newValidationError("g-recaptcha-response", "Please complete the reCAPTCHA verification")
		}
		if !ok {
			return nil, newValidationError("g-recaptcha-response", "Please complete the reCAPTCHA verification")
		}
	}

	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	switch {
	case name == "":
		return nil, newValidationError("name", "Name is required")
	case email == "":
		return nil, newValidationError("email", "Email is required")
	case !strings.Contains(email, "@"):
		return nil, newValidationError("email", "Email is invalid")
	case strings.TrimSpace(in.Message) == "":
		return nil, newValidationError("message", "Message is required")
	}

	msg := &model.ContactMessage{Name: name, Email: email, Message: in.Message}
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("save contact message: %w", err)
	}
	log.Infow("contact message stored", "contactId", msg.ID)

	if s.notifier != nil {
		s.notifier.Dispatch(context.WithoutCancel(ctx), tasks.Notification{
			Kind:       tasks.KindContact,
			MessageID:  msg.ID,
			SenderName: msg.Name,
			Email:      msg.Email,
			Content:    msg.Message,
			CreatedAt:  msg.CreatedAt,
		})
	}
	return msg, nil
}

func (s *contactService) List(ctx context.Context, caller Caller, unreadOnly bool) ([]model.ContactMessage, error) {
	if err := requireAdmin(caller, "list contacts"); err != nil {
		return nil, err
	}
	msgs, err := s.repo.List(ctx, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return msgs, nil
}

func (s *contactService) MarkRead(ctx context.Context, caller Caller, id uint) error {
	if err := requireAdmin(caller, "mark contact read"); err != nil {
		return err
	}
	found, err := s.repo.MarkRead(ctx, id)
	if err != nil {
		return fmt.Errorf("mark contact %d read: %w", id, err)
	}
	if !found {
		return &NotFoundError{Resource: "contact message", ID: id}
	}
	return nil
}
