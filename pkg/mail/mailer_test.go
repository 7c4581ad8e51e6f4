package mail

import (
	"context"
	"testing"

	"personal-site-go/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestSMTPMailer_Disabled(t *testing.T) {
	m := NewSMTPMailer(config.MailConfig{Host: "smtp.example.com"})
	assert.False(t, m.Enabled())
	assert.ErrorIs(t, m.Send(context.Background(), "a@example.com", "s", "b"), ErrDisabled)
}

func TestSMTPMailer_InvalidRecipient(t *testing.T) {
	m := NewSMTPMailer(config.MailConfig{Host: "smtp.example.com", Port: 587, From: "site@example.com"})
	assert.True(t, m.Enabled())
	err := m.Send(context.Background(), "not an address", "s", "b")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid recipient")
}
