package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"personal-site-go/internal/model"
	"personal-site-go/internal/repository"
	"personal-site-go/internal/testutil"
	"personal-site-go/pkg/tasks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu    sync.Mutex
	tasks []tasks.Notification
}

func (n *recordingNotifier) Dispatch(_ context.Context, task tasks.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tasks = append(n.tasks, task)
}

func (n *recordingNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, t := range n.tasks {
		out = append(out, t.Kind)
	}
	return out
}

type recordingPublisher struct {
	events map[string][]model.ChatEvent
}

func (p *recordingPublisher) Publish(chatID string, event model.ChatEvent) {
	if p.events == nil {
		p.events = map[string][]model.ChatEvent{}
	}
	p.events[chatID] = append(p.events[chatID], event)
}

func newTestMessageService(t *testing.T) (*messageService, *recordingNotifier, *recordingPublisher) {
	t.Helper()
	notifier := &recordingNotifier{}
	publisher := &recordingPublisher{}
	svc := NewMessageService(repository.NewMessageRepository(testutil.OpenDB(t)), notifier, publisher).(*messageService)
	return svc, notifier, publisher
}

func TestSendMessage_Scenario(t *testing.T) {
	svc, notifier, publisher := newTestMessageService(t)
	ctx := context.Background()

	msg, err := svc.SendMessage(ctx, "abc", "Sam", "hi")
	require.NoError(t, err)
	assert.Equal(t, uint(1), msg.ID)
	assert.Equal(t, "Sam", msg.SenderName)
	assert.Equal(t, "hi", msg.Content)
	assert.Equal(t, "abc", msg.ChatID)

	resp, err := svc.Respond(ctx, AdminCaller, msg.ID, "hello back")
	require.NoError(t, err)
	require.NotNil(t, resp.Response)
	assert.Equal(t, "hello back", *resp.Response)

	msgs, err := svc.GetMessages(ctx, "abc")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].Response)
	assert.Equal(t, "hello back", *msgs[0].Response)
	assert.NotNil(t, msgs[0].ResponseAt)

	_, err = svc.Respond(ctx, VisitorCaller, msg.ID, "...")
	var authErr *AuthorizationError
	require.True(t, errors.As(err, &authErr))

	after, err := svc.GetMessages(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "hello back", *after[0].Response)
	assert.True(t, after[0].ResponseAt.Equal(*msgs[0].ResponseAt))

	assert.Equal(t, []string{tasks.KindChatMessage, tasks.KindChatResponse}, notifier.kinds())
	require.Len(t, publisher.events["abc"], 2)
	assert.Equal(t, model.EventMessage, publisher.events["abc"][0].Type)
	assert.Equal(t, model.EventResponse, publisher.events["abc"][1].Type)
}

func TestSendMessage_IDsAndTimestampsIncrease(t *testing.T) {
	svc, _, _ := newTestMessageService(t)
	ctx := context.Background()

	var prev *model.AnonymousMessage
	for i := 0; i < 5; i++ {
		msg, err := svc.SendMessage(ctx, "thread", "", "message")
		require.NoError(t, err)
		if prev != nil {
			assert.Greater(t, msg.ID, prev.ID)
			assert.False(t, msg.CreatedAt.Before(prev.CreatedAt))
		}
		prev = msg
	}
}

func TestSendMessage_ClockGoingBackwards(t *testing.T) {
	svc, _, _ := newTestMessageService(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	svc.now = func() time.Time { return base }
	first, err := svc.SendMessage(ctx, "c", "", "one")
	require.NoError(t, err)

	svc.now = func() time.Time { return base.Add(-time.Hour) }
	second, err := svc.SendMessage(ctx, "c", "", "two")
	require.NoError(t, err)
	assert.False(t, second.CreatedAt.Before(first.CreatedAt))
}

func TestSendMessage_DefaultsSender(t *testing.T) {
	svc, _, _ := newTestMessageService(t)

	msg, err := svc.SendMessage(context.Background(), "abc", "   ", "hi")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSenderName, msg.SenderName)
}

func TestSendMessage_Validation(t *testing.T) {
	svc, notifier, _ := newTestMessageService(t)
	ctx := context.Background()

	for _, tc := range []struct {
		name, chatID, content, field string
	}{
		{"empty content", "abc", "", "content"},
		{"blank content", "abc", "  \n\t", "content"},
		{"missing chat id", "", "hi", "chat_id"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SendMessage(ctx, tc.chatID, "Sam", tc.content)
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tc.field, vErr.Field)
		})
	}

	msgs, err := svc.GetMessages(ctx, "abc")
	require.NoError(t, err)
	assert.Empty(t, msgs, "no row is persisted on validation failure")
	assert.Empty(t, notifier.kinds())
}

func TestGetMessages_IsolatedByChatID(t *testing.T) {
	svc, _, _ := newTestMessageService(t)
	ctx := context.Background()

	for _, chat := range []string{"a", "b", "a", "c", "a"} {
		_, err := svc.SendMessage(ctx, chat, "", "text in "+chat)
		require.NoError(t, err)
	}

	msgs, err := svc.GetMessages(ctx, "a")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i, m := range msgs {
		assert.Equal(t, "a", m.ChatID)
		if i > 0 {
			assert.False(t, m.CreatedAt.Before(msgs[i-1].CreatedAt))
		}
	}

	_, err = svc.GetMessages(ctx, " ")
	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestMarkRead(t *testing.T) {
	svc, _, _ := newTestMessageService(t)
	ctx := context.Background()
	msg, err := svc.SendMessage(ctx, "abc", "Sam", "hi")
	require.NoError(t, err)

	require.NoError(t, svc.MarkRead(ctx, msg.ID))
	require.NoError(t, svc.MarkRead(ctx, msg.ID), "idempotent")

	msgs, err := svc.GetMessages(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, msgs[0].IsRead)
	assert.Nil(t, msgs[0].Response, "read flag is orthogonal to the response")

	err = svc.MarkRead(ctx, 404)
	var nfErr *NotFoundError
	assert.True(t, errors.As(err, &nfErr))
}

func TestSendMessage_KeepsChatIDAsGiven(t *testing.T) {
	svc, _, _ := newTestMessageService(t)
	ctx := context.Background()

	msg, err := svc.SendMessage(ctx, " abc ", "", "hi")
	require.NoError(t, err)
	assert.Equal(t, " abc ", msg.ChatID)

	msgs, err := svc.GetMessages(ctx, " abc ")
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	other, err := svc.GetMessages(ctx, "abc")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRespond_OnlyOnce(t *testing.T) {
	svc, notifier, _ := newTestMessageService(t)
	ctx := context.Background()
	msg, err := svc.SendMessage(ctx, "abc", "Sam", "hi")
	require.NoError(t, err)

	first, err := svc.Respond(ctx, AdminCaller, msg.ID, "a")
	require.NoError(t, err)

	_, err = svc.Respond(ctx, AdminCaller, msg.ID, "b")
	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))

	msgs, err := svc.GetMessages(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "a", *msgs[0].Response)
	assert.True(t, msgs[0].ResponseAt.Equal(*first.ResponseAt))
	assert.Equal(t, []string{tasks.KindChatMessage, tasks.KindChatResponse}, notifier.kinds())
}

func TestRespond_Errors(t *testing.T) {
	svc, notifier, _ := newTestMessageService(t)
	ctx := context.Background()
	msg, err := svc.SendMessage(ctx, "abc", "Sam", "hi")
	require.NoError(t, err)

	var authErr *AuthorizationError
	_, err = svc.Respond(ctx, VisitorCaller, 999, "")
	assert.True(t, errors.As(err, &authErr), "authorization is checked first")

	var vErr *ValidationError
	_, err = svc.Respond(ctx, AdminCaller, msg.ID, " ")
	assert.True(t, errors.As(err, &vErr))

	var nfErr *NotFoundError
	_, err = svc.Respond(ctx, AdminCaller, 999, "text")
	assert.True(t, errors.As(err, &nfErr))

	msgs, err := svc.GetMessages(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, msgs[0].Response)
	assert.Nil(t, msgs[0].ResponseAt)
	assert.Equal(t, []string{tasks.KindChatMessage}, notifier.kinds())
}

func TestRespond_ReadAndAnsweredAreIndependent(t *testing.T) {
	svc, _, _ := newTestMessageService(t)
	ctx := context.Background()
	msg, err := svc.SendMessage(ctx, "abc", "Sam", "hi")
	require.NoError(t, err)

	got, err := svc.Respond(ctx, AdminCaller, msg.ID, "answer")
	require.NoError(t, err)
	assert.False(t, got.IsRead)
	assert.True(t, got.Answered())
	assert.NotNil(t, got.ResponseAt)
}

func TestListThreads(t *testing.T) {
	svc, _, _ := newTestMessageService(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	step := 0
	svc.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	}

	_, err := svc.SendMessage(ctx, "old", "Ann", "1")
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, "new", "", "2")
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, "old", "Ann", "3")
	require.NoError(t, err)

	threads, err := svc.ListThreads(ctx, AdminCaller)
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, "old", threads[0].ChatID)
	assert.Equal(t, int64(2), threads[0].MessageCount)
	assert.Equal(t, "new", threads[1].ChatID)
	assert.Equal(t, model.DefaultSenderName, threads[1].SenderName)

	_, err = svc.ListThreads(ctx, VisitorCaller)
	var authErr *AuthorizationError
	assert.True(t, errors.As(err, &authErr))
}

func TestNewChatID(t *testing.T) {
	svc, _, _ := newTestMessageService(t)
	a, b := svc.NewChatID(), svc.NewChatID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
