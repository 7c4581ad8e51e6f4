package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"personal-site-go/internal/model"
	"personal-site-go/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestContactRepository(t *testing.T) {
	repo := NewContactRepository(testutil.OpenDB(t))
	ctx := context.Background()

	first := &model.ContactMessage{Name: "A", Email: "a@example.com", Message: "one"}
	second := &model.ContactMessage{Name: "B", Email: "b@example.com", Message: "two"}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	found, err := repo.MarkRead(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, found)
	found, err = repo.MarkRead(ctx, 99)
	require.NoError(t, err)
	assert.False(t, found)

	all, err := repo.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	unread, err := repo.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "B", unread[0].Name)

	n, err := repo.CountUnread(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestPostRepository(t *testing.T) {
	repo := NewPostRepository(testutil.OpenDB(t))
	ctx := context.Background()

	older := &model.Post{Title: "Go notes", Slug: "go-notes", Content: "channels", CreatedAt: time.Now().Add(-time.Hour)}
	newer := &model.Post{Title: "Trip", Slug: "trip", Content: "mountains", CreatedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))

	exists, err := repo.SlugExists(ctx, "trip")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.SlugExists(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, exists)

	posts, err := repo.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "trip", posts[0].Slug)

	hits, err := repo.SearchLike(ctx, "channel", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "go-notes", hits[0].Slug)
}

func TestPhotoRepository(t *testing.T) {
	repo := NewPhotoRepository(testutil.OpenDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.Photo{Filename: "a.jpg", ObjectKey: "photos/1-a.jpg", UploadedAt: time.Now().Add(-time.Minute)}))
	require.NoError(t, repo.Create(ctx, &model.Photo{Filename: "b.jpg", ObjectKey: "photos/2-b.jpg", UploadedAt: time.Now()}))

	photos, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, photos, 2)
	assert.Equal(t, "b.jpg", photos[0].Filename)
}

// errorCountingLogger 记录 gorm 执行 SQL 时返回的错误。
type errorCountingLogger struct {
	mu   sync.Mutex
	errs []error
}

func (l *errorCountingLogger) LogMode(logger.LogLevel) logger.Interface      { return l }
func (l *errorCountingLogger) Info(context.Context, string, ...interface{})  {}
func (l *errorCountingLogger) Warn(context.Context, string, ...interface{})  {}
func (l *errorCountingLogger) Error(context.Context, string, ...interface{}) {}

func (l *errorCountingLogger) Trace(_ context.Context, _ time.Time, _ func() (string, int64), err error) {
	if err != nil {
		l.mu.Lock()
		l.errs = append(l.errs, err)
		l.mu.Unlock()
	}
}

func TestPostRepository_SlugMissIsNotAnError(t *testing.T) {
	rec := &errorCountingLogger{}
	db := testutil.OpenDB(t).Session(&gorm.Session{Logger: rec})
	repo := NewPostRepository(db)

	exists, err := repo.SlugExists(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Empty(t, rec.errs)
}
