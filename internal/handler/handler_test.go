package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"personal-site-go/internal/auth"
	"personal-site-go/internal/config"
	"personal-site-go/internal/model"
	"personal-site-go/internal/realtime"
	"personal-site-go/internal/repository"
	"personal-site-go/internal/service"
	"personal-site-go/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPassword = "secret"
	testToken    = "admin-token"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	hub    *realtime.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.OpenDB(t)
	hub := realtime.NewHub()
	cfg := &config.Config{Server: config.ServerConfig{MaxUploadMB: 1}}
	r := NewRouter(Deps{
		Config:   cfg,
		Authn:    auth.NewTokenAuthenticator(testPassword, "", testToken),
		Messages: service.NewMessageService(repository.NewMessageRepository(db), nil, hub),
		Contacts: service.NewContactService(repository.NewContactRepository(db), nil, nil),
		Posts:    service.NewPostService(repository.NewPostRepository(db), nil),
		Photos:   service.NewPhotoService(repository.NewPhotoRepository(db), nil),
		Hub:      hub,
	})
	return &testServer{router: r, hub: hub}
}

func (s *testServer) do(method, path string, form url.Values, admin bool) *httptest.ResponseRecorder {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if admin {
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: testToken})
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestChatScenario(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/send_message", url.Values{"chat_id": {"abc"}, "sender_name": {"Sam"}, "content": {"hi"}}, false)
	require.Equal(t, http.StatusOK, w.Code)
	var sent model.MessageDTO
	decode(t, w, &sent)
	assert.Equal(t, uint(1), sent.ID)
	assert.Equal(t, "Sam", sent.SenderName)
	assert.Nil(t, sent.Response)

	w = s.do(http.MethodPost, "/respond/1", url.Values{"response": {"hello back"}}, true)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/messages/abc", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	var raw []map[string]interface{}
	decode(t, w, &raw)
	require.Len(t, raw, 1)
	assert.Equal(t, "hello back", raw[0]["response"])
	assert.Equal(t, "abc", raw[0]["chat_id"])
	assert.Equal(t, false, raw[0]["is_read"])
	createdAt, ok := raw[0]["created_at"].(string)
	require.True(t, ok)
	_, err := time.Parse(model.TimeFormat, createdAt)
	assert.NoError(t, err)
	respondedAt, ok := raw[0]["response_at"].(string)
	require.True(t, ok)

	// 非管理员回复被拒绝且不修改数据
	w = s.do(http.MethodPost, "/respond/1", url.Values{"response": {"..."}}, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(http.MethodGet, "/api/messages/abc", nil, false)
	decode(t, w, &raw)
	assert.Equal(t, "hello back", raw[0]["response"])
	assert.Equal(t, respondedAt, raw[0]["response_at"])
}

func TestSendMessage_Errors(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/send_message", url.Values{"chat_id": {"abc"}, "content": {"  "}}, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Message content is required"}`, w.Body.String())

	w = s.do(http.MethodGet, "/api/messages/abc", nil, false)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = s.do(http.MethodPost, "/send_message", url.Values{"content": {"hi"}}, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMarkRead_OpenToVisitors(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/send_message", url.Values{"chat_id": {"abc"}, "content": {"hi"}}, false)

	w := s.do(http.MethodPost, "/mark_read/1", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	w = s.do(http.MethodPost, "/mark_read/1", nil, true)
	assert.Equal(t, http.StatusOK, w.Code, "idempotent")

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/mark_read/99", nil, false).Code)

	var raw []map[string]interface{}
	decode(t, s.do(http.MethodGet, "/api/messages/abc", nil, false), &raw)
	require.Len(t, raw, 1)
	assert.Equal(t, true, raw[0]["is_read"])
}

func TestRespond_Errors(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/send_message", url.Values{"chat_id": {"abc"}, "content": {"hi"}}, false)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/respond/1", url.Values{"response": {""}}, true).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/respond/99", url.Values{"response": {"x"}}, true).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/respond/abc", url.Values{"response": {"x"}}, true).Code)

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/respond/1", url.Values{"response": {"a"}}, true).Code)
	w := s.do(http.MethodPost, "/respond/1", url.Values{"response": {"b"}}, true)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"Message has already been answered"}`, w.Body.String())

	var raw []map[string]interface{}
	decode(t, s.do(http.MethodGet, "/api/messages/abc", nil, false), &raw)
	assert.Equal(t, "a", raw[0]["response"])
}

func TestChatIndex(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/chat", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	var visitor map[string]string
	decode(t, w, &visitor)
	assert.Len(t, visitor["chat_id"], 36)

	s.do(http.MethodPost, "/send_message", url.Values{"chat_id": {"t1"}, "content": {"one"}}, false)
	s.do(http.MethodPost, "/send_message", url.Values{"chat_id": {"t1"}, "content": {"two"}}, false)

	w = s.do(http.MethodGet, "/chat", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	var threads struct {
		Threads []map[string]interface{} `json:"threads"`
	}
	decode(t, w, &threads)
	require.Len(t, threads.Threads, 1)
	assert.Equal(t, "t1", threads.Threads[0]["chat_id"])
	assert.Equal(t, float64(2), threads.Threads[0]["message_count"])
	assert.Equal(t, model.DefaultSenderName, threads.Threads[0]["sender_name"])

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/chat/t1", nil, false).Code)
	w = s.do(http.MethodGet, "/chat/t1", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	var detail struct {
		ChatID   string             `json:"chat_id"`
		Messages []model.MessageDTO `json:"messages"`
	}
	decode(t, w, &detail)
	assert.Equal(t, "t1", detail.ChatID)
	assert.Len(t, detail.Messages, 2)
}

func TestAdminLogin(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/admin_login", url.Values{"password": {"wrong"}}, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Invalid password"}`, w.Body.String())
	assert.Empty(t, w.Result().Cookies())

	w = s.do(http.MethodPost, "/admin_login", url.Values{"password": {testPassword}}, false)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.CookieName, cookies[0].Name)
	assert.Equal(t, testToken, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	assert.JSONEq(t, `{"admin":true}`, s.do(http.MethodGet, "/admin_login", nil, true).Body.String())
	assert.JSONEq(t, `{"admin":false}`, s.do(http.MethodGet, "/admin_login", nil, false).Body.String())

	w = s.do(http.MethodGet, "/admin_logout", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	cookies = w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestContactRoutes(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/contact", url.Values{"name": {"Ann"}, "email": {"ann@example.com"}, "message": {"hi"}}, false)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/admin/contacts", nil, false).Code)
	w = s.do(http.MethodGet, "/admin/contacts?unread=1", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Contacts []model.ContactMessage `json:"contacts"`
	}
	decode(t, w, &list)
	require.Len(t, list.Contacts, 1)

	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/admin/contacts/1/read", nil, true).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/admin/contacts/7/read", nil, true).Code)

	w = s.do(http.MethodPost, "/contact", url.Values{"name": {"Ann"}}, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Email is required"}`, w.Body.String())
}

func TestPostRoutes(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/write", url.Values{"title": {"x"}, "content": {"y"}}, false).Code)

	w := s.do(http.MethodPost, "/write", url.Values{"title": {"First Post"}, "content": {"**bold**"}}, true)
	require.Equal(t, http.StatusOK, w.Code)
	var post model.Post
	decode(t, w, &post)
	assert.Equal(t, "first-post", post.Slug)

	w = s.do(http.MethodGet, "/api/posts/first-post", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	var detail model.PostDetail
	decode(t, w, &detail)
	assert.Contains(t, detail.HTML, "<strong>bold</strong>")

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/posts/nope", nil, false).Code)

	w = s.do(http.MethodGet, "/api/posts/search?q=bold", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	var found struct {
		Posts []model.Post `json:"posts"`
	}
	decode(t, w, &found)
	assert.Len(t, found.Posts, 1)

	w = s.do(http.MethodGet, "/api/posts", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &found)
	assert.Len(t, found.Posts, 1)
}

func TestPhotoRoutes(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("photo", "cat.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("png"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader(buf.Bytes()))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: testToken})
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, "no object storage configured")

	w = s.do(http.MethodPost, "/upload", nil, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/api/photos", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"photos":[]}`, w.Body.String())
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/healthz", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStream(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/messages/live"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.hub.Subscribers("live") == 1 }, 2*time.Second, 10*time.Millisecond)

	form := url.Values{"chat_id": {"live"}, "content": {"ping"}}
	resp, err := http.PostForm(srv.URL+"/send_message", form)
	require.NoError(t, err)
	resp.Body.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event model.ChatEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, model.EventMessage, event.Type)
	assert.Equal(t, "ping", event.Message.Content)

}
