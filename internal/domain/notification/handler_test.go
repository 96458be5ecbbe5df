package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestorcamelo12/hospitales/internal/platform/apierr"
	"github.com/nestorcamelo12/hospitales/internal/platform/auth"
)

func seededRepo(t *testing.T) *mockRepo {
	t.Helper()
	repo := newMockRepo()
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(context.Background(), &Notification{UserID: 10, Category: CategoryEmergency, Title: "t"}))
	}
	require.NoError(t, repo.Create(context.Background(), &Notification{UserID: 11, Category: CategoryEmergency, Title: "t"}))
	return repo
}

func newRequest(method, target string, userID int64) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return req.WithContext(auth.WithPrincipal(req.Context(), auth.Principal{UserID: userID, Role: auth.RolePhysician}))
}

func TestHandler_List(t *testing.T) {
	repo := seededRepo(t)
	require.NoError(t, repo.MarkRead(context.Background(), 1, 10))
	h := NewHandler(NewService(repo))
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(newRequest(http.MethodGet, "/api/notifications?per_page=1", 10), rec)
	require.NoError(t, h.List(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data, 1)
	assert.Equal(t, 3, body.Meta.Total)
	assert.Equal(t, 3, body.Meta.LastPage)
	assert.Equal(t, 2, body.UnreadCount)

	rec = httptest.NewRecorder()
	c = e.NewContext(newRequest(http.MethodGet, "/api/notifications?unread_only=1", 10), rec)
	require.NoError(t, h.List(c))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Meta.Total)
}

func TestHandler_List_EmptyIsArray(t *testing.T) {
	h := NewHandler(NewService(newMockRepo()))
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(newRequest(http.MethodGet, "/api/notifications", 99), rec)
	require.NoError(t, h.List(c))
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestHandler_MarkRead(t *testing.T) {
	h := NewHandler(NewService(seededRepo(t)))
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(newRequest(http.MethodPut, "/", 10), rec)
	c.SetParamNames("id")
	c.SetParamValues("2")
	require.NoError(t, h.MarkRead(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c = e.NewContext(newRequest(http.MethodPut, "/", 11), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("2")
	err := h.MarkRead(c)
	var nf *apierr.NotFoundError
	assert.True(t, errors.As(err, &nf), "another user's notification is not found")

	c = e.NewContext(newRequest(http.MethodPut, "/", 10), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("abc")
	assert.Error(t, h.MarkRead(c))
}

func TestHandler_MarkAllRead(t *testing.T) {
	h := NewHandler(NewService(seededRepo(t)))
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(newRequest(http.MethodPut, "/", 10), rec)
	require.NoError(t, h.MarkAllRead(c))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 3, body["count"])
}

func TestHandler_RequiresPrincipal(t *testing.T) {
	h := NewHandler(NewService(newMockRepo()))
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Error(t, h.List(c))
}

func TestRedisPublisher_Channel(t *testing.T) {
	p := NewRedisPublisher(nil, "")
	assert.Equal(t, "notifications:user:42", p.Channel(42))
	assert.Equal(t, "alerts:user:1", NewRedisPublisher(nil, "alerts").Channel(1))
}

func TestRedisPublisher_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	err := NewRedisPublisher(client, "notifications").Publish(context.Background(), &Notification{UserID: 3})
	assert.Error(t, err)
}
