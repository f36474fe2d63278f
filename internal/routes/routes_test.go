package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"skillswap-server/internal/config"
	"skillswap-server/internal/models"
	"skillswap-server/internal/utils"
)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	cfg    *config.Config
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := models.InitDB(models.DatabaseConfig{Driver: models.DriverSQLite, DSN: ":memory:", Silent: true})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	cfg := config.Default()
	cfg.JWTSecret = "test-secret"
	router := gin.New()
	SetupRoutes(router, db, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return &testServer{router: router, db: db, cfg: cfg}
}

func (s *testServer) user(t *testing.T, name string) (*models.User, string) {
	t.Helper()
	u := &models.User{Email: name + "@uni.example", FirstName: name}
	require.NoError(t, s.db.Create(u).Error)
	token, err := utils.GenerateToken(u.ID, s.cfg.JWTSecret, time.Hour)
	require.NoError(t, err)
	return u, token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestHealth(t *testing.T) {
	s := setupServer(t)

	// /health answers outside the envelope, so it is read raw.
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"UP"}`, w.Body.String())
}

func TestAuthRequired(t *testing.T) {
	s := setupServer(t)

	w, env := s.do(t, http.MethodGet, "/api/v1/responses", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Authorization header required", env.Error)

	w, _ = s.do(t, http.MethodGet, "/api/v1/responses", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	forged, err := utils.GenerateToken("someone", "other-secret", time.Hour)
	require.NoError(t, err)
	w, _ = s.do(t, http.MethodGet, "/api/v1/responses", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOfferLifecycle(t *testing.T) {
	s := setupServer(t)
	alice, aliceToken := s.user(t, "alice")
	bob, bobToken := s.user(t, "bob")
	_, carolToken := s.user(t, "carol")

	w, env := s.do(t, http.MethodPost, "/api/v1/offers", aliceToken, map[string]any{"title": "Guitar lessons"})
	require.Equal(t, http.StatusCreated, w.Code, env.Error)
	offer := decode[models.Listing](t, env)
	assert.Equal(t, models.ListingOffer, offer.Kind)
	assert.Equal(t, alice.ID, offer.UserID)

	var fanned int64
	require.NoError(t, s.db.Model(&models.Notification{}).Where("type = ?", models.NotificationNewOffer).Count(&fanned).Error)
	assert.Equal(t, int64(2), fanned, "bob and carol are told about the offer")

	applyPath := "/api/v1/offers/" + offer.ID + "/responses"
	w, env = s.do(t, http.MethodPost, applyPath, bobToken, map[string]any{
		"message":      "I can help",
		"availability": "weekends",
		"contactInfo":  map[string]any{"email": "bob@uni.example", "preferredChannel": "email"},
	})
	require.Equal(t, http.StatusCreated, w.Code, env.Error)
	resp := decode[models.Response](t, env)
	assert.Equal(t, models.ResponsePending, resp.Status)

	w, env = s.do(t, http.MethodPost, applyPath, bobToken, map[string]any{"message": "again", "availability": "any"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "You have already applied to this listing", env.Error)

	w, _ = s.do(t, http.MethodGet, applyPath, carolToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = s.do(t, http.MethodGet, applyPath, aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[struct {
		Responses []models.Response `json:"responses"`
		Counts    map[string]int64  `json:"counts"`
	}](t, env)
	assert.Len(t, view.Responses, 1)
	assert.Equal(t, int64(1), view.Counts["pending"])

	statusPath := "/api/v1/responses/" + resp.ID + "/status"
	w, _ = s.do(t, http.MethodPatch, statusPath, aliceToken, map[string]any{"status": "completed"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(t, http.MethodPatch, statusPath, aliceToken, map[string]any{"status": "accepted"})
	require.Equal(t, http.StatusOK, w.Code, env.Error)
	assert.Equal(t, models.ResponseAccepted, decode[models.Response](t, env).Status)

	completePath := "/api/v1/responses/" + resp.ID + "/complete"
	w, _ = s.do(t, http.MethodPost, completePath, aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "the offer owner cannot complete")

	w, env = s.do(t, http.MethodPost, completePath, bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code, env.Error)
	done := decode[models.Response](t, env)
	assert.True(t, done.IsCompleted)
	assert.Equal(t, bob.ID, done.CompletedBy)

	w, _ = s.do(t, http.MethodPost, completePath, bobToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env = s.do(t, http.MethodDelete, completePath, bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code, env.Error)
	assert.False(t, decode[models.Response](t, env).IsCompleted)

	w, env = s.do(t, http.MethodPost, "/api/v1/responses/"+resp.ID+"/email-exchanged", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code, env.Error)
	assert.True(t, decode[models.Response](t, env).EmailExchanged)

	w, env = s.do(t, http.MethodGet, "/api/v1/responses", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Response](t, env), 1)
}

func TestRequestCompletionClosesRequest(t *testing.T) {
	s := setupServer(t)
	_, aliceToken := s.user(t, "alice")
	_, bobToken := s.user(t, "bob")

	_, env := s.do(t, http.MethodPost, "/api/v1/requests", aliceToken, map[string]any{"title": "Need help with calculus"})
	request := decode[models.Listing](t, env)

	_, env = s.do(t, http.MethodPost, "/api/v1/requests/"+request.ID+"/responses", bobToken,
		map[string]any{"message": "I tutor maths", "availability": "evenings"})
	resp := decode[models.Response](t, env)

	w, _ := s.do(t, http.MethodPost, "/api/v1/responses/"+resp.ID+"/complete", aliceToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code, "not accepted yet")

	s.do(t, http.MethodPatch, "/api/v1/responses/"+resp.ID+"/status", aliceToken, map[string]any{"status": "accepted"})
	w, env = s.do(t, http.MethodPost, "/api/v1/responses/"+resp.ID+"/complete", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code, env.Error)

	var stored models.Listing
	require.NoError(t, s.db.First(&stored, "id = ?", request.ID).Error)
	assert.Equal(t, models.ListingCompleted, stored.Status)

	// A completed request takes no further responses.
	_, carolToken := s.user(t, "carol")
	w, _ = s.do(t, http.MethodPost, "/api/v1/requests/"+request.ID+"/responses", carolToken,
		map[string]any{"message": "me too", "availability": "any"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConversationFlow(t *testing.T) {
	s := setupServer(t)
	_, aliceToken := s.user(t, "alice")
	bob, bobToken := s.user(t, "bob")
	_, carolToken := s.user(t, "carol")

	_, env := s.do(t, http.MethodPost, "/api/v1/offers", aliceToken, map[string]any{"title": "Guitar lessons"})
	offer := decode[models.Listing](t, env)
	_, env = s.do(t, http.MethodPost, "/api/v1/offers/"+offer.ID+"/responses", bobToken,
		map[string]any{"message": "I can help", "availability": "weekends"})
	resp := decode[models.Response](t, env)

	w, env := s.do(t, http.MethodPost, "/api/v1/responses/"+resp.ID+"/conversation", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code, env.Error)
	conv := decode[models.Conversation](t, env)
	assert.Len(t, conv.Participants, 2)

	w, env = s.do(t, http.MethodPost, "/api/v1/responses/"+resp.ID+"/conversation", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, conv.ID, decode[models.Conversation](t, env).ID)

	w, _ = s.do(t, http.MethodPost, "/api/v1/responses/"+resp.ID+"/conversation", carolToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	messagesPath := "/api/v1/conversations/" + conv.ID + "/messages"
	w, _ = s.do(t, http.MethodPost, messagesPath, bobToken, map[string]any{"content": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(t, http.MethodPost, messagesPath, bobToken, map[string]any{"content": "hello alice"})
	require.Equal(t, http.StatusCreated, w.Code, env.Error)
	msg := decode[models.Message](t, env)
	assert.Equal(t, bob.ID, msg.SenderID)

	w, _ = s.do(t, http.MethodPost, messagesPath, carolToken, map[string]any{"content": "let me in"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/v1/conversations", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	inbox := decode[struct {
		UnreadCount int64 `json:"unreadCount"`
	}](t, env)
	assert.Equal(t, int64(1), inbox.UnreadCount)

	w, env = s.do(t, http.MethodGet, messagesPath+"?page=1&limit=10", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	msgs := decode[[]models.Message](t, env)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsRead)
	require.Len(t, msgs[0].ReadBy, 1)

	w, _ = s.do(t, http.MethodGet, "/api/v1/conversations/not-a-uuid/messages", aliceToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotificationInbox(t *testing.T) {
	s := setupServer(t)
	alice, aliceToken := s.user(t, "alice")
	_, bobToken := s.user(t, "bob")

	_, env := s.do(t, http.MethodPost, "/api/v1/offers", aliceToken, map[string]any{"title": "Guitar lessons"})
	offer := decode[models.Listing](t, env)
	s.do(t, http.MethodPost, "/api/v1/offers/"+offer.ID+"/responses", bobToken,
		map[string]any{"message": "I can help", "availability": "weekends"})

	w, env := s.do(t, http.MethodGet, "/api/v1/notifications/unread-count", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decode[map[string]int64](t, env)["count"])

	w, env = s.do(t, http.MethodGet, "/api/v1/notifications?unread=true", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Notifications []models.Notification `json:"notifications"`
		Total         int64                 `json:"total"`
	}](t, env)
	require.Len(t, list.Notifications, 1)
	assert.Equal(t, int64(1), list.Total)
	note := list.Notifications[0]
	assert.Equal(t, alice.ID, note.RecipientID)

	w, _ = s.do(t, http.MethodPatch, "/api/v1/notifications/"+note.ID+"/read", bobToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "another user's notification is invisible")

	w, env = s.do(t, http.MethodPatch, "/api/v1/notifications/"+note.ID+"/read", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[models.Notification](t, env).IsRead)

	w, _ = s.do(t, http.MethodPatch, "/api/v1/notifications/read-all", aliceToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/api/v1/notifications/"+note.ID, aliceToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodDelete, "/api/v1/notifications/"+note.ID, aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteListing(t *testing.T) {
	s := setupServer(t)
	_, aliceToken := s.user(t, "alice")
	_, bobToken := s.user(t, "bob")

	_, env := s.do(t, http.MethodPost, "/api/v1/requests", aliceToken, map[string]any{"title": "Need a drummer"})
	request := decode[models.Listing](t, env)
	s.do(t, http.MethodPost, "/api/v1/requests/"+request.ID+"/responses", bobToken,
		map[string]any{"message": "I drum", "availability": "fridays"})

	w, _ := s.do(t, http.MethodDelete, "/api/v1/requests/"+request.ID, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/api/v1/offers/"+request.ID, aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "kinds are not interchangeable")

	w, _ = s.do(t, http.MethodDelete, "/api/v1/requests/"+request.ID, aliceToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var remaining int64
	require.NoError(t, s.db.Model(&models.Response{}).Count(&remaining).Error)
	assert.Zero(t, remaining)
}
