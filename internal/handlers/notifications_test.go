package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	iauth "dealdesk/internal/auth"
	"dealdesk/internal/database/testutil"
	"dealdesk/internal/middleware"
	"dealdesk/internal/models"
	"dealdesk/internal/services"
)

type notificationFixture struct {
	db      *gorm.DB
	router  *gin.Engine
	jwt     *iauth.JWTService
	service *services.NotificationService
}

func newHandlerJWT(t *testing.T) *iauth.JWTService {
	t.Helper()
	svc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "secret",
		Issuer:         "test-suite",
		AccessTokenTTL: time.Minute,
	})
	require.NoError(t, err)
	return svc
}

func newNotificationHandlerFixture(t *testing.T) notificationFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	service, err := services.NewNotificationService(db, nopBroadcaster{})
	require.NoError(t, err)

	handler, err := NewNotificationHandler(db, nopBroadcaster{})
	require.NoError(t, err)

	jwt := newHandlerJWT(t)

	router := gin.New()
	authed := router.Group("/api/notifications", middleware.Auth(jwt))
	authed.GET("", handler.List)
	authed.POST("/read-all", handler.MarkAllRead)
	authed.POST("/:id/read", handler.MarkRead)
	authed.DELETE("/:id", handler.Delete)

	return notificationFixture{db: db, router: router, jwt: jwt, service: service}
}

func (f notificationFixture) createUser(t *testing.T, email string) (models.User, string) {
	t.Helper()
	user := models.User{Email: email, Password: "x", Role: models.RoleInvestor, Enabled: true}
	require.NoError(t, f.db.Create(&user).Error)
	token, err := f.jwt.GenerateAccessToken(iauth.AccessTokenInput{UserID: user.ID, Role: user.Role})
	require.NoError(t, err)
	return user, token
}

func (f notificationFixture) request(t *testing.T, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	f.router.ServeHTTP(w, req)
	return w
}

func TestNotificationListEndpointScopesToCaller(t *testing.T) {
	f := newNotificationHandlerFixture(t)
	owner, ownerToken := f.createUser(t, "owner@example.com")
	_, otherToken := f.createUser(t, "other@example.com")

	f.service.CreateNotification(nil, services.CreateNotificationInput{
		UserID:  owner.ID,
		Type:    models.NotificationAccessRequest,
		Title:   "hello",
		Message: "m",
	})

	w := f.request(t, http.MethodGet, "/api/notifications", ownerToken)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Success bool                       `json:"success"`
		Data    []services.NotificationDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	require.Len(t, envelope.Data, 1)
	require.Equal(t, "hello", envelope.Data[0].Title)

	w = f.request(t, http.MethodGet, "/api/notifications", otherToken)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Empty(t, envelope.Data)

	w = f.request(t, http.MethodGet, "/api/notifications", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNotificationReadAndDeleteEndpoints(t *testing.T) {
	f := newNotificationHandlerFixture(t)
	owner, ownerToken := f.createUser(t, "owner@example.com")
	_, otherToken := f.createUser(t, "other@example.com")

	row := f.service.CreateNotification(nil, services.CreateNotificationInput{
		UserID:  owner.ID,
		Type:    models.NotificationAccessRequest,
		Title:   "hello",
		Message: "m",
	})
	require.NotNil(t, row)

	// Another user cannot touch the row.
	w := f.request(t, http.MethodPost, "/api/notifications/"+row.ID+"/read", otherToken)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = f.request(t, http.MethodPost, "/api/notifications/"+row.ID+"/read", ownerToken)
	require.Equal(t, http.StatusOK, w.Code)

	var got models.Notification
	require.NoError(t, f.db.First(&got, "id = ?", row.ID).Error)
	require.True(t, got.IsRead)

	w = f.request(t, http.MethodDelete, "/api/notifications/"+row.ID, ownerToken)
	require.Equal(t, http.StatusOK, w.Code)
	require.ErrorIs(t, f.db.First(&got, "id = ?", row.ID).Error, gorm.ErrRecordNotFound)
}

func TestNotificationMarkAllReadEndpoint(t *testing.T) {
	f := newNotificationHandlerFixture(t)
	owner, ownerToken := f.createUser(t, "owner@example.com")

	for i := 0; i < 3; i++ {
		f.service.CreateNotification(nil, services.CreateNotificationInput{
			UserID:  owner.ID,
			Type:    models.NotificationAccessRequest,
			Title:   "n",
			Message: "m",
		})
	}

	w := f.request(t, http.MethodPost, "/api/notifications/read-all", ownerToken)
	require.Equal(t, http.StatusOK, w.Code)

	var unread int64
	require.NoError(t, f.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", owner.ID, false).
		Count(&unread).Error)
	require.Zero(t, unread)
}
