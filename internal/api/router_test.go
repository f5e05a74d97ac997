package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"dealdesk/internal/app"
	iauth "dealdesk/internal/auth"
	"dealdesk/internal/database/testutil"
	"dealdesk/internal/models"
	"dealdesk/internal/realtime"
)

func testConfig() *app.Config {
	cfg := &app.Config{}
	cfg.Esign.SharedKey = "hook-secret"
	cfg.Monitoring.Health.Enabled = true
	cfg.Monitoring.Prometheus.Enabled = true
	cfg.Monitoring.Prometheus.Endpoint = "/metrics"
	return cfg
}

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB, *iauth.JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	jwt, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "test-secret",
		Issuer:         "test",
		AccessTokenTTL: 15 * time.Minute,
	})
	require.NoError(t, err)

	hub := realtime.NewHub()
	router, err := NewRouter(Dependencies{
		DB:          db,
		Config:      testConfig(),
		JWT:         jwt,
		Hub:         hub,
		Broadcaster: realtime.NewSafeBroadcaster(hub),
	})
	require.NoError(t, err)
	return router, db, jwt
}

func tokenFor(t *testing.T, db *gorm.DB, jwt *iauth.JWTService, email, role string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	require.NoError(t, err)
	user := models.User{Email: email, Password: string(hash), Role: role, Enabled: true}
	require.NoError(t, db.Create(&user).Error)

	token, err := jwt.GenerateAccessToken(iauth.AccessTokenInput{UserID: user.ID, Role: user.Role})
	require.NoError(t, err)
	return token
}

func TestRouterPublicAndProtectedRoutes(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/notifications", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestRouterRoleEnforcement(t *testing.T) {
	router, db, jwt := newTestRouter(t)

	investor := tokenFor(t, db, jwt, "investor@example.com", models.RoleInvestor)
	admin := tokenFor(t, db, jwt, "admin@example.com", models.RoleAdmin)

	// User administration is admin only.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+investor)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// Investors cannot create listings.
	body, err := json.Marshal(gin.H{"kind": "MNA", "title": "Target Co"})
	require.NoError(t, err)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/opportunities", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+investor)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouterLoginFlow(t *testing.T) {
	router, db, jwt := newTestRouter(t)
	tokenFor(t, db, jwt, "login@example.com", models.RoleInvestor)

	body, err := json.Marshal(gin.H{"email": "login@example.com", "password": "password123"})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	require.NotEmpty(t, envelope.Data.Token)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+envelope.Data.Token)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "login@example.com")
}

func TestRouterWebhookBypassesJWT(t *testing.T) {
	router, _, _ := newTestRouter(t)

	payload := []map[string]any{{
		"event": "document_state_changed",
		"data": map[string]any{
			"id":         "doc-1",
			"shared_key": "wrong",
			"status":     "document.completed",
		},
	}}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/esign", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	// Rejected on the shared key, not on a missing bearer token.
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "WEBHOOK_SIGNATURE_INVALID")
}
