package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "dealdesk/internal/auth"
	"dealdesk/internal/cache"
	"dealdesk/internal/database/testutil"
	"dealdesk/internal/models"
)

func newJWTService(t *testing.T) *iauth.JWTService {
	t.Helper()
	svc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "secret",
		Issuer:         "test-suite",
		AccessTokenTTL: time.Minute,
	})
	require.NoError(t, err)
	return svc
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtSvc := newJWTService(t)

	token, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{
		UserID: "user-123",
		Role:   models.RoleTeam,
	})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/secure", Auth(jwtSvc), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetString(CtxUserIDKey),
			"role":    c.GetString(CtxRoleKey),
		})
	})

	// Missing Authorization header -> 401
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Garbage token -> 401
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Valid token -> downstream handler executes
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, "user-123", payload["user_id"])
	require.Equal(t, models.RoleTeam, payload["role"])
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtSvc := newJWTService(t)

	r := gin.New()
	r.GET("/staff", Auth(jwtSvc), RequireRole(models.RoleAdmin, models.RoleTeam), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	serve := func(role string) int {
		token, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{UserID: "u", Role: role})
		require.NoError(t, err)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/staff", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)
		return w.Code
	}

	require.Equal(t, http.StatusOK, serve(models.RoleAdmin))
	require.Equal(t, http.StatusOK, serve(models.RoleTeam))
	require.Equal(t, http.StatusForbidden, serve(models.RoleInvestor))
	require.Equal(t, http.StatusForbidden, serve(""))
}

func TestRateLimitWithSharedStore(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	dbStore, err := cache.NewDatabaseStore(db)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/limited", RateLimit(NewSharedRateStore(dbStore), 2, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/limited", nil)
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestMemoryRateStoreWindowing(t *testing.T) {
	store := NewMemoryRateStore()

	count, _, err := store.Increment(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	count, remaining, err := store.Increment(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.Greater(t, remaining, time.Duration(0))
}

func TestRecoveryConvertsPanics(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, w.Body.String(), "INTERNAL_SERVER_ERROR")
}
