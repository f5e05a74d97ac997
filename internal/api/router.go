package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"dealdesk/internal/app"
	iauth "dealdesk/internal/auth"
	"dealdesk/internal/handlers"
	"dealdesk/internal/middleware"
	"dealdesk/internal/realtime"
	"dealdesk/internal/services"

	"gorm.io/gorm"
)

// Dependencies carries the shared singletons the router wires into handlers.
// Broadcaster is constructed once at startup and threaded through every
// service that emits realtime events.
type Dependencies struct {
	DB          *gorm.DB
	Config      *app.Config
	JWT         *iauth.JWTService
	Hub         *realtime.Hub
	Broadcaster realtime.Broadcaster
	RateStore   middleware.RateStore
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if deps.Broadcaster == nil {
		return nil, fmt.Errorf("broadcaster must be provided")
	}
	if deps.RateStore == nil {
		deps.RateStore = middleware.NewMemoryRateStore()
	}

	notifications, err := services.NewNotificationService(deps.DB, deps.Broadcaster)
	if err != nil {
		return nil, err
	}
	interests, err := services.NewInterestService(deps.DB, notifications)
	if err != nil {
		return nil, err
	}
	esign, err := services.NewEsignService(deps.DB, interests, notifications, deps.Config.Esign.SharedKey)
	if err != nil {
		return nil, err
	}
	audit, err := services.NewAuditService(deps.DB)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	// Basic rate limiting: 100 requests/minute per IP+path.
	r.Use(middleware.RateLimit(deps.RateStore, 100, time.Minute))

	registerHealthRoutes(r, deps.Config)

	authHandler, err := handlers.NewAuthHandler(deps.DB, deps.JWT)
	if err != nil {
		return nil, err
	}
	userHandler, err := handlers.NewUserHandler(deps.DB)
	if err != nil {
		return nil, err
	}
	notificationHandler, err := handlers.NewNotificationHandler(deps.DB, deps.Broadcaster)
	if err != nil {
		return nil, err
	}
	opportunityHandler, err := handlers.NewOpportunityHandler(deps.DB, notifications)
	if err != nil {
		return nil, err
	}
	interestHandler, err := handlers.NewInterestHandler(deps.DB, notifications)
	if err != nil {
		return nil, err
	}
	commissionHandler, err := handlers.NewCommissionHandler(deps.DB, notifications)
	if err != nil {
		return nil, err
	}
	webhookHandler, err := handlers.NewWebhookHandler(esign, audit)
	if err != nil {
		return nil, err
	}
	auditHandler, err := handlers.NewAuditHandler(deps.DB)
	if err != nil {
		return nil, err
	}
	realtimeHandler := handlers.NewRealtimeHandler(deps.Hub, deps.JWT)

	registerWebhookRoutes(r, webhookHandler)
	registerAuthRoutes(r, authHandler, deps.JWT)

	api := r.Group("/api")
	api.Use(middleware.Auth(deps.JWT))

	registerUserRoutes(api, userHandler)
	registerNotificationRoutes(api, notificationHandler)
	registerOpportunityRoutes(api, opportunityHandler, interestHandler)
	registerCommissionRoutes(api, commissionHandler)
	registerAuditRoutes(api, auditHandler)

	// The stream endpoint authenticates through a query token so browser
	// WebSocket clients can connect without custom headers.
	if deps.Hub != nil {
		r.GET("/api/stream", realtimeHandler.Stream)
	}

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
