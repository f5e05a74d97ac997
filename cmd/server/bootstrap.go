package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"dealdesk/internal/api"
	"dealdesk/internal/app"
	"dealdesk/internal/app/maintenance"
	iauth "dealdesk/internal/auth"
	"dealdesk/internal/cache"
	"dealdesk/internal/database"
	"dealdesk/internal/middleware"
	"dealdesk/internal/realtime"
	"dealdesk/pkg/logger"
)

// runtimeStack bundles the long-lived components behind the HTTP server.
type runtimeStack struct {
	DB          *gorm.DB
	Redis       *cache.RedisStore
	Hub         *realtime.Hub
	Broadcaster *realtime.SafeBroadcaster
	Cleaner     *maintenance.Cleaner
	Router      *gin.Engine
}

// bootstrapRuntime initialises the database, cache, realtime hub, maintenance
// jobs and the HTTP router. The broadcaster is constructed here, once, and
// injected into every service that emits realtime events.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	dbStore, err := cache.NewDatabaseStore(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise database cache: %w", err)
	}

	if cfg.Cache.Redis.Enabled {
		redis, redisErr := cache.NewRedisStore(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Address,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		if redisErr != nil {
			log.Warn("redis unavailable; falling back to database-backed rate limiting", zap.Error(redisErr))
		} else {
			stack.Redis = redis
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         cfg.Auth.JWT.Secret,
		Issuer:         cfg.Auth.JWT.Issuer,
		AccessTokenTTL: cfg.Auth.JWT.TTL,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	stack.Hub = realtime.NewHub()
	stack.Broadcaster = realtime.NewSafeBroadcaster(stack.Hub)

	if cfg.Maintenance.Enabled {
		stack.Cleaner, err = maintenance.NewCleaner(stack.DB,
			maintenance.WithSchedule(cfg.Maintenance.Schedule),
			maintenance.WithNotificationRetentionDays(cfg.Maintenance.NotificationRetentionDays),
			maintenance.WithAuditRetentionDays(cfg.Maintenance.AuditRetentionDays),
			maintenance.WithEsignStaleDays(cfg.Maintenance.EsignStaleDays),
			maintenance.WithCacheStore(dbStore),
		)
		if err != nil {
			return nil, fmt.Errorf("initialise maintenance jobs: %w", err)
		}
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	var rateStore middleware.RateStore
	if stack.Redis != nil {
		rateStore = middleware.NewSharedRateStore(stack.Redis)
	} else {
		rateStore = middleware.NewSharedRateStore(dbStore)
	}

	stack.Router, err = api.NewRouter(api.Dependencies{
		DB:          stack.DB,
		Config:      cfg,
		JWT:         jwtSvc,
		Hub:         stack.Hub,
		Broadcaster: stack.Broadcaster,
		RateStore:   rateStore,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown releases stack resources in reverse dependency order. Pending
// broadcast deliveries are flushed before connections are torn down.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Broadcaster != nil {
		s.Broadcaster.Flush()
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
			log.Warn("maintenance jobs did not stop before shutdown deadline")
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("failed to close redis connection", zap.Error(err))
		}
	}

	closeDatabase(s.DB, log)
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.DatabaseOptions()

	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
