package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"dealdesk/internal/cache"
	"dealdesk/internal/models"
	"dealdesk/pkg/logger"
)

const (
	defaultSchedule                  = "@daily"
	defaultNotificationRetentionDays = 90
	defaultAuditRetentionDays        = 365
	defaultEsignStaleDays            = 30
)

// Cleaner coordinates background maintenance: pruning read notifications past
// retention, enforcing audit retention, expiring stale unsigned NDA documents,
// and dropping expired cache counters.
type Cleaner struct {
	db    *gorm.DB
	store *cache.DatabaseStore
	cron  *cron.Cron
	now   func() time.Time
	log   *zap.Logger

	schedule              string
	notificationRetention int
	auditRetention        int
	esignStaleDays        int
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for retention comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithSchedule overrides the cron specification for the maintenance run.
func WithSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.schedule = spec
		}
	}
}

// WithNotificationRetentionDays adjusts how long read notifications are kept.
func WithNotificationRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.notificationRetention = days
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.auditRetention = days
		}
	}
}

// WithEsignStaleDays adjusts how long an unsigned NDA document may sit before
// it is marked declined.
func WithEsignStaleDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.esignStaleDays = days
		}
	}
}

// WithCacheStore wires the database cache store so expired counters get pruned.
func WithCacheStore(store *cache.DatabaseStore) Option {
	return func(cleaner *Cleaner) {
		cleaner.store = store
	}
}

// NewCleaner constructs a Cleaner with sensible defaults.
func NewCleaner(db *gorm.DB, opts ...Option) (*Cleaner, error) {
	if db == nil {
		return nil, errors.New("maintenance: db is required")
	}

	cleaner := &Cleaner{
		db:                    db,
		now:                   time.Now,
		schedule:              defaultSchedule,
		notificationRetention: defaultNotificationRetentionDays,
		auditRetention:        defaultAuditRetentionDays,
		esignStaleDays:        defaultEsignStaleDays,
		log:                   logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner, nil
}

// Start registers the maintenance job with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if _, err := c.cron.AddFunc(c.schedule, func() {
		if err := c.RunOnce(context.Background()); err != nil {
			c.log.Warn("maintenance run failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("maintenance: schedule job: %w", err)
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// Stats captures the number of records touched in one maintenance run.
type Stats struct {
	Notifications  int64
	AuditLogs      int64
	EsignDocuments int64
	CacheEntries   int64
}

// RunOnce executes every cleanup routine sequentially, aggregating failures so
// one broken table does not stop the rest.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	now := c.now()
	var errs error
	stats := Stats{}

	cutoff := now.AddDate(0, 0, -c.notificationRetention)
	result := c.db.WithContext(ctx).
		Where("is_read = ? AND created_at < ?", true, cutoff).
		Delete(&models.Notification{})
	if result.Error != nil {
		errs = multierr.Append(errs, fmt.Errorf("maintenance: prune notifications: %w", result.Error))
	} else {
		stats.Notifications = result.RowsAffected
	}

	cutoff = now.AddDate(0, 0, -c.auditRetention)
	result = c.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.AuditLog{})
	if result.Error != nil {
		errs = multierr.Append(errs, fmt.Errorf("maintenance: prune audit logs: %w", result.Error))
	} else {
		stats.AuditLogs = result.RowsAffected
	}

	cutoff = now.AddDate(0, 0, -c.esignStaleDays)
	result = c.db.WithContext(ctx).Model(&models.EsignDocument{}).
		Where("status IN ? AND created_at < ?", []string{models.EsignUploaded, models.EsignSent}, cutoff).
		Update("status", models.EsignDeclined)
	if result.Error != nil {
		errs = multierr.Append(errs, fmt.Errorf("maintenance: expire esign documents: %w", result.Error))
	} else {
		stats.EsignDocuments = result.RowsAffected
	}

	if c.store != nil {
		pruned, err := c.store.PruneExpired(ctx)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else {
			stats.CacheEntries = pruned
		}
	}

	if errs == nil {
		c.log.Info("maintenance run completed",
			zap.Int64("notifications", stats.Notifications),
			zap.Int64("audit_logs", stats.AuditLogs),
			zap.Int64("esign_documents", stats.EsignDocuments),
			zap.Int64("cache_entries", stats.CacheEntries))
	}
	return errs
}
