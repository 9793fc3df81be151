package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/rosterhq/roster/internal/models"
	"github.com/rosterhq/roster/internal/services"
	"github.com/rosterhq/roster/pkg/logger"
)

const (
	defaultAuditRetentionDays = 90
	defaultTokenGraceDays     = 30
	defaultTokenSpec          = "@daily"
	defaultAuditSpec          = "@daily"
)

// Sweeper runs background maintenance jobs: purging join tokens long past
// their expiry and pruning stale audit logs.
type Sweeper struct {
	db    *gorm.DB
	audit *services.AuditService
	cron  *cron.Cron
	now   func() time.Time
	log   *zap.Logger

	retention     int
	tokenGrace    int
	tokenSchedule string
	auditSchedule string
}

// Option customises the Sweeper.
type Option func(*Sweeper)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Sweeper) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithNow overrides the clock used for expiry comparisons.
func WithNow(now func() time.Time) Option {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained.
func WithAuditRetentionDays(days int) Option {
	return func(s *Sweeper) {
		if days > 0 {
			s.retention = days
		}
	}
}

// WithTokenGraceDays adjusts how long expired tokens are kept before purging.
// The grace window preserves precise rejection codes for recently expired
// tokens; only tokens nobody should still be holding get removed.
func WithTokenGraceDays(days int) Option {
	return func(s *Sweeper) {
		if days > 0 {
			s.tokenGrace = days
		}
	}
}

// WithTokenSchedule overrides the cron expression for the token sweep.
func WithTokenSchedule(spec string) Option {
	return func(s *Sweeper) {
		if spec != "" {
			s.tokenSchedule = spec
		}
	}
}

// WithAuditSchedule overrides the cron expression for audit retention enforcement.
func WithAuditSchedule(spec string) Option {
	return func(s *Sweeper) {
		if spec != "" {
			s.auditSchedule = spec
		}
	}
}

// NewSweeper constructs a Sweeper with sensible defaults. A nil audit service
// disables the audit pruning job.
func NewSweeper(db *gorm.DB, audit *services.AuditService, opts ...Option) *Sweeper {
	sweeper := &Sweeper{
		db:            db,
		audit:         audit,
		now:           time.Now,
		retention:     defaultAuditRetentionDays,
		tokenGrace:    defaultTokenGraceDays,
		tokenSchedule: defaultTokenSpec,
		auditSchedule: defaultAuditSpec,
		log:           logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(sweeper)
	}

	if sweeper.cron == nil {
		sweeper.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return sweeper
}

// Start registers the sweep jobs with the cron scheduler and launches it.
func (s *Sweeper) Start() error {
	if s.db != nil {
		if _, err := s.cron.AddFunc(s.tokenSchedule, func() {
			ctx := context.Background()
			if _, err := PurgeExpiredTokens(ctx, s.db, s.cutoff()); err != nil {
				s.log.Warn("token sweep failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if s.audit != nil && s.retention > 0 {
		if _, err := s.cron.AddFunc(s.auditSchedule, func() {
			ctx := context.Background()
			if _, err := s.audit.CleanupOlderThan(ctx, s.retention); err != nil {
				s.log.Warn("audit sweep failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	s.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (s *Sweeper) Stop() context.Context {
	if s.cron == nil {
		return context.Background()
	}
	return s.cron.Stop()
}

// RunOnce executes all sweep routines sequentially. Used in tests and during
// graceful shutdown.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if s.db != nil {
		if _, err := PurgeExpiredTokens(ctx, s.db, s.cutoff()); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if s.audit != nil && s.retention > 0 {
		if _, err := s.audit.CleanupOlderThan(ctx, s.retention); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

func (s *Sweeper) cutoff() time.Time {
	return s.now().AddDate(0, 0, -s.tokenGrace)
}

// PurgeExpiredTokens deletes tokens whose expiry passed before the cutoff.
// Tokens inside the grace window stay so redemption attempts keep getting an
// expired verdict rather than not-found. Returns the number of rows removed.
func PurgeExpiredTokens(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	result := db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", cutoff).
		Delete(&models.JoinToken{})
	return result.RowsAffected, result.Error
}
