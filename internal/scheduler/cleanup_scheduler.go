package scheduler

import (
	"context"
	"time"

	"github.com/ikkim/tshirt-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// jobTimeout bounds one cleanup run so a stuck query cannot pile up runs
const jobTimeout = 5 * time.Minute

type SessionPurger interface {
	Purge(ctx context.Context) (int64, error)
}

type StaleCartRemover interface {
	DeleteStaleAnonymous(ctx context.Context, before time.Time) (int64, error)
}

// CleanupScheduler drops expired sessions and anonymous carts nobody came
// back for
type CleanupScheduler struct {
	cron     *cron.Cron
	schedule string
	sessions SessionPurger
	carts    StaleCartRemover
	maxAge   time.Duration
	now      func() time.Time
}

func NewCleanupScheduler(schedule string, sessions SessionPurger, carts StaleCartRemover, anonCartMaxAge time.Duration) *CleanupScheduler {
	return &CleanupScheduler{
		cron:     cron.New(),
		schedule: schedule,
		sessions: sessions,
		carts:    carts,
		maxAge:   anonCartMaxAge,
		now:      time.Now,
	}
}

// Start registers the job and starts the cron loop
func (s *CleanupScheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		s.RunOnce(ctx)
	})
	if err != nil {
		logger.Error("Failed to add cron job for cleanup", err, map[string]interface{}{
			"schedule": s.schedule,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Cleanup scheduler started", map[string]interface{}{
		"schedule":          s.schedule,
		"anon_cart_max_age": s.maxAge.String(),
	})
	return nil
}

// RunOnce performs one cleanup pass. A failing step is logged and does not
// stop the other.
func (s *CleanupScheduler) RunOnce(ctx context.Context) {
	logger.Info("Starting scheduled cleanup", nil)

	sessions, err := s.sessions.Purge(ctx)
	if err != nil {
		logger.Error("Failed to purge expired sessions", err)
	}

	var carts int64
	if s.maxAge > 0 {
		carts, err = s.carts.DeleteStaleAnonymous(ctx, s.now().Add(-s.maxAge))
		if err != nil {
			logger.Error("Failed to delete stale anonymous carts", err)
		}
	}

	logger.Info("Scheduled cleanup finished", map[string]interface{}{
		"sessions_purged": sessions,
		"carts_deleted":   carts,
	})
}

// Stop waits for a running job to finish
func (s *CleanupScheduler) Stop() {
	logger.Info("Stopping cleanup scheduler...", nil)
	<-s.cron.Stop().Done()
	logger.Info("Cleanup scheduler stopped", nil)
}
