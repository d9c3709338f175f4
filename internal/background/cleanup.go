package background

import (
	"context"
	"log/slog"
	"time"
)

// OTPCleaner is the store operation the sweep needs.
type OTPCleaner interface {
	CleanupExpired(ctx context.Context, now time.Time) (int64, error)
}

// CleanupManager periodically removes expired one-time codes. The auth flows
// delete expired codes lazily on each request; this sweep catches codes for
// addresses that never came back.
type CleanupManager struct {
	otpRepo  OTPCleaner
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(otpRepo OTPCleaner, logger *slog.Logger, interval time.Duration) *CleanupManager {
	return &CleanupManager{
		otpRepo:  otpRepo,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rowsDeleted, err := cm.otpRepo.CleanupExpired(cleanupCtx, time.Now())
	if err != nil {
		cm.logger.Error("failed to cleanup expired codes", slog.Any("error", err))
		return
	}

	if rowsDeleted > 0 {
		cm.logger.Info("expired code cleanup completed", slog.Int64("rows_deleted", rowsDeleted))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
