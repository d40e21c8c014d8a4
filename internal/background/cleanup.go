package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/firmahq/firma/internal/repositories"
	"github.com/firmahq/firma/internal/services"
)

const staleScoreAge = 7 * 24 * time.Hour

// CleanupManager periodically prunes expired anti-fraud state: old attempt
// records, expired IP blocks, stale risk scores, spent rate-limit windows.
// It also reconciles petition counters against the signatures table.
type CleanupManager struct {
	attemptRepo  *repositories.AttemptRepository
	ipRiskRepo   *repositories.IPRiskRepository
	petitionRepo *repositories.PetitionRepository
	windowStore  *services.InMemoryWindowStore
	logger       *slog.Logger
	interval     time.Duration
	stopCh       chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	attemptRepo *repositories.AttemptRepository,
	ipRiskRepo *repositories.IPRiskRepository,
	petitionRepo *repositories.PetitionRepository,
	windowStore *services.InMemoryWindowStore,
	logger *slog.Logger,
	interval time.Duration,
) *CleanupManager {
	return &CleanupManager{
		attemptRepo:  attemptRepo,
		ipRiskRepo:   ipRiskRepo,
		petitionRepo: petitionRepo,
		windowStore:  windowStore,
		logger:       logger,
		interval:     interval,
		stopCh:       make(chan struct{}),
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
	cm.logger.Info("starting anti-fraud state cleanup")

	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if deleted, err := cm.attemptRepo.DeleteExpired(cleanupCtx); err != nil {
		cm.logger.Error("failed to delete expired attempts", slog.Any("error", err))
	} else if deleted > 0 {
		cm.logger.Info("expired attempts deleted", slog.Int64("rows_deleted", deleted))
	}

	if deleted, err := cm.ipRiskRepo.DeleteExpiredBlocks(cleanupCtx); err != nil {
		cm.logger.Error("failed to delete expired IP blocks", slog.Any("error", err))
	} else if deleted > 0 {
		cm.logger.Info("expired IP blocks deleted", slog.Int64("rows_deleted", deleted))
	}

	if decayed, err := cm.ipRiskRepo.DecayStaleScores(cleanupCtx, staleScoreAge); err != nil {
		cm.logger.Error("failed to decay stale risk scores", slog.Any("error", err))
	} else if decayed > 0 {
		cm.logger.Info("stale risk scores decayed", slog.Int64("rows_updated", decayed))
	}

	if repaired, err := cm.petitionRepo.ReconcileCounts(cleanupCtx); err != nil {
		cm.logger.Error("failed to reconcile petition counters", slog.Any("error", err))
	} else if repaired > 0 {
		cm.logger.Warn("petition counters reconciled", slog.Int64("rows_repaired", repaired))
	}

	if swept := cm.windowStore.Sweep(); swept > 0 {
		cm.logger.Info("spent rate-limit windows swept", slog.Int("windows_removed", swept))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
