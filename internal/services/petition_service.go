package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firmahq/firma/internal/models"
	"github.com/google/uuid"
)

// PetitionWriter is the store surface the petition service needs beyond
// the pipeline's PetitionStore.
type PetitionWriter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Petition, error)
	Create(ctx context.Context, p *models.Petition) (*models.Petition, error)
}

// AttemptStatsReader aggregates attempt outcomes for forensics.
type AttemptStatsReader interface {
	StatsForPetition(ctx context.Context, petitionID uuid.UUID) (*models.AttemptStats, error)
}

// PetitionService covers the petition read path and creation. Full
// petition lifecycle management lives outside the anti-fraud pipeline;
// creation is here because it shares the rate limiter.
type PetitionService struct {
	repo        PetitionWriter
	stats       AttemptStatsReader
	rateLimiter *RateLimitService
	logger      *slog.Logger
}

func NewPetitionService(repo PetitionWriter, stats AttemptStatsReader, rateLimiter *RateLimitService, logger *slog.Logger) *PetitionService {
	return &PetitionService{
		repo:        repo,
		stats:       stats,
		rateLimiter: rateLimiter,
		logger:      logger,
	}
}

func (s *PetitionService) Get(ctx context.Context, id uuid.UUID) (*models.Petition, error) {
	return s.repo.GetByID(ctx, id)
}

// Create makes a pending petition, rate limited per creator identifier.
func (s *PetitionService) Create(ctx context.Context, identifier string, p *models.Petition) (*models.Petition, models.FailureReason, error) {
	if result := s.rateLimiter.Check(identifier, ActionCreatePetition); !result.Allowed {
		return nil, models.ReasonRateLimited, nil
	}

	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create petition: %w", err)
	}

	s.logger.Info("petition created",
		slog.String("petition_id", created.ID.String()),
		slog.Int("target", created.TargetSignatures))
	return created, "", nil
}

// AttemptStats returns the abuse-forensics aggregation for a petition.
func (s *PetitionService) AttemptStats(ctx context.Context, id uuid.UUID) (*models.AttemptStats, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.stats.StatsForPetition(ctx, id)
}
