package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firmahq/firma/internal/models"
	"github.com/firmahq/firma/pkg/fingerprint"
	pkglogger "github.com/firmahq/firma/pkg/logger"
	"github.com/google/uuid"
)

// PetitionStore is the petition collaborator consumed by the pipeline.
type PetitionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Petition, error)
	IncrementSignatures(ctx context.Context, id uuid.UUID, by int) (int, error)
}

// SignatureStore persists accepted signatures and answers duplicate checks.
type SignatureStore interface {
	Create(ctx context.Context, sig *models.Signature) (*models.Signature, error)
	HasPhoneSignature(ctx context.Context, petitionID uuid.UUID, phone string) (bool, error)
	HasUserSignature(ctx context.Context, petitionID, userID uuid.UUID) (bool, error)
}

// BurstCounter counts recent attempts per IP for the punitive escalation.
type BurstCounter interface {
	CountByIPSince(ctx context.Context, clientIP string, since time.Time) (int, error)
}

// PhoneVerifier answers whether a phone completed verification.
type PhoneVerifier interface {
	IsVerified(ctx context.Context, phone string) (bool, error)
}

// SignatureConfig tunes the validation chain and commit stage.
type SignatureConfig struct {
	BurstThreshold      int
	BurstWindow         time.Duration
	BlockScoreThreshold int
	BlockDuration       time.Duration
}

// SignatureRequest carries one signing attempt through the pipeline.
type SignatureRequest struct {
	PetitionID uuid.UUID
	SignerName string
	Phone      string
	Location   *string
	Comment    *string
	Anonymous  bool
	ClientIP   string
	UserAgent  string
	UserID     *uuid.UUID
}

// SignatureResult is the single verdict per attempt. Accepted carries the
// committed signature's ID and the updated counter; rejected carries the
// first failing reason. Infrastructure faults are returned as errors
// wrapping models.ErrStoreUnavailable instead.
type SignatureResult struct {
	Accepted          bool
	SignatureID       uuid.UUID
	Reason            models.FailureReason
	CurrentSignatures int
	Milestone         int // highest newly crossed threshold pct, 0 if none
}

// SignatureService runs the ordered validation chain and, on acceptance,
// the commit stage.
type SignatureService struct {
	petitions    PetitionStore
	signatures   SignatureStore
	tracker      *AttemptTracker
	burst        BurstCounter
	rateLimiter  *RateLimitService
	ipRisk       *IPRiskService
	verifier     PhoneVerifier
	moderator    CommentModerator
	notifier     MilestoneNotifier
	fingerprints *fingerprint.Generator
	config       SignatureConfig
	logger       *slog.Logger
}

func NewSignatureService(
	petitions PetitionStore,
	signatures SignatureStore,
	tracker *AttemptTracker,
	burst BurstCounter,
	rateLimiter *RateLimitService,
	ipRisk *IPRiskService,
	verifier PhoneVerifier,
	moderator CommentModerator,
	notifier MilestoneNotifier,
	fingerprints *fingerprint.Generator,
	config SignatureConfig,
	logger *slog.Logger,
) *SignatureService {
	return &SignatureService{
		petitions:    petitions,
		signatures:   signatures,
		tracker:      tracker,
		burst:        burst,
		rateLimiter:  rateLimiter,
		ipRisk:       ipRisk,
		verifier:     verifier,
		moderator:    moderator,
		notifier:     notifier,
		fingerprints: fingerprints,
		config:       config,
		logger:       logger,
	}
}

// AttemptSignature runs the full pipeline for one attempt. Policy
// rejections come back as a result with a reason code, never as an error;
// errors mean an infrastructure fault the caller may retry as a new
// attempt. Every attempt is tracked regardless of outcome.
func (s *SignatureService) AttemptSignature(ctx context.Context, req SignatureRequest) (*SignatureResult, error) {
	petition, err := s.petitions.GetByID(ctx, req.PetitionID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: petition lookup: %w", models.ErrStoreUnavailable, err)
	}

	reason, err := s.runChain(ctx, petition, req)
	if err != nil {
		return nil, err
	}
	if reason != "" {
		s.tracker.Record(req.PetitionID, req.UserID, req.Phone, req.ClientIP, req.UserAgent, false, &reason)
		s.logger.Info("signature attempt rejected",
			slog.String("petition_id", req.PetitionID.String()),
			slog.String("phone", pkglogger.SanitizedPhone(req.Phone)),
			slog.String("reason", string(reason)))
		return &SignatureResult{Accepted: false, Reason: reason}, nil
	}

	return s.commit(ctx, petition, req)
}

// runChain executes the fixed-order checks and returns the first failing
// reason, or "" when all pass. Only infrastructure faults return an error.
func (s *SignatureService) runChain(ctx context.Context, petition *models.Petition, req SignatureRequest) (models.FailureReason, error) {
	// 1. Petition eligibility
	if ok, reason := petition.Signable(); !ok {
		return reason, nil
	}

	// 2. Fixed-window rate limit for the signer's identifier
	identifier := req.ClientIP
	if req.UserID != nil {
		identifier = req.ClientIP + "|" + req.UserID.String()
	}
	if result := s.rateLimiter.Check(identifier, ActionSignPetition); !result.Allowed {
		return models.ReasonRateLimited, nil
	}

	// 3. IP risk: explicit block list, then score threshold, then the
	// punitive burst escalation (stricter than the rate limiter and
	// independent of its verdict).
	if status := s.ipRisk.IsBlocked(ctx, req.ClientIP); status.Blocked {
		return models.ReasonIPBlocked, nil
	}

	assessment := s.ipRisk.Analyze(ctx, req.ClientIP, req.UserAgent)
	if assessment.RiskScore > s.config.BlockScoreThreshold {
		_ = s.ipRisk.Block(ctx, req.ClientIP, models.IPTagHighRisk, s.config.BlockDuration)
		return models.ReasonIPBlocked, nil
	}

	if count, err := s.burst.CountByIPSince(ctx, req.ClientIP, time.Now().Add(-s.config.BurstWindow)); err != nil {
		// Fail open; the fixed-window limiter above still applies
		s.logger.Error("failed to count recent attempts", slog.String("ip", req.ClientIP), slog.Any("error", err))
	} else if count > s.config.BurstThreshold {
		_ = s.ipRisk.Block(ctx, req.ClientIP, models.IPTagRapidRequests, s.config.BlockDuration)
		return models.ReasonIPBlocked, nil
	}

	// 4. Phone must have completed verification
	verified, err := s.verifier.IsVerified(ctx, req.Phone)
	if err != nil {
		return "", fmt.Errorf("%w: phone verification check: %w", models.ErrStoreUnavailable, err)
	}
	if !verified {
		return models.ReasonPhoneNotVerified, nil
	}

	// 5. Duplicate pre-checks: phone first, then user when authenticated.
	// These only cover the common case; the unique indexes checked at
	// commit are authoritative.
	hasPhone, err := s.signatures.HasPhoneSignature(ctx, petition.ID, req.Phone)
	if err != nil {
		return "", fmt.Errorf("%w: duplicate check: %w", models.ErrStoreUnavailable, err)
	}
	if hasPhone {
		return models.ReasonPhoneDuplicate, nil
	}

	if req.UserID != nil {
		hasUser, err := s.signatures.HasUserSignature(ctx, petition.ID, *req.UserID)
		if err != nil {
			return "", fmt.Errorf("%w: duplicate check: %w", models.ErrStoreUnavailable, err)
		}
		if hasUser {
			return models.ReasonUserDuplicate, nil
		}
	}

	// 6. Comment moderation, only when a comment is attached
	if req.Comment != nil && *req.Comment != "" {
		approved, reasons, err := s.moderator.Moderate(ctx, *req.Comment)
		if err != nil {
			return "", fmt.Errorf("%w: moderation: %w", models.ErrStoreUnavailable, err)
		}
		if !approved {
			s.logger.Info("comment rejected by moderation",
				slog.String("petition_id", petition.ID.String()),
				slog.Any("reasons", reasons))
			return models.ReasonModerationRejected, nil
		}
	}

	return "", nil
}

// commit persists the signature, bumps the counter atomically and
// evaluates milestones. Only reached on chain success.
func (s *SignatureService) commit(ctx context.Context, petition *models.Petition, req SignatureRequest) (*SignatureResult, error) {
	now := time.Now()
	sig := &models.Signature{
		PetitionID:         petition.ID,
		UserID:             req.UserID,
		SignerName:         req.SignerName,
		SignerPhone:        req.Phone,
		Location:           req.Location,
		Comment:            req.Comment,
		IsAnonymous:        req.Anonymous,
		VerificationMethod: models.VerificationMethodSMS,
		VerifiedAt:         &now,
		IPAddress:          req.ClientIP,
		UserAgent:          req.UserAgent,
		Fingerprint:        s.fingerprints.Generate(req.Phone, req.ClientIP, req.UserAgent, now),
	}

	created, err := s.signatures.Create(ctx, sig)
	if err != nil {
		if errors.Is(err, models.ErrDuplicateSignature) {
			// Lost the check-then-act race: a concurrent attempt for the
			// same identity committed first. The unique index is the
			// authoritative signal, so this is a duplicate verdict.
			reason := models.ReasonPhoneDuplicate
			s.tracker.Record(req.PetitionID, req.UserID, req.Phone, req.ClientIP, req.UserAgent, false, &reason)
			return &SignatureResult{Accepted: false, Reason: reason}, nil
		}
		s.tracker.Record(req.PetitionID, req.UserID, req.Phone, req.ClientIP, req.UserAgent, false, nil)
		return nil, fmt.Errorf("%w: signature write: %w", models.ErrStoreUnavailable, err)
	}

	s.tracker.Record(req.PetitionID, req.UserID, req.Phone, req.ClientIP, req.UserAgent, true, nil)

	newCount, err := s.petitions.IncrementSignatures(ctx, petition.ID, 1)
	if err != nil {
		// The signature is committed but the counter is stale. The
		// reconciliation job repairs it; surface a retryable fault.
		s.logger.Error("signature committed but counter increment failed",
			slog.String("petition_id", petition.ID.String()),
			slog.String("signature_id", created.ID.String()),
			slog.Any("error", err))
		return nil, fmt.Errorf("%w: counter increment: %w", models.ErrStoreUnavailable, err)
	}

	result := &SignatureResult{
		Accepted:          true,
		SignatureID:       created.ID,
		CurrentSignatures: newCount,
	}

	if threshold, ok := HighestCrossedMilestone(newCount-1, newCount, petition.TargetSignatures); ok {
		result.Milestone = threshold
		s.dispatchMilestone(petition, newCount, threshold)
	}

	return result, nil
}

// dispatchMilestone notifies in the background; a dispatch failure never
// rolls back the commit.
func (s *SignatureService) dispatchMilestone(petition *models.Petition, newCount, threshold int) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.notifier.NotifyMilestone(ctx, petition, newCount, threshold); err != nil {
			s.logger.Error("milestone notification failed",
				slog.String("petition_id", petition.ID.String()),
				slog.Int("threshold_pct", threshold),
				slog.Any("error", err))
		}
	}()
}
