package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/firmahq/firma/internal/models"
	"github.com/google/uuid"
)

// AttemptStore appends to the immutable attempt log.
type AttemptStore interface {
	Record(ctx context.Context, attempt *models.SignatureAttempt) error
}

// AttemptTracker writes the audit record for every signature attempt.
// Writes are fire-and-forget: a tracking-store outage must never change or
// delay the caller's outcome, so failures are logged and swallowed.
type AttemptTracker struct {
	store     AttemptStore
	retention time.Duration
	logger    *slog.Logger
	wg        sync.WaitGroup
}

func NewAttemptTracker(store AttemptStore, retention time.Duration, logger *slog.Logger) *AttemptTracker {
	return &AttemptTracker{
		store:     store,
		retention: retention,
		logger:    logger,
	}
}

// Record appends the attempt in the background and returns immediately.
func (t *AttemptTracker) Record(petitionID uuid.UUID, userID *uuid.UUID, phone, clientIP, userAgent string, success bool, reason *models.FailureReason) {
	now := time.Now()
	attempt := &models.SignatureAttempt{
		ID:            uuid.New(),
		PetitionID:    petitionID,
		UserID:        userID,
		PhoneNumber:   phone,
		ClientIP:      clientIP,
		UserAgent:     userAgent,
		Success:       success,
		FailureReason: reason,
		AttemptTime:   now,
		ExpiresAt:     now.Add(t.retention),
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := t.store.Record(ctx, attempt); err != nil {
			t.logger.Error("failed to record signature attempt",
				slog.String("petition_id", petitionID.String()),
				slog.String("client_ip", clientIP),
				slog.Any("error", err))
		}
	}()
}

// Wait blocks until in-flight writes finish. Used during shutdown and in
// tests that assert on recorded attempts.
func (t *AttemptTracker) Wait() {
	t.wg.Wait()
}
