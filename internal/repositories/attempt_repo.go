package repositories

import (
	"context"
	"time"

	"github.com/firmahq/firma/internal/database"
	"github.com/firmahq/firma/internal/models"
	"github.com/google/uuid"
)

// AttemptRepository handles database operations for the append-only
// signature attempt log
type AttemptRepository struct {
	db *database.DB
}

func NewAttemptRepository(db *database.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Record appends one attempt. Rows are never updated; the cleanup manager
// deletes them after the retention window.
func (r *AttemptRepository) Record(ctx context.Context, attempt *models.SignatureAttempt) error {
	query := `
		INSERT INTO signature_attempts (id, petition_id, user_id, phone_number, client_ip,
		                                user_agent, success, failure_reason, attempt_time, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		attempt.ID, attempt.PetitionID, attempt.UserID, attempt.PhoneNumber,
		attempt.ClientIP, attempt.UserAgent, attempt.Success, attempt.FailureReason,
		attempt.AttemptTime, attempt.ExpiresAt,
	)

	return err
}

// CountByIPSince returns the number of attempts (any outcome) from an IP
// within a window. Used for the punitive burst escalation, which is
// stricter than and independent of the rate limiter's verdict.
func (r *AttemptRepository) CountByIPSince(ctx context.Context, clientIP string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM signature_attempts
		WHERE client_ip = $1 AND attempt_time >= $2
	`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, clientIP, since).Scan(&count)
	return count, err
}

// StatsForPetition aggregates attempt outcomes for abuse forensics.
func (r *AttemptRepository) StatsForPetition(ctx context.Context, petitionID uuid.UUID) (*models.AttemptStats, error) {
	query := `
		SELECT success, failure_reason, COUNT(*)
		FROM signature_attempts
		WHERE petition_id = $1
		GROUP BY success, failure_reason
	`

	rows, err := r.db.Pool.Query(ctx, query, petitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &models.AttemptStats{
		PetitionID:       petitionID,
		FailuresByReason: make(map[models.FailureReason]int),
	}

	for rows.Next() {
		var success bool
		var reason *models.FailureReason
		var count int
		if err := rows.Scan(&success, &reason, &count); err != nil {
			return nil, err
		}

		stats.TotalAttempts += count
		if success {
			stats.Accepted += count
		} else if reason != nil {
			stats.FailuresByReason[*reason] += count
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

// DeleteExpired removes attempts past their retention expiry.
func (r *AttemptRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM signature_attempts WHERE expires_at <= CURRENT_TIMESTAMP`

	tag, err := r.db.Pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
