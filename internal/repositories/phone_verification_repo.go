package repositories

import (
	"context"
	"time"

	"github.com/firmahq/firma/internal/database"
	"github.com/firmahq/firma/internal/models"
	"github.com/jackc/pgx/v5"
)

// PhoneVerificationRepository handles database operations for phone
// verification state
type PhoneVerificationRepository struct {
	db *database.DB
}

func NewPhoneVerificationRepository(db *database.DB) *PhoneVerificationRepository {
	return &PhoneVerificationRepository{db: db}
}

func (r *PhoneVerificationRepository) GetByPhone(ctx context.Context, phone string) (*models.PhoneVerification, error) {
	query := `
		SELECT phone_number, secret, counter, code_sent_at, verified_at, created_at
		FROM phone_verifications WHERE phone_number = $1
	`

	var v models.PhoneVerification
	err := r.db.Pool.QueryRow(ctx, query, phone).Scan(
		&v.PhoneNumber, &v.Secret, &v.Counter, &v.CodeSentAt, &v.VerifiedAt, &v.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &v, nil
}

// Upsert stores a fresh secret/counter for a phone, resetting any previous
// verification so a re-requested code must be confirmed again.
func (r *PhoneVerificationRepository) Upsert(ctx context.Context, v *models.PhoneVerification) error {
	query := `
		INSERT INTO phone_verifications (phone_number, secret, counter, code_sent_at, verified_at, created_at)
		VALUES ($1, $2, $3, $4, NULL, NOW())
		ON CONFLICT (phone_number) DO UPDATE SET
			secret = $2, counter = $3, code_sent_at = $4, verified_at = NULL
	`

	_, err := r.db.Pool.Exec(ctx, query, v.PhoneNumber, v.Secret, v.Counter, v.CodeSentAt)
	return err
}

func (r *PhoneVerificationRepository) MarkVerified(ctx context.Context, phone string, at time.Time) error {
	query := `UPDATE phone_verifications SET verified_at = $2 WHERE phone_number = $1`

	_, err := r.db.Pool.Exec(ctx, query, phone, at)
	return err
}

// IsVerified reports whether the phone has a confirmed verification.
func (r *PhoneVerificationRepository) IsVerified(ctx context.Context, phone string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM phone_verifications
			WHERE phone_number = $1 AND verified_at IS NOT NULL
		)
	`

	var verified bool
	err := r.db.Pool.QueryRow(ctx, query, phone).Scan(&verified)
	return verified, err
}
