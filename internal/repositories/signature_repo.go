package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/firmahq/firma/internal/database"
	"github.com/firmahq/firma/internal/models"
	"github.com/google/uuid"
)

// SignatureRepository handles database operations for accepted signatures
type SignatureRepository struct {
	db *database.DB
}

func NewSignatureRepository(db *database.DB) *SignatureRepository {
	return &SignatureRepository{db: db}
}

// Create inserts an accepted signature. Unique indexes on
// (petition_id, signer_phone) and (petition_id, user_id) make the insert
// the authoritative duplicate check: a unique violation is returned as
// models.ErrDuplicateSignature regardless of what the pre-check saw.
func (r *SignatureRepository) Create(ctx context.Context, sig *models.Signature) (*models.Signature, error) {
	sig.ID = uuid.New()
	sig.CreatedAt = time.Now()

	query := `
		INSERT INTO signatures (id, petition_id, user_id, signer_name, signer_phone,
		                        location, comment, is_anonymous, verification_method,
		                        verified_at, ip_address, user_agent, fingerprint, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		sig.ID, sig.PetitionID, sig.UserID, sig.SignerName, sig.SignerPhone,
		sig.Location, sig.Comment, sig.IsAnonymous, sig.VerificationMethod,
		sig.VerifiedAt, sig.IPAddress, sig.UserAgent, sig.Fingerprint, sig.CreatedAt,
	)
	if err != nil {
		if errors.Is(database.MapPostgresError(err), models.ErrConflict) {
			return nil, models.ErrDuplicateSignature
		}
		return nil, database.MapPostgresError(err)
	}

	return sig, nil
}

// HasPhoneSignature reports whether a committed signature exists for the
// (petition, phone) pair. Read-only; a false result means "not yet
// observed", not a uniqueness guarantee going forward.
func (r *SignatureRepository) HasPhoneSignature(ctx context.Context, petitionID uuid.UUID, phone string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM signatures WHERE petition_id = $1 AND signer_phone = $2)`

	var exists bool
	err := r.db.Pool.QueryRow(ctx, query, petitionID, phone).Scan(&exists)
	return exists, err
}

// HasUserSignature reports whether a committed signature exists for the
// (petition, user) pair.
func (r *SignatureRepository) HasUserSignature(ctx context.Context, petitionID, userID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM signatures WHERE petition_id = $1 AND user_id = $2)`

	var exists bool
	err := r.db.Pool.QueryRow(ctx, query, petitionID, userID).Scan(&exists)
	return exists, err
}

func (r *SignatureRepository) CountForPetition(ctx context.Context, petitionID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM signatures WHERE petition_id = $1`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, petitionID).Scan(&count)
	return count, err
}
