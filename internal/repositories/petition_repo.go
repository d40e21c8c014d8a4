package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/firmahq/firma/internal/database"
	"github.com/firmahq/firma/internal/models"
	"github.com/google/uuid"
)

// PetitionRepository handles database operations for petitions
type PetitionRepository struct {
	db *database.DB
}

func NewPetitionRepository(db *database.DB) *PetitionRepository {
	return &PetitionRepository{db: db}
}

func (r *PetitionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Petition, error) {
	query := `
		SELECT id, title, description, creator_id, creator_email, status,
		       current_signatures, target_signatures, created_at, updated_at
		FROM petitions WHERE id = $1
	`

	var p models.Petition
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Title, &p.Description, &p.CreatorID, &p.CreatorEmail,
		&p.Status, &p.CurrentSignatures, &p.TargetSignatures,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &p, nil
}

func (r *PetitionRepository) Create(ctx context.Context, p *models.Petition) (*models.Petition, error) {
	p.ID = uuid.New()
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = models.PetitionStatusPending
	}

	query := `
		INSERT INTO petitions (id, title, description, creator_id, creator_email, status,
		                       current_signatures, target_signatures, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8, $9)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		p.ID, p.Title, p.Description, p.CreatorID, p.CreatorEmail,
		p.Status, p.TargetSignatures, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return p, nil
}

// IncrementSignatures bumps the petition counter with a single UPDATE so
// concurrent signers never lose updates, and returns the post-increment
// value. Callers derive the pre-increment count as newCount - by.
func (r *PetitionRepository) IncrementSignatures(ctx context.Context, id uuid.UUID, by int) (int, error) {
	query := `
		UPDATE petitions
		SET current_signatures = current_signatures + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING current_signatures
	`

	var newCount int
	err := r.db.Pool.QueryRow(ctx, query, id, by).Scan(&newCount)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return newCount, nil
}

// ReconcileCounts recomputes every petition's counter from the signatures
// table. Run periodically: a crash between the signature insert and the
// counter increment leaves the counter stale, and this repairs it.
func (r *PetitionRepository) ReconcileCounts(ctx context.Context) (int64, error) {
	query := `
		UPDATE petitions p
		SET current_signatures = s.cnt, updated_at = NOW()
		FROM (
			SELECT petition_id, COUNT(*) AS cnt
			FROM signatures
			GROUP BY petition_id
		) s
		WHERE p.id = s.petition_id AND p.current_signatures <> s.cnt
	`

	tag, err := r.db.Pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to reconcile signature counts: %w", err)
	}

	return tag.RowsAffected(), nil
}
