package repositories

import (
	"context"
	"time"

	"github.com/firmahq/firma/internal/database"
	"github.com/firmahq/firma/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
)

// IPRiskRepository handles the semi-durable per-IP risk history
type IPRiskRepository struct {
	db *database.DB
}

func NewIPRiskRepository(db *database.DB) *IPRiskRepository {
	return &IPRiskRepository{db: db}
}

func (r *IPRiskRepository) GetByIP(ctx context.Context, ip string) (*models.IPRiskRecord, error) {
	query := `
		SELECT ip_address, risk_score, suspicious_activity, total_requests,
		       first_seen, last_seen, blocked_until, block_reason
		FROM ip_risk WHERE ip_address = $1
	`

	var rec models.IPRiskRecord
	err := r.db.Pool.QueryRow(ctx, query, ip).Scan(
		&rec.IPAddress, &rec.RiskScore, pq.Array(&rec.SuspiciousActivity),
		&rec.TotalRequests, &rec.FirstSeen, &rec.LastSeen,
		&rec.BlockedUntil, &rec.BlockReason,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// RecordObservation upserts the incremental history for an IP: bumps the
// request counter, refreshes last_seen, adds score and merges any new
// suspicious-activity tags. Score never decays here; only the cleanup job
// lowers it.
func (r *IPRiskRepository) RecordObservation(ctx context.Context, ip string, scoreDelta int, tags []string) error {
	query := `
		INSERT INTO ip_risk (ip_address, risk_score, suspicious_activity, total_requests, first_seen, last_seen)
		VALUES ($1, $2, $3, 1, NOW(), NOW())
		ON CONFLICT (ip_address) DO UPDATE SET
			risk_score = LEAST(ip_risk.risk_score + $2, 100),
			suspicious_activity = (
				SELECT ARRAY(SELECT DISTINCT unnest(ip_risk.suspicious_activity || $3::text[]))
			),
			total_requests = ip_risk.total_requests + 1,
			last_seen = NOW()
	`

	if tags == nil {
		tags = []string{}
	}

	_, err := r.db.Pool.Exec(ctx, query, ip, scoreDelta, pq.Array(tags))
	return err
}

// SetBlock inserts or refreshes a temporary block entry for an IP.
func (r *IPRiskRepository) SetBlock(ctx context.Context, ip, reason string, until time.Time) error {
	query := `
		INSERT INTO ip_risk (ip_address, risk_score, suspicious_activity, total_requests,
		                     first_seen, last_seen, blocked_until, block_reason)
		VALUES ($1, 0, '{}', 0, NOW(), NOW(), $2, $3)
		ON CONFLICT (ip_address) DO UPDATE SET
			blocked_until = $2,
			block_reason = $3,
			last_seen = NOW()
	`

	_, err := r.db.Pool.Exec(ctx, query, ip, until, reason)
	return err
}

// ClearBlock removes an expired block from a record, leaving the history.
func (r *IPRiskRepository) ClearBlock(ctx context.Context, ip string) error {
	query := `UPDATE ip_risk SET blocked_until = NULL, block_reason = NULL WHERE ip_address = $1`

	_, err := r.db.Pool.Exec(ctx, query, ip)
	return err
}

// DeleteExpiredBlocks evicts blocks whose expiry has passed. Run by the
// cleanup manager; IsBlocked also evicts lazily on read.
func (r *IPRiskRepository) DeleteExpiredBlocks(ctx context.Context) (int64, error) {
	query := `
		UPDATE ip_risk SET blocked_until = NULL, block_reason = NULL
		WHERE blocked_until IS NOT NULL AND blocked_until <= CURRENT_TIMESTAMP
	`

	tag, err := r.db.Pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DecayStaleScores halves the risk score of records not seen for the given
// duration. This is the explicit decay path; analysis never decays scores.
func (r *IPRiskRepository) DecayStaleScores(ctx context.Context, notSeenFor time.Duration) (int64, error) {
	query := `
		UPDATE ip_risk SET risk_score = risk_score / 2
		WHERE risk_score > 0 AND last_seen <= NOW() - $1::interval
	`

	tag, err := r.db.Pool.Exec(ctx, query, notSeenFor)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
