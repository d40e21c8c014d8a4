package models

import (
	"time"

	"github.com/google/uuid"
)

// SignatureAttempt is an append-only audit record of a signature attempt,
// written for every outcome. Never consulted for authorization decisions;
// those come from the committed signatures table.
type SignatureAttempt struct {
	ID            uuid.UUID      `db:"id"`
	PetitionID    uuid.UUID      `db:"petition_id"`
	UserID        *uuid.UUID     `db:"user_id"`
	PhoneNumber   string         `db:"phone_number"`
	ClientIP      string         `db:"client_ip"`
	UserAgent     string         `db:"user_agent"`
	Success       bool           `db:"success"`
	FailureReason *FailureReason `db:"failure_reason"`
	AttemptTime   time.Time      `db:"attempt_time"`
	ExpiresAt     time.Time      `db:"expires_at"`
}

// AttemptStats aggregates attempt outcomes for a petition, used by the
// abuse-forensics endpoint.
type AttemptStats struct {
	PetitionID       uuid.UUID
	TotalAttempts    int
	Accepted         int
	FailuresByReason map[FailureReason]int
}
