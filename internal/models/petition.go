package models

import (
	"time"

	"github.com/google/uuid"
)

// Petition statuses
const (
	PetitionStatusPending  = "pending"
	PetitionStatusApproved = "approved"
	PetitionStatusRejected = "rejected"
	PetitionStatusClosed   = "closed"
)

type Petition struct {
	ID                uuid.UUID `db:"id"`
	Title             string    `db:"title"`
	Description       string    `db:"description"`
	CreatorID         uuid.UUID `db:"creator_id"`
	CreatorEmail      string    `db:"creator_email"`
	Status            string    `db:"status"`
	CurrentSignatures int       `db:"current_signatures"`
	TargetSignatures  int       `db:"target_signatures"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

// Signable reports whether the petition can accept new signatures.
// The signature pipeline requires this as its first precondition.
func (p *Petition) Signable() (bool, FailureReason) {
	if p.Status != PetitionStatusApproved {
		return false, ReasonPetitionNotApproved
	}
	if p.CurrentSignatures >= p.TargetSignatures {
		return false, ReasonTargetReached
	}
	return true, ""
}
