package models

import (
	"time"

	"github.com/google/uuid"
)

// Verification methods recorded on accepted signatures
const (
	VerificationMethodSMS  = "sms"
	VerificationMethodNone = "none"
)

// Signature is one accepted signature. Rows are immutable: at most one per
// (petition, phone) and, when the signer is authenticated, one per
// (petition, user). Both invariants are enforced by unique indexes; the
// duplicate pre-check in the validation chain is an optimization only.
type Signature struct {
	ID                 uuid.UUID  `db:"id"`
	PetitionID         uuid.UUID  `db:"petition_id"`
	UserID             *uuid.UUID `db:"user_id"`
	SignerName         string     `db:"signer_name"`
	SignerPhone        string     `db:"signer_phone"`
	Location           *string    `db:"location"`
	Comment            *string    `db:"comment"`
	IsAnonymous        bool       `db:"is_anonymous"`
	VerificationMethod string     `db:"verification_method"`
	VerifiedAt         *time.Time `db:"verified_at"`
	IPAddress          string     `db:"ip_address"`
	UserAgent          string     `db:"user_agent"`
	Fingerprint        string     `db:"fingerprint"`
	CreatedAt          time.Time  `db:"created_at"`
}

// DisplayName returns the name shown publicly for this signature.
func (s *Signature) DisplayName() string {
	if s.IsAnonymous {
		return "Anonymous"
	}
	return s.SignerName
}
