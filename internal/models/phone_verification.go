package models

import "time"

// PhoneVerification tracks the HOTP secret and state for verifying a phone
// number before its signatures are accepted.
type PhoneVerification struct {
	PhoneNumber string     `db:"phone_number"`
	Secret      string     `db:"secret"` // base32 HOTP secret
	Counter     int64      `db:"counter"`
	CodeSentAt  *time.Time `db:"code_sent_at"`
	VerifiedAt  *time.Time `db:"verified_at"`
	CreatedAt   time.Time  `db:"created_at"`
}
