package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrBadRequest     = errors.New("bad request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInternalServer = errors.New("internal server error")

	// ErrStoreUnavailable marks infrastructure faults the caller may retry.
	// Policy rejections never use this; they carry a FailureReason instead.
	ErrStoreUnavailable = errors.New("store unavailable")

	ErrDuplicateSignature = errors.New("signature already exists for this petition")
	ErrCodeMismatch       = errors.New("verification code does not match")
	ErrCodeExpired        = errors.New("verification code expired")
)

// FailureReason is a stable machine-readable code describing why the
// validation chain rejected a signature attempt.
type FailureReason string

const (
	ReasonPetitionNotApproved FailureReason = "petition_not_approved"
	ReasonTargetReached       FailureReason = "target_reached"
	ReasonRateLimited         FailureReason = "rate_limited"
	ReasonIPBlocked           FailureReason = "ip_blocked"
	ReasonPhoneNotVerified    FailureReason = "phone_not_verified"
	ReasonPhoneDuplicate      FailureReason = "phone_duplicate"
	ReasonUserDuplicate       FailureReason = "user_duplicate"
	ReasonModerationRejected  FailureReason = "moderation_rejected"
)
