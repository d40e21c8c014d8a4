package services

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"log/slog"
	"time"

	"github.com/firmahq/firma/internal/models"
	"github.com/pquerna/otp/hotp"

	pkglogger "github.com/firmahq/firma/pkg/logger"
)

// VerificationStore persists phone verification state.
type VerificationStore interface {
	GetByPhone(ctx context.Context, phone string) (*models.PhoneVerification, error)
	Upsert(ctx context.Context, v *models.PhoneVerification) error
	MarkVerified(ctx context.Context, phone string, at time.Time) error
	IsVerified(ctx context.Context, phone string) (bool, error)
}

// SMSSender delivers a verification code to a phone number.
type SMSSender interface {
	SendCode(ctx context.Context, phone, code string) error
}

// LogSMSSender logs codes instead of sending them. Development only.
type LogSMSSender struct {
	Logger *slog.Logger
}

func (s *LogSMSSender) SendCode(_ context.Context, phone, code string) error {
	s.Logger.Info("verification code issued",
		slog.String("phone", pkglogger.SanitizedPhone(phone)),
		slog.String("code", code))
	return nil
}

// VerificationService verifies phone numbers with single-use HOTP codes
// before their signatures are accepted.
type VerificationService struct {
	store   VerificationStore
	sms     SMSSender
	codeTTL time.Duration
	logger  *slog.Logger
}

func NewVerificationService(store VerificationStore, sms SMSSender, codeTTL time.Duration, logger *slog.Logger) *VerificationService {
	return &VerificationService{
		store:   store,
		sms:     sms,
		codeTTL: codeTTL,
		logger:  logger,
	}
}

// RequestCode issues a fresh code for the phone. Re-requesting resets any
// previous verification for that number.
func (s *VerificationService) RequestCode(ctx context.Context, phone string) error {
	secret, err := generateHOTPSecret()
	if err != nil {
		return fmt.Errorf("failed to generate verification secret: %w", err)
	}

	now := time.Now()
	v := &models.PhoneVerification{
		PhoneNumber: phone,
		Secret:      secret,
		Counter:     1,
		CodeSentAt:  &now,
	}

	code, err := hotp.GenerateCode(secret, uint64(v.Counter))
	if err != nil {
		return fmt.Errorf("failed to generate verification code: %w", err)
	}

	if err := s.store.Upsert(ctx, v); err != nil {
		return fmt.Errorf("failed to store verification state: %w", err)
	}

	if err := s.sms.SendCode(ctx, phone, code); err != nil {
		return fmt.Errorf("failed to send verification code: %w", err)
	}

	s.logger.Info("verification code requested",
		slog.String("phone", pkglogger.SanitizedPhone(phone)))
	return nil
}

// ConfirmCode validates a submitted code and marks the phone verified.
func (s *VerificationService) ConfirmCode(ctx context.Context, phone, code string) error {
	v, err := s.store.GetByPhone(ctx, phone)
	if err != nil {
		return err
	}

	if v.CodeSentAt == nil || time.Now().After(v.CodeSentAt.Add(s.codeTTL)) {
		return models.ErrCodeExpired
	}

	if !hotp.Validate(code, uint64(v.Counter), v.Secret) {
		return models.ErrCodeMismatch
	}

	if err := s.store.MarkVerified(ctx, phone, time.Now()); err != nil {
		return fmt.Errorf("failed to mark phone verified: %w", err)
	}

	s.logger.Info("phone verified", slog.String("phone", pkglogger.SanitizedPhone(phone)))
	return nil
}

// IsVerified reports whether the phone has completed verification.
func (s *VerificationService) IsVerified(ctx context.Context, phone string) (bool, error) {
	return s.store.IsVerified(ctx, phone)
}

func generateHOTPSecret() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf), nil
}
