package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/firmahq/firma/internal/models"
	pkghttp "github.com/firmahq/firma/pkg/http"
)

// VerificationService defines the phone verification flow
type VerificationService interface {
	RequestCode(ctx context.Context, phone string) error
	ConfirmCode(ctx context.Context, phone, code string) error
}

// VerificationHandler handles phone verification requests
type VerificationHandler struct {
	service VerificationService
}

func NewVerificationHandler(service VerificationService) *VerificationHandler {
	return &VerificationHandler{service: service}
}

// RequestCodeRequest represents the request body for requesting a code
type RequestCodeRequest struct {
	Phone string `json:"phone" validate:"required,phone"`
}

// ConfirmCodeRequest represents the request body for confirming a code
type ConfirmCodeRequest struct {
	Phone string `json:"phone" validate:"required,phone"`
	Code  string `json:"code" validate:"required,min=6,max=8"`
}

// RequestCode handles POST /verifications/request
func (h *VerificationHandler) RequestCode(w http.ResponseWriter, r *http.Request) {
	var req RequestCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.RequestCode(r.Context(), req.Phone); err != nil {
		pkghttp.WriteInternalError(w, "Failed to send verification code")
		return
	}

	pkghttp.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "code_sent"})
}

// ConfirmCode handles POST /verifications/confirm
func (h *VerificationHandler) ConfirmCode(w http.ResponseWriter, r *http.Request) {
	var req ConfirmCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.ConfirmCode(r.Context(), req.Phone, req.Code); err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "No verification pending for this phone")
		case errors.Is(err, models.ErrCodeExpired):
			pkghttp.WriteError(w, http.StatusGone, "code_expired", "Verification code expired, request a new one")
		case errors.Is(err, models.ErrCodeMismatch):
			pkghttp.WriteError(w, http.StatusUnauthorized, "code_mismatch", "Verification code does not match")
		default:
			pkghttp.WriteInternalError(w, "Failed to confirm verification code")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}
