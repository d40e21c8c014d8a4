package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/firmahq/firma/internal/auth"
	"github.com/firmahq/firma/internal/models"
	"github.com/firmahq/firma/internal/services"
	pkghttp "github.com/firmahq/firma/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// SignatureAttempter runs the validation chain for one signing attempt.
type SignatureAttempter interface {
	AttemptSignature(ctx context.Context, req services.SignatureRequest) (*services.SignatureResult, error)
}

// SignatureHandler handles signature submission requests
type SignatureHandler struct {
	service  SignatureAttempter
	ipConfig *pkghttp.IPConfig
}

func NewSignatureHandler(service SignatureAttempter, ipConfig *pkghttp.IPConfig) *SignatureHandler {
	return &SignatureHandler{
		service:  service,
		ipConfig: ipConfig,
	}
}

// SignPetitionRequest represents the request body for signing a petition
type SignPetitionRequest struct {
	Name      string  `json:"name" validate:"required,min=2,max=120"`
	Phone     string  `json:"phone" validate:"required,phone"`
	Location  *string `json:"location" validate:"omitempty,max=120"`
	Comment   *string `json:"comment" validate:"omitempty,max=1000"`
	Anonymous bool    `json:"anonymous"`
}

// SignPetitionResponse is returned for accepted signatures
type SignPetitionResponse struct {
	SignatureID       string `json:"signature_id"`
	CurrentSignatures int    `json:"current_signatures"`
	Milestone         int    `json:"milestone,omitempty"`
}

// RejectionResponse is returned when the validation chain rejects an attempt
type RejectionResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Sign handles POST /petitions/{id}/signatures
func (h *SignatureHandler) Sign(w http.ResponseWriter, r *http.Request) {
	petitionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid petition ID")
		return
	}

	var req SignPetitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.service.AttemptSignature(r.Context(), services.SignatureRequest{
		PetitionID: petitionID,
		SignerName: req.Name,
		Phone:      req.Phone,
		Location:   req.Location,
		Comment:    req.Comment,
		Anonymous:  req.Anonymous,
		ClientIP:   pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent:  r.UserAgent(),
		UserID:     auth.SignerID(r),
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Petition not found")
		case errors.Is(err, models.ErrStoreUnavailable):
			pkghttp.WriteRetryable(w, "Temporarily unable to process the signature, please retry")
		default:
			pkghttp.WriteInternalError(w, "Failed to process signature")
		}
		return
	}

	if !result.Accepted {
		writeRejection(w, result.Reason)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, SignPetitionResponse{
		SignatureID:       result.SignatureID.String(),
		CurrentSignatures: result.CurrentSignatures,
		Milestone:         result.Milestone,
	})
}

// writeRejection maps a chain verdict to an HTTP status. The reason code is
// returned verbatim so clients can branch on it.
func writeRejection(w http.ResponseWriter, reason models.FailureReason) {
	status := http.StatusConflict
	message := "Signature rejected"

	switch reason {
	case models.ReasonRateLimited:
		status = http.StatusTooManyRequests
		message = "Too many attempts, try again later"
	case models.ReasonIPBlocked:
		status = http.StatusForbidden
		message = "Requests from this address are temporarily blocked"
	case models.ReasonPhoneNotVerified:
		status = http.StatusForbidden
		message = "Phone number must be verified before signing"
	case models.ReasonPhoneDuplicate, models.ReasonUserDuplicate:
		status = http.StatusConflict
		message = "This petition has already been signed with this identity"
	case models.ReasonModerationRejected:
		status = http.StatusUnprocessableEntity
		message = "Comment was rejected by moderation"
	case models.ReasonPetitionNotApproved:
		status = http.StatusConflict
		message = "Petition is not open for signatures"
	case models.ReasonTargetReached:
		status = http.StatusConflict
		message = "Petition has reached its signature target"
	}

	pkghttp.WriteError(w, status, string(reason), message)
}
