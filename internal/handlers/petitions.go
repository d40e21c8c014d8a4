package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/firmahq/firma/internal/auth"
	"github.com/firmahq/firma/internal/models"
	pkghttp "github.com/firmahq/firma/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// PetitionService defines the petition business logic the handler needs
type PetitionService interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Petition, error)
	Create(ctx context.Context, identifier string, p *models.Petition) (*models.Petition, models.FailureReason, error)
	AttemptStats(ctx context.Context, id uuid.UUID) (*models.AttemptStats, error)
}

// PetitionHandler handles petition-related HTTP requests
type PetitionHandler struct {
	service  PetitionService
	ipConfig *pkghttp.IPConfig
}

func NewPetitionHandler(service PetitionService, ipConfig *pkghttp.IPConfig) *PetitionHandler {
	return &PetitionHandler{
		service:  service,
		ipConfig: ipConfig,
	}
}

// CreatePetitionRequest represents the request body for creating a petition
type CreatePetitionRequest struct {
	Title            string `json:"title" validate:"required,min=5,max=200"`
	Description      string `json:"description" validate:"required,min=20,max=10000"`
	CreatorEmail     string `json:"creator_email" validate:"required,email"`
	TargetSignatures int    `json:"target_signatures" validate:"required,gte=10,lte=10000000"`
}

// PetitionResponse represents a petition in the HTTP response
type PetitionResponse struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	Status            string `json:"status"`
	CurrentSignatures int    `json:"current_signatures"`
	TargetSignatures  int    `json:"target_signatures"`
	CreatedAt         string `json:"created_at"`
}

// AttemptStatsResponse aggregates attempt outcomes for a petition
type AttemptStatsResponse struct {
	PetitionID       string         `json:"petition_id"`
	TotalAttempts    int            `json:"total_attempts"`
	Accepted         int            `json:"accepted"`
	FailuresByReason map[string]int `json:"failures_by_reason"`
}

func petitionModelToResponse(p *models.Petition) *PetitionResponse {
	return &PetitionResponse{
		ID:                p.ID.String(),
		Title:             p.Title,
		Description:       p.Description,
		Status:            p.Status,
		CurrentSignatures: p.CurrentSignatures,
		TargetSignatures:  p.TargetSignatures,
		CreatedAt:         p.CreatedAt.Format(time.RFC3339),
	}
}

// GetPetition handles GET /petitions/{id}
func (h *PetitionHandler) GetPetition(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid petition ID")
		return
	}

	petition, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Petition not found")
			return
		}
		pkghttp.WriteInternalError(w, "Failed to fetch petition")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, petitionModelToResponse(petition))
}

// CreatePetition handles POST /petitions. Requires authentication; the
// creator identifier feeds the per-creator rate limit.
func (h *PetitionHandler) CreatePetition(w http.ResponseWriter, r *http.Request) {
	userID := auth.SignerID(r)
	if userID == nil {
		pkghttp.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req CreatePetitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	petition := &models.Petition{
		Title:            req.Title,
		Description:      req.Description,
		CreatorID:        *userID,
		CreatorEmail:     req.CreatorEmail,
		Status:           models.PetitionStatusPending,
		TargetSignatures: req.TargetSignatures,
	}

	created, reason, err := h.service.Create(r.Context(), userID.String(), petition)
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to create petition")
		return
	}
	if reason == models.ReasonRateLimited {
		pkghttp.WriteTooManyRequests(w, "Too many petitions created, try again later")
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, petitionModelToResponse(created))
}

// GetAttemptStats handles GET /petitions/{id}/attempt-stats
func (h *PetitionHandler) GetAttemptStats(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid petition ID")
		return
	}

	stats, err := h.service.AttemptStats(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Petition not found")
			return
		}
		pkghttp.WriteInternalError(w, "Failed to fetch attempt stats")
		return
	}

	failures := make(map[string]int, len(stats.FailuresByReason))
	for reason, count := range stats.FailuresByReason {
		failures[string(reason)] = count
	}

	pkghttp.WriteJSON(w, http.StatusOK, AttemptStatsResponse{
		PetitionID:       stats.PetitionID.String(),
		TotalAttempts:    stats.TotalAttempts,
		Accepted:         stats.Accepted,
		FailuresByReason: failures,
	})
}
