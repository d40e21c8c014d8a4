package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/firmahq/firma/internal/models"
	"github.com/firmahq/firma/internal/services"
	pkghttp "github.com/firmahq/firma/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAttempter struct {
	result  *services.SignatureResult
	err     error
	lastReq services.SignatureRequest
}

func (m *mockAttempter) AttemptSignature(_ context.Context, req services.SignatureRequest) (*services.SignatureResult, error) {
	m.lastReq = req
	return m.result, m.err
}

func newSignRouter(attempter *mockAttempter) chi.Router {
	handler := NewSignatureHandler(attempter, &pkghttp.IPConfig{})
	router := chi.NewRouter()
	router.Post("/petitions/{id}/signatures", handler.Sign)
	return router
}

func doSign(t *testing.T, router chi.Router, petitionID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/petitions/"+petitionID+"/signatures", strings.NewReader(body))
	req.RemoteAddr = "203.0.113.7:51234"
	req.Header.Set("User-Agent", "Mozilla/5.0")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSign_Accepted(t *testing.T) {
	sigID := uuid.New()
	attempter := &mockAttempter{result: &services.SignatureResult{
		Accepted:          true,
		SignatureID:       sigID,
		CurrentSignatures: 25,
		Milestone:         25,
	}}
	router := newSignRouter(attempter)

	rec := doSign(t, router, uuid.New().String(), `{"name":"Jane Doe","phone":"0612345678"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp SignPetitionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, sigID.String(), resp.SignatureID)
	assert.Equal(t, 25, resp.CurrentSignatures)
	assert.Equal(t, 25, resp.Milestone)

	assert.Equal(t, "203.0.113.7", attempter.lastReq.ClientIP)
	assert.Equal(t, "Mozilla/5.0", attempter.lastReq.UserAgent)
}

func TestSign_InvalidPetitionID(t *testing.T) {
	router := newSignRouter(&mockAttempter{})

	rec := doSign(t, router, "not-a-uuid", `{"name":"Jane Doe","phone":"0612345678"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSign_InvalidPhone(t *testing.T) {
	router := newSignRouter(&mockAttempter{})

	rec := doSign(t, router, uuid.New().String(), `{"name":"Jane Doe","phone":"abc"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSign_RejectionStatusCodes(t *testing.T) {
	tests := []struct {
		reason models.FailureReason
		status int
	}{
		{models.ReasonRateLimited, http.StatusTooManyRequests},
		{models.ReasonIPBlocked, http.StatusForbidden},
		{models.ReasonPhoneNotVerified, http.StatusForbidden},
		{models.ReasonPhoneDuplicate, http.StatusConflict},
		{models.ReasonUserDuplicate, http.StatusConflict},
		{models.ReasonModerationRejected, http.StatusUnprocessableEntity},
		{models.ReasonPetitionNotApproved, http.StatusConflict},
		{models.ReasonTargetReached, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			attempter := &mockAttempter{result: &services.SignatureResult{Accepted: false, Reason: tt.reason}}
			router := newSignRouter(attempter)

			rec := doSign(t, router, uuid.New().String(), `{"name":"Jane Doe","phone":"0612345678"}`)

			assert.Equal(t, tt.status, rec.Code)

			var resp pkghttp.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, string(tt.reason), resp.Error)
		})
	}
}

func TestSign_PetitionNotFound(t *testing.T) {
	attempter := &mockAttempter{err: models.ErrNotFound}
	router := newSignRouter(attempter)

	rec := doSign(t, router, uuid.New().String(), `{"name":"Jane Doe","phone":"0612345678"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSign_StoreOutageIsRetryable(t *testing.T) {
	attempter := &mockAttempter{err: models.ErrStoreUnavailable}
	router := newSignRouter(attempter)

	rec := doSign(t, router, uuid.New().String(), `{"name":"Jane Doe","phone":"0612345678"}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "store_unavailable", resp.Error)
}
