package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHandler(captured **uuid.UUID) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = SignerID(r)
		w.WriteHeader(http.StatusOK)
	})
}

func TestOptionalAuth_NoHeaderPassesAnonymously(t *testing.T) {
	tm := NewTokenManager("unit-test-jwt-secret-value", time.Hour)

	var captured *uuid.UUID
	handler := OptionalAuth(tm)(testHandler(&captured))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, captured)
}

func TestOptionalAuth_ValidTokenInjectsSigner(t *testing.T) {
	tm := NewTokenManager("unit-test-jwt-secret-value", time.Hour)
	userID := uuid.New()

	token, err := tm.Generate(userID)
	require.NoError(t, err)

	var captured *uuid.UUID
	handler := OptionalAuth(tm)(testHandler(&captured))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.Equal(t, userID, *captured)
}

func TestOptionalAuth_InvalidTokenRejected(t *testing.T) {
	tm := NewTokenManager("unit-test-jwt-secret-value", time.Hour)

	var captured *uuid.UUID
	handler := OptionalAuth(tm)(testHandler(&captured))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOptionalAuth_WrongSecretRejected(t *testing.T) {
	issuer := NewTokenManager("issuer-jwt-secret-value-xx", time.Hour)
	verifier := NewTokenManager("verifier-different-secret-x", time.Hour)

	token, err := issuer.Generate(uuid.New())
	require.NoError(t, err)

	var captured *uuid.UUID
	handler := OptionalAuth(verifier)(testHandler(&captured))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_BlocksAnonymous(t *testing.T) {
	tm := NewTokenManager("unit-test-jwt-secret-value", time.Hour)

	var captured *uuid.UUID
	handler := OptionalAuth(tm)(RequireAuth(testHandler(&captured)))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
