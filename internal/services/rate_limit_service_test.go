package services_test

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/firmahq/firma/internal/services"
	"github.com/stretchr/testify/assert"
)

func testLimits() map[services.RateLimitAction]services.ActionLimit {
	return map[services.RateLimitAction]services.ActionLimit{
		services.ActionSignPetition:   {MaxRequests: 10, Window: time.Hour},
		services.ActionCreatePetition: {MaxRequests: 3, Window: time.Hour},
	}
}

func TestRateLimitService_ExactlyMaxRequestsSucceed(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	store := services.NewInMemoryWindowStore()
	service := services.NewRateLimitService(store, testLimits(), logger)

	for i := 0; i < 10; i++ {
		result := service.Check("203.0.113.7", services.ActionSignPetition)
		assert.True(t, result.Allowed, "call %d should be allowed", i+1)
		assert.Equal(t, 10-(i+1), result.Remaining)
	}

	result := service.Check("203.0.113.7", services.ActionSignPetition)
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
}

func TestRateLimitService_DeniedCallsDoNotConsumeQuota(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	store := services.NewInMemoryWindowStore()
	service := services.NewRateLimitService(store, testLimits(), logger)

	for i := 0; i < 15; i++ {
		service.Check("203.0.113.7", services.ActionCreatePetition)
	}

	// ResetAt must be stable despite the extra denied calls
	result := service.Check("203.0.113.7", services.ActionCreatePetition)
	assert.False(t, result.Allowed)
}

func TestRateLimitService_WindowResets(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	store := services.NewInMemoryWindowStore()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.Now = func() time.Time { return now }

	service := services.NewRateLimitService(store, testLimits(), logger)

	for i := 0; i < 3; i++ {
		assert.True(t, service.Check("creator-1", services.ActionCreatePetition).Allowed)
	}
	assert.False(t, service.Check("creator-1", services.ActionCreatePetition).Allowed)

	// After the window elapses the counter starts from zero
	now = now.Add(time.Hour + time.Second)
	result := service.Check("creator-1", services.ActionCreatePetition)
	assert.True(t, result.Allowed)
	assert.Equal(t, 2, result.Remaining)
}

func TestRateLimitService_IdentifiersAreIndependent(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	store := services.NewInMemoryWindowStore()
	service := services.NewRateLimitService(store, testLimits(), logger)

	for i := 0; i < 10; i++ {
		service.Check("203.0.113.7", services.ActionSignPetition)
	}

	assert.False(t, service.Check("203.0.113.7", services.ActionSignPetition).Allowed)
	assert.True(t, service.Check("203.0.113.8", services.ActionSignPetition).Allowed)
}

func TestRateLimitService_ActionsAreIndependent(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	store := services.NewInMemoryWindowStore()
	service := services.NewRateLimitService(store, testLimits(), logger)

	for i := 0; i < 3; i++ {
		service.Check("203.0.113.7", services.ActionCreatePetition)
	}

	assert.False(t, service.Check("203.0.113.7", services.ActionCreatePetition).Allowed)
	assert.True(t, service.Check("203.0.113.7", services.ActionSignPetition).Allowed)
}

func TestRateLimitService_UnconfiguredActionFailsOpen(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	store := services.NewInMemoryWindowStore()
	service := services.NewRateLimitService(store, testLimits(), logger)

	result := service.Check("203.0.113.7", services.RateLimitAction("unknown_action"))
	assert.True(t, result.Allowed)
}

func TestInMemoryWindowStore_Sweep(t *testing.T) {
	store := services.NewInMemoryWindowStore()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.Now = func() time.Time { return now }

	store.Take("sign_petition:a", 10, time.Minute)
	store.Take("sign_petition:b", 10, time.Hour)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, store.Sweep())
}
