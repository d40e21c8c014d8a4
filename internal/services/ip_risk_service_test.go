package services_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/firmahq/firma/internal/models"
	"github.com/firmahq/firma/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockIPRiskStore implements services.IPRiskStore in memory
type mockIPRiskStore struct {
	records map[string]*models.IPRiskRecord
	getErr  error
}

func newMockIPRiskStore() *mockIPRiskStore {
	return &mockIPRiskStore{records: make(map[string]*models.IPRiskRecord)}
}

func (m *mockIPRiskStore) GetByIP(_ context.Context, ip string) (*models.IPRiskRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	rec, ok := m.records[ip]
	if !ok {
		return nil, models.ErrNotFound
	}
	return rec, nil
}

func (m *mockIPRiskStore) RecordObservation(_ context.Context, ip string, scoreDelta int, tags []string) error {
	rec, ok := m.records[ip]
	if !ok {
		rec = &models.IPRiskRecord{IPAddress: ip, FirstSeen: time.Now()}
		m.records[ip] = rec
	}
	rec.RiskScore += scoreDelta
	if rec.RiskScore > 100 {
		rec.RiskScore = 100
	}
	rec.SuspiciousActivity = append(rec.SuspiciousActivity, tags...)
	rec.TotalRequests++
	rec.LastSeen = time.Now()
	return nil
}

func (m *mockIPRiskStore) SetBlock(_ context.Context, ip, reason string, until time.Time) error {
	rec, ok := m.records[ip]
	if !ok {
		rec = &models.IPRiskRecord{IPAddress: ip}
		m.records[ip] = rec
	}
	rec.BlockedUntil = &until
	rec.BlockReason = &reason
	return nil
}

func (m *mockIPRiskStore) ClearBlock(_ context.Context, ip string) error {
	if rec, ok := m.records[ip]; ok {
		rec.BlockedUntil = nil
		rec.BlockReason = nil
	}
	return nil
}

func newIPRiskService(store services.IPRiskStore) *services.IPRiskService {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	return services.NewIPRiskService(store, services.IPRiskConfig{
		BlockScoreThreshold: 80,
		BlockDuration:       time.Hour,
		VPNRanges:           []string{"185.220.100.0/22"},
	}, logger)
}

func TestAnalyze_PrivateRangeAlwaysPenalized(t *testing.T) {
	service := newIPRiskService(newMockIPRiskStore())

	assessment := service.Analyze(context.Background(), "10.0.0.1", "Mozilla/5.0")

	assert.GreaterOrEqual(t, assessment.RiskScore, 30)
	assert.Contains(t, assessment.Reasons, models.IPTagPrivateRange)
}

func TestAnalyze_CleanPublicIP(t *testing.T) {
	service := newIPRiskService(newMockIPRiskStore())

	assessment := service.Analyze(context.Background(), "203.0.113.7", "Mozilla/5.0 (X11; Linux x86_64)")

	assert.Equal(t, 0, assessment.RiskScore)
	assert.Empty(t, assessment.Reasons)
}

func TestAnalyze_BotUserAgent(t *testing.T) {
	service := newIPRiskService(newMockIPRiskStore())

	assessment := service.Analyze(context.Background(), "203.0.113.7", "curl/8.5.0")

	assert.GreaterOrEqual(t, assessment.RiskScore, 40)
	assert.Contains(t, assessment.Reasons, models.IPTagBotUserAgent)
}

func TestAnalyze_VPNRange(t *testing.T) {
	service := newIPRiskService(newMockIPRiskStore())

	assessment := service.Analyze(context.Background(), "185.220.101.5", "Mozilla/5.0 (X11; Linux x86_64)")

	assert.GreaterOrEqual(t, assessment.RiskScore, 25)
	assert.Contains(t, assessment.Reasons, models.IPTagVPNRange)
}

func TestAnalyze_HistoryAccumulates(t *testing.T) {
	store := newMockIPRiskStore()
	store.records["203.0.113.7"] = &models.IPRiskRecord{
		IPAddress:          "203.0.113.7",
		SuspiciousActivity: []string{models.IPTagBotUserAgent, models.IPTagRapidRequests},
	}
	service := newIPRiskService(store)

	assessment := service.Analyze(context.Background(), "203.0.113.7", "Mozilla/5.0 (X11; Linux x86_64)")

	assert.Equal(t, 20, assessment.RiskScore)
	assert.Contains(t, assessment.Reasons, "prior_suspicious_activity")
}

func TestAnalyze_StoreOutageFailsOpen(t *testing.T) {
	store := newMockIPRiskStore()
	store.getErr = assert.AnError
	service := newIPRiskService(store)

	// Static heuristics still apply; history is skipped
	assessment := service.Analyze(context.Background(), "10.0.0.1", "Mozilla/5.0")
	assert.GreaterOrEqual(t, assessment.RiskScore, 30)
}

func TestIsBlocked_ScoringAloneDoesNotBlock(t *testing.T) {
	store := newMockIPRiskStore()
	service := newIPRiskService(store)

	// Drive the score up without an explicit block
	for i := 0; i < 30; i++ {
		service.Analyze(context.Background(), "10.0.0.1", "curl/8.5.0")
	}

	status := service.IsBlocked(context.Background(), "10.0.0.1")
	assert.False(t, status.Blocked)
}

func TestBlock_ThenIsBlocked(t *testing.T) {
	store := newMockIPRiskStore()
	service := newIPRiskService(store)

	require.NoError(t, service.Block(context.Background(), "203.0.113.7", models.IPTagRapidRequests, time.Hour))

	status := service.IsBlocked(context.Background(), "203.0.113.7")
	assert.True(t, status.Blocked)
	assert.Equal(t, models.IPTagRapidRequests, status.Reason)
	require.NotNil(t, status.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *status.ExpiresAt, time.Minute)
}

func TestIsBlocked_ExpiredBlockEvicted(t *testing.T) {
	store := newMockIPRiskStore()
	expired := time.Now().Add(-time.Minute)
	reason := models.IPTagHighRisk
	store.records["203.0.113.7"] = &models.IPRiskRecord{
		IPAddress:    "203.0.113.7",
		BlockedUntil: &expired,
		BlockReason:  &reason,
	}
	service := newIPRiskService(store)

	status := service.IsBlocked(context.Background(), "203.0.113.7")
	assert.False(t, status.Blocked)

	// The stale entry must be evicted opportunistically
	assert.Nil(t, store.records["203.0.113.7"].BlockedUntil)
}
