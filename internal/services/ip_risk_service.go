package services

import (
	"context"
	"errors"
	"log/slog"
	"net/netip"
	"strings"
	"time"

	"github.com/firmahq/firma/internal/models"
)

// IPRiskStore persists per-IP risk history and the temporary block list.
type IPRiskStore interface {
	GetByIP(ctx context.Context, ip string) (*models.IPRiskRecord, error)
	RecordObservation(ctx context.Context, ip string, scoreDelta int, tags []string) error
	SetBlock(ctx context.Context, ip, reason string, until time.Time) error
	ClearBlock(ctx context.Context, ip string) error
}

// IPRiskConfig tunes the analyzer.
type IPRiskConfig struct {
	BlockScoreThreshold int
	BlockDuration       time.Duration
	VPNRanges           []string
}

// Score penalties. Scoring never blocks by itself; the orchestrator calls
// Block when the combined score passes the threshold.
const (
	penaltyPrivateRange = 30
	penaltyVPNRange     = 25
	penaltyBotUserAgent = 40
	penaltyHistoryTag   = 10
	maxHistoryPenalty   = 30
)

var botUserAgentSignatures = []string{
	"bot", "crawler", "spider", "scrapy",
	"curl/", "wget/", "python-requests", "go-http-client",
	"headlesschrome", "phantomjs", "selenium",
}

// IPRiskService scores attempt origins from static heuristics plus
// persisted history, and maintains the temporary block list.
type IPRiskService struct {
	store   IPRiskStore
	config  IPRiskConfig
	vpnNets []netip.Prefix
	logger  *slog.Logger
}

func NewIPRiskService(store IPRiskStore, config IPRiskConfig, logger *slog.Logger) *IPRiskService {
	var vpnNets []netip.Prefix
	for _, cidr := range config.VPNRanges {
		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			logger.Warn("skipping invalid VPN range", slog.String("cidr", cidr))
			continue
		}
		vpnNets = append(vpnNets, prefix)
	}

	return &IPRiskService{
		store:   store,
		config:  config,
		vpnNets: vpnNets,
		logger:  logger,
	}
}

// Analyze scores an attempt origin and records the observation in the IP's
// history. Store errors are logged and the static score is still returned:
// the analyzer fails open rather than blocking legitimate signers on an
// outage.
func (s *IPRiskService) Analyze(ctx context.Context, ip, userAgent string) models.RiskAssessment {
	score, reasons := s.staticScore(ip, userAgent)

	record, err := s.store.GetByIP(ctx, ip)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to load IP risk history", slog.String("ip", ip), slog.Any("error", err))
	}
	if record != nil {
		historyPenalty := len(record.SuspiciousActivity) * penaltyHistoryTag
		if historyPenalty > maxHistoryPenalty {
			historyPenalty = maxHistoryPenalty
		}
		if historyPenalty > 0 {
			score += historyPenalty
			reasons = append(reasons, "prior_suspicious_activity")
		}
	}

	if score > 100 {
		score = 100
	}

	if err := s.store.RecordObservation(ctx, ip, s.observationDelta(reasons), reasons); err != nil {
		s.logger.Error("failed to record IP observation", slog.String("ip", ip), slog.Any("error", err))
	}

	return models.RiskAssessment{RiskScore: score, Reasons: reasons}
}

// staticScore applies the heuristic pattern rules only.
func (s *IPRiskService) staticScore(ip, userAgent string) (int, []string) {
	score := 0
	var reasons []string

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return penaltyBotUserAgent, []string{"unparseable_ip"}
	}

	if addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() || addr.IsUnspecified() {
		score += penaltyPrivateRange
		reasons = append(reasons, models.IPTagPrivateRange)
	}

	for _, prefix := range s.vpnNets {
		if prefix.Contains(addr) {
			score += penaltyVPNRange
			reasons = append(reasons, models.IPTagVPNRange)
			break
		}
	}

	ua := strings.ToLower(userAgent)
	for _, sig := range botUserAgentSignatures {
		if strings.Contains(ua, sig) {
			score += penaltyBotUserAgent
			reasons = append(reasons, models.IPTagBotUserAgent)
			break
		}
	}

	return score, reasons
}

// observationDelta is the score increment persisted per attempt; history
// growth is slower than the per-attempt static score so one noisy request
// does not poison an IP forever.
func (s *IPRiskService) observationDelta(reasons []string) int {
	if len(reasons) == 0 {
		return 0
	}
	return len(reasons) * 5
}

// IsBlocked checks the explicit temporary block list. Expired blocks are
// treated as not-blocked and evicted opportunistically.
func (s *IPRiskService) IsBlocked(ctx context.Context, ip string) models.BlockStatus {
	record, err := s.store.GetByIP(ctx, ip)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to check IP block list", slog.String("ip", ip), slog.Any("error", err))
		}
		return models.BlockStatus{Blocked: false}
	}

	if record.BlockedUntil == nil {
		return models.BlockStatus{Blocked: false}
	}

	if time.Now().After(*record.BlockedUntil) {
		if err := s.store.ClearBlock(ctx, ip); err != nil {
			s.logger.Error("failed to evict expired IP block", slog.String("ip", ip), slog.Any("error", err))
		}
		return models.BlockStatus{Blocked: false}
	}

	reason := ""
	if record.BlockReason != nil {
		reason = *record.BlockReason
	}
	return models.BlockStatus{Blocked: true, Reason: reason, ExpiresAt: record.BlockedUntil}
}

// Block inserts or refreshes a temporary block entry.
func (s *IPRiskService) Block(ctx context.Context, ip, reason string, duration time.Duration) error {
	until := time.Now().Add(duration)

	if err := s.store.SetBlock(ctx, ip, reason, until); err != nil {
		s.logger.Error("failed to block IP", slog.String("ip", ip), slog.Any("error", err))
		return err
	}

	s.logger.Warn("IP blocked",
		slog.String("ip", ip),
		slog.String("reason", reason),
		slog.Time("until", until))
	return nil
}
