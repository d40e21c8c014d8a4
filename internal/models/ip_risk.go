package models

import "time"

// Suspicious activity tags accumulated on an IP's history
const (
	IPTagPrivateRange  = "private_range"
	IPTagVPNRange      = "vpn_range"
	IPTagBotUserAgent  = "bot_user_agent"
	IPTagRapidRequests = "rapid_requests"
	IPTagHighRisk      = "high_risk_score"
)

// IPRiskRecord is the semi-durable history kept per client IP. Score only
// decays through the cleanup job, never automatically. A BlockedUntil in
// the past means the IP is not blocked; such rows are evicted lazily.
type IPRiskRecord struct {
	IPAddress          string     `db:"ip_address"`
	RiskScore          int        `db:"risk_score"`
	SuspiciousActivity []string   `db:"suspicious_activity"`
	TotalRequests      int64      `db:"total_requests"`
	FirstSeen          time.Time  `db:"first_seen"`
	LastSeen           time.Time  `db:"last_seen"`
	BlockedUntil       *time.Time `db:"blocked_until"`
	BlockReason        *string    `db:"block_reason"`
}

// RiskAssessment is the outcome of analyzing a single attempt's origin.
type RiskAssessment struct {
	RiskScore int
	Reasons   []string
}

// BlockStatus reports whether an IP is currently on the temporary block list.
type BlockStatus struct {
	Blocked   bool
	Reason    string
	ExpiresAt *time.Time
}
