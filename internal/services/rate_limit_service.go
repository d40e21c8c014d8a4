package services

import (
	"log/slog"
	"sync"
	"time"
)

// RateLimitAction names a limited operation. Each action has its own
// counter per identifier.
type RateLimitAction string

const (
	ActionSignPetition   RateLimitAction = "sign_petition"
	ActionCreatePetition RateLimitAction = "create_petition"
)

// RateLimitResult is the outcome of a fixed-window check.
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// WindowStore holds fixed-window counters keyed by identifier and action.
// The in-memory implementation suits single-instance deployments; a shared
// cache can be swapped in behind the same interface for multi-instance.
type WindowStore interface {
	Take(key string, max int, window time.Duration) RateLimitResult
}

// ActionLimit configures one named limiter.
type ActionLimit struct {
	MaxRequests int
	Window      time.Duration
}

// RateLimitService applies fixed-window rate limits per identifier and
// action. Fixed windows can admit up to 2x the nominal rate across a
// window boundary; acceptable for an abuse deterrent.
type RateLimitService struct {
	store  WindowStore
	limits map[RateLimitAction]ActionLimit
	logger *slog.Logger
}

func NewRateLimitService(store WindowStore, limits map[RateLimitAction]ActionLimit, logger *slog.Logger) *RateLimitService {
	return &RateLimitService{
		store:  store,
		limits: limits,
		logger: logger,
	}
}

// Check consumes one slot for the identifier under the given action. An
// unconfigured action is allowed and logged: rate limiting fails open.
func (s *RateLimitService) Check(identifier string, action RateLimitAction) RateLimitResult {
	limit, ok := s.limits[action]
	if !ok {
		s.logger.Warn("no rate limit configured for action", slog.String("action", string(action)))
		return RateLimitResult{Allowed: true}
	}

	result := s.store.Take(string(action)+":"+identifier, limit.MaxRequests, limit.Window)
	if !result.Allowed {
		s.logger.Warn("rate limit exceeded",
			slog.String("action", string(action)),
			slog.String("identifier", identifier),
			slog.Time("reset_at", result.ResetAt))
	}

	return result
}

type windowEntry struct {
	count   int
	resetAt time.Time
}

// InMemoryWindowStore is a mutex-guarded window table. Counters are lost
// on restart, which fails open by design.
type InMemoryWindowStore struct {
	mu      sync.Mutex
	windows map[string]*windowEntry

	// Now is the clock; overridable in tests.
	Now func() time.Time
}

func NewInMemoryWindowStore() *InMemoryWindowStore {
	return &InMemoryWindowStore{
		windows: make(map[string]*windowEntry),
		Now:     time.Now,
	}
}

func (s *InMemoryWindowStore) Take(key string, max int, window time.Duration) RateLimitResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()

	entry, ok := s.windows[key]
	if !ok || now.After(entry.resetAt) {
		entry = &windowEntry{resetAt: now.Add(window)}
		s.windows[key] = entry
	}

	if entry.count >= max {
		// Denied calls do not consume quota
		return RateLimitResult{Allowed: false, Remaining: 0, ResetAt: entry.resetAt}
	}

	entry.count++
	return RateLimitResult{Allowed: true, Remaining: max - entry.count, ResetAt: entry.resetAt}
}

// Sweep drops expired windows and returns how many were removed. Called by
// the cleanup manager to bound memory.
func (s *InMemoryWindowStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	removed := 0
	for key, entry := range s.windows {
		if now.After(entry.resetAt) {
			delete(s.windows, key)
			removed++
		}
	}
	return removed
}
