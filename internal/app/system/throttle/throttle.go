// Package throttle derives login lockout state from the append-only
// login_attempts collection.
//
// There is no mutable "locked" flag anywhere. Whether an account is locked
// is recomputed on every check from the trailing window of failed attempts:
// too many failures inside the window means locked until the most recent
// failure plus the lockout duration. Successful logins and expired windows
// need no reset bookkeeping; old failures simply age out of the window.
//
// Thresholds come from the security settings history (most recent record
// wins) through a small read-through cache, so admins can tune them at
// runtime without a redeploy.
package throttle

import (
	"context"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/unihub-ua/unihub/internal/app/store/loginattempts"
	"github.com/unihub-ua/unihub/internal/app/store/securitysettings"
	"github.com/unihub-ua/unihub/internal/app/system/network"
	"github.com/unihub-ua/unihub/internal/domain/models"
	"go.uber.org/zap"
)

// settingsCacheTTL bounds how stale cached thresholds can get. Writers
// call Invalidate on settings changes, so the TTL only matters for
// changes made outside this process.
const settingsCacheTTL = 1 * time.Minute

// SettingsProvider is a read-through cache over the security settings
// store. A fetch failure serves the previous value if one exists, or the
// built-in defaults otherwise, so throttling thresholds never depend on
// the settings collection being reachable.
type SettingsProvider struct {
	store  *securitysettings.Store
	logger *zap.Logger

	mu        sync.RWMutex
	cached    *models.SecuritySettings
	fetchedAt time.Time
}

// NewSettingsProvider creates a SettingsProvider over the given store.
func NewSettingsProvider(store *securitysettings.Store, logger *zap.Logger) *SettingsProvider {
	return &SettingsProvider{
		store:  store,
		logger: logger,
	}
}

// Current returns the active security settings, from cache when fresh.
func (p *SettingsProvider) Current(ctx context.Context) models.SecuritySettings {
	p.mu.RLock()
	if p.cached != nil && time.Since(p.fetchedAt) < settingsCacheTTL {
		s := *p.cached
		p.mu.RUnlock()
		return s
	}
	p.mu.RUnlock()

	settings, err := p.store.Latest(ctx)
	if err != nil {
		p.logger.Warn("security settings fetch failed, using previous or defaults",
			zap.Error(err))
		p.mu.RLock()
		defer p.mu.RUnlock()
		if p.cached != nil {
			return *p.cached
		}
		return models.DefaultSecuritySettings()
	}

	p.mu.Lock()
	p.cached = settings
	p.fetchedAt = time.Now()
	p.mu.Unlock()

	return *settings
}

// Invalidate drops the cached settings so the next Current call refetches.
// Called after an admin appends a new settings record.
func (p *SettingsProvider) Invalidate() {
	p.mu.Lock()
	p.cached = nil
	p.mu.Unlock()
}

// Decision is the outcome of a throttle check.
type Decision struct {
	Allowed           bool
	RetryAfterMinutes int        // rounded up; only meaningful when blocked
	BlockedUntil      *time.Time // only set when blocked
}

// Throttle checks and records login attempts.
type Throttle struct {
	attempts *loginattempts.Store
	settings *SettingsProvider
	logger   *zap.Logger
}

// New creates a Throttle over the given stores.
func New(attempts *loginattempts.Store, settings *SettingsProvider, logger *zap.Logger) *Throttle {
	return &Throttle{
		attempts: attempts,
		settings: settings,
		logger:   logger,
	}
}

// Settings exposes the provider so admin endpoints can invalidate it.
func (t *Throttle) Settings() *SettingsProvider {
	return t.settings
}

// Check decides whether a login attempt for email may proceed.
//
// The lookback window equals the lockout duration: a failure older than
// the lockout can never contribute to an active lock, so looking back
// further would only resurrect stale failures. When the account is
// blocked, a synthetic account_locked record is appended so the audit
// trail shows rejected attempts during the lockout.
//
// Internal errors fail open. Locking every account because the attempts
// collection hiccuped would turn a degraded dependency into a sitewide
// outage; the error is logged loudly instead.
func (t *Throttle) Check(ctx context.Context, r *http.Request, email string) Decision {
	settings := t.settings.Current(ctx)
	lockout := settings.LockoutDuration()
	now := time.Now().UTC()
	windowStart := now.Add(-lockout)

	failures, err := t.attempts.CountRecentFailures(ctx, email, windowStart)
	if err != nil {
		t.logger.Error("throttle check failed, allowing attempt",
			zap.Error(err),
			zap.String("email", email))
		return Decision{Allowed: true}
	}

	if failures < int64(settings.MaxLoginAttempts) {
		return Decision{Allowed: true}
	}

	last, err := t.attempts.LastFailure(ctx, email, windowStart)
	if err != nil {
		t.logger.Error("throttle lock lookup failed, allowing attempt",
			zap.Error(err),
			zap.String("email", email))
		return Decision{Allowed: true}
	}
	if last == nil {
		// Failures aged out between the count and this read.
		return Decision{Allowed: true}
	}

	blockedUntil := last.AttemptTime.Add(lockout)
	if !now.Before(blockedUntil) {
		return Decision{Allowed: true}
	}

	retryAfter := int(math.Ceil(blockedUntil.Sub(now).Minutes()))
	if retryAfter < 1 {
		retryAfter = 1
	}

	// Synthetic record: the rejection is visible in the attempt history
	// but is excluded from failure counts so it can't extend the lock.
	if err := t.attempts.Create(ctx, models.LoginAttempt{
		Email:         email,
		IPAddress:     network.GetClientIP(r),
		UserAgent:     network.GetUserAgent(r),
		Success:       false,
		FailureReason: models.FailureAccountLocked,
		IsBlocked:     true,
		BlockedUntil:  &blockedUntil,
		AttemptTime:   now,
	}); err != nil {
		t.logger.Warn("failed to record lockout attempt",
			zap.Error(err),
			zap.String("email", email))
	}

	t.logger.Info("login attempt blocked",
		zap.String("email", email),
		zap.Int64("recent_failures", failures),
		zap.Int("retry_after_minutes", retryAfter))

	return Decision{
		Allowed:           false,
		RetryAfterMinutes: retryAfter,
		BlockedUntil:      &blockedUntil,
	}
}

// RecordSuccess appends a successful attempt record. A success does not
// delete past failures; they age out of the window on their own.
func (t *Throttle) RecordSuccess(ctx context.Context, r *http.Request, email string) {
	if err := t.attempts.Create(ctx, models.LoginAttempt{
		Email:     email,
		IPAddress: network.GetClientIP(r),
		UserAgent: network.GetUserAgent(r),
		Success:   true,
	}); err != nil {
		t.logger.Warn("failed to record successful login attempt",
			zap.Error(err),
			zap.String("email", email))
	}
}

// RecordFailure appends a failed attempt record with the given reason.
func (t *Throttle) RecordFailure(ctx context.Context, r *http.Request, email, reason string) {
	if err := t.attempts.Create(ctx, models.LoginAttempt{
		Email:         email,
		IPAddress:     network.GetClientIP(r),
		UserAgent:     network.GetUserAgent(r),
		Success:       false,
		FailureReason: reason,
	}); err != nil {
		t.logger.Warn("failed to record failed login attempt",
			zap.Error(err),
			zap.String("email", email))
	}
}
