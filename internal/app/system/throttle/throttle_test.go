package throttle

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/unihub-ua/unihub/internal/app/store/loginattempts"
	"github.com/unihub-ua/unihub/internal/app/store/securitysettings"
	"github.com/unihub-ua/unihub/internal/domain/models"
	"github.com/unihub-ua/unihub/internal/testutil"
	"go.uber.org/zap"
)

func newThrottle(t *testing.T) (*Throttle, *loginattempts.Store, *securitysettings.Store) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	attempts := loginattempts.New(db)
	settings := securitysettings.New(db)
	provider := NewSettingsProvider(settings, zap.NewNop())
	return New(attempts, provider, zap.NewNop()), attempts, settings
}

func failTimes(t *testing.T, attempts *loginattempts.Store, email string, n int, at time.Time) {
	t.Helper()
	ctx := testutil.TestContext(t)
	for i := 0; i < n; i++ {
		if err := attempts.Create(ctx, models.LoginAttempt{
			Email:         email,
			Success:       false,
			FailureReason: models.FailureInvalidCredentials,
			AttemptTime:   at.Add(-time.Duration(i) * time.Second),
		}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
}

func TestCheck_AllowedUnderThreshold(t *testing.T) {
	th, attempts, _ := newThrottle(t)
	ctx := testutil.TestContext(t)

	email := "under.threshold@lnu.edu.ua"
	req := httptest.NewRequest("POST", "/api/login", nil)

	// Defaults allow 5 attempts; 4 recent failures must not block.
	failTimes(t, attempts, email, models.DefaultMaxLoginAttempts-1, time.Now().UTC())

	decision := th.Check(ctx, req, email)
	if !decision.Allowed {
		t.Errorf("Check() blocked with %d failures, threshold is %d",
			models.DefaultMaxLoginAttempts-1, models.DefaultMaxLoginAttempts)
	}
}

func TestCheck_BlockedAtThreshold(t *testing.T) {
	th, attempts, _ := newThrottle(t)
	ctx := testutil.TestContext(t)

	email := "locked.out@lnu.edu.ua"
	req := httptest.NewRequest("POST", "/api/login", nil)
	now := time.Now().UTC()

	failTimes(t, attempts, email, models.DefaultMaxLoginAttempts, now)

	decision := th.Check(ctx, req, email)
	if decision.Allowed {
		t.Fatal("Check() allowed at the failure threshold")
	}
	if decision.RetryAfterMinutes < 1 || decision.RetryAfterMinutes > models.DefaultLockoutMinutes {
		t.Errorf("RetryAfterMinutes = %d, want 1..%d", decision.RetryAfterMinutes, models.DefaultLockoutMinutes)
	}
	if decision.BlockedUntil == nil {
		t.Fatal("BlockedUntil should be set when blocked")
	}

	// blockUntil is anchored to the most recent failure, not the check time
	wantUntil := now.Add(time.Duration(models.DefaultLockoutMinutes) * time.Minute)
	if diff := decision.BlockedUntil.Sub(wantUntil); diff < -2*time.Second || diff > 2*time.Second {
		t.Errorf("BlockedUntil = %v, want about %v", decision.BlockedUntil, wantUntil)
	}

	// The rejection itself is recorded as a synthetic attempt
	recent, err := attempts.GetByEmail(ctx, email, 1)
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if len(recent) != 1 || !recent[0].IsBlocked {
		t.Error("blocked check should append a synthetic account_locked record")
	}
	if recent[0].FailureReason != models.FailureAccountLocked {
		t.Errorf("synthetic record reason = %q, want %q", recent[0].FailureReason, models.FailureAccountLocked)
	}
}

func TestCheck_SyntheticRecordsDoNotExtendLock(t *testing.T) {
	th, attempts, _ := newThrottle(t)
	ctx := testutil.TestContext(t)

	email := "no.extension@lnu.edu.ua"
	req := httptest.NewRequest("POST", "/api/login", nil)
	now := time.Now().UTC()

	failTimes(t, attempts, email, models.DefaultMaxLoginAttempts, now)

	first := th.Check(ctx, req, email)
	if first.Allowed {
		t.Fatal("expected first check to block")
	}

	// Repeated checks while locked append synthetic records. BlockedUntil
	// must stay anchored to the original failure.
	second := th.Check(ctx, req, email)
	if second.Allowed {
		t.Fatal("expected second check to block")
	}
	if !second.BlockedUntil.Equal(*first.BlockedUntil) {
		t.Errorf("BlockedUntil moved from %v to %v; synthetic records must not extend the lock",
			first.BlockedUntil, second.BlockedUntil)
	}
}

func TestCheck_FailuresAgeOut(t *testing.T) {
	th, attempts, _ := newThrottle(t)
	ctx := testutil.TestContext(t)

	email := "aged.out@lnu.edu.ua"
	req := httptest.NewRequest("POST", "/api/login", nil)

	// All failures older than the lockout window
	old := time.Now().UTC().Add(-time.Duration(models.DefaultLockoutMinutes+5) * time.Minute)
	failTimes(t, attempts, email, models.DefaultMaxLoginAttempts+2, old)

	decision := th.Check(ctx, req, email)
	if !decision.Allowed {
		t.Error("Check() blocked on failures outside the lookback window")
	}
}

func TestCheck_ConfigurableThreshold(t *testing.T) {
	th, attempts, settings := newThrottle(t)
	ctx := testutil.TestContext(t)

	// Tighten to 2 attempts with a 30 minute lockout
	if _, err := settings.Create(ctx, models.SecuritySettings{
		MaxLoginAttempts: 2,
		LockoutMinutes:   30,
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	th.Settings().Invalidate()

	email := "tight.threshold@lnu.edu.ua"
	req := httptest.NewRequest("POST", "/api/login", nil)

	failTimes(t, attempts, email, 2, time.Now().UTC())

	decision := th.Check(ctx, req, email)
	if decision.Allowed {
		t.Fatal("Check() should block at the configured threshold of 2")
	}
	if decision.RetryAfterMinutes > 30 {
		t.Errorf("RetryAfterMinutes = %d, want <= configured 30", decision.RetryAfterMinutes)
	}

	// The lookback window tracks the configured lockout: failures 20
	// minutes old still count against a 30 minute window.
	email2 := "window.tracks@lnu.edu.ua"
	failTimes(t, attempts, email2, 2, time.Now().UTC().Add(-20*time.Minute))
	decision = th.Check(ctx, req, email2)
	if decision.Allowed {
		t.Error("Check() should still see failures inside the configured 30m window")
	}
}

func TestRecordSuccessAndFailure(t *testing.T) {
	th, attempts, _ := newThrottle(t)
	ctx := testutil.TestContext(t)

	email := "recorder@lnu.edu.ua"
	req := httptest.NewRequest("POST", "/api/login", nil)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-Forwarded-For", "203.0.113.7")

	th.RecordFailure(ctx, req, email, models.FailureInvalidCredentials)
	th.RecordSuccess(ctx, req, email)

	recent, err := attempts.GetByEmail(ctx, email, 10)
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recent))
	}
	// Newest first
	if !recent[0].Success {
		t.Error("newest record should be the success")
	}
	if recent[1].FailureReason != models.FailureInvalidCredentials {
		t.Errorf("failure reason = %q, want %q", recent[1].FailureReason, models.FailureInvalidCredentials)
	}
	if recent[0].IPAddress != "203.0.113.7" {
		t.Errorf("IPAddress = %q, want forwarded client IP", recent[0].IPAddress)
	}
	if recent[0].UserAgent != "test-agent" {
		t.Errorf("UserAgent = %q, want %q", recent[0].UserAgent, "test-agent")
	}
}

func TestSuccessDoesNotResetWindow(t *testing.T) {
	th, attempts, _ := newThrottle(t)
	ctx := testutil.TestContext(t)

	email := "no.reset@lnu.edu.ua"
	req := httptest.NewRequest("POST", "/api/login", nil)
	now := time.Now().UTC()

	// Threshold-1 failures, then a success, then one more failure:
	// lock state is derived from failures only, so this locks.
	failTimes(t, attempts, email, models.DefaultMaxLoginAttempts-1, now.Add(-time.Minute))
	th.RecordSuccess(ctx, req, email)
	th.RecordFailure(ctx, req, email, models.FailureInvalidCredentials)

	decision := th.Check(ctx, req, email)
	if decision.Allowed {
		t.Error("Check() should block; successes don't erase failures inside the window")
	}
}

func TestSettingsProvider_CacheAndInvalidate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := securitysettings.New(db)
	provider := NewSettingsProvider(store, zap.NewNop())
	ctx := testutil.TestContext(t)

	// First read caches the defaults
	got := provider.Current(ctx)
	if got.MaxLoginAttempts != models.DefaultMaxLoginAttempts {
		t.Errorf("MaxLoginAttempts = %d, want default", got.MaxLoginAttempts)
	}

	// A new record is invisible until invalidation (within the TTL)
	if _, err := store.Create(ctx, models.SecuritySettings{MaxLoginAttempts: 9}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	got = provider.Current(ctx)
	if got.MaxLoginAttempts != models.DefaultMaxLoginAttempts {
		t.Errorf("cached MaxLoginAttempts = %d, want stale default until Invalidate", got.MaxLoginAttempts)
	}

	provider.Invalidate()
	got = provider.Current(ctx)
	if got.MaxLoginAttempts != 9 {
		t.Errorf("MaxLoginAttempts after Invalidate = %d, want 9", got.MaxLoginAttempts)
	}
}
