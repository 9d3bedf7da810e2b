package loginattempts

import (
	"testing"
	"time"

	"github.com/unihub-ua/unihub/internal/domain/models"
	"github.com/unihub-ua/unihub/internal/testutil"
)

func TestCreate_DefaultsAndNormalization(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx := testutil.TestContext(t)

	err := store.Create(ctx, models.LoginAttempt{
		Email:   "  Taras.Kovalenko@LNU.edu.ua ",
		Success: true,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	attempts, err := store.GetByEmail(ctx, "taras.kovalenko@lnu.edu.ua", 10)
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if len(attempts) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(attempts))
	}
	if attempts[0].Email != "taras.kovalenko@lnu.edu.ua" {
		t.Errorf("Email = %q, not normalized", attempts[0].Email)
	}
	if attempts[0].AttemptTime.IsZero() {
		t.Error("AttemptTime should have been defaulted")
	}
}

func TestCountRecentFailures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx := testutil.TestContext(t)

	email := "ivan.franko@lnu.edu.ua"
	now := time.Now().UTC()

	// Three failures inside the window
	for i := 0; i < 3; i++ {
		if err := store.Create(ctx, models.LoginAttempt{
			Email:         email,
			Success:       false,
			FailureReason: models.FailureInvalidCredentials,
			AttemptTime:   now.Add(-time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	// One failure outside the window
	if err := store.Create(ctx, models.LoginAttempt{
		Email:         email,
		Success:       false,
		FailureReason: models.FailureInvalidCredentials,
		AttemptTime:   now.Add(-2 * time.Hour),
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	// A success does not count
	if err := store.Create(ctx, models.LoginAttempt{
		Email:       email,
		Success:     true,
		AttemptTime: now,
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	// A synthetic lockout record does not count either
	if err := store.Create(ctx, models.LoginAttempt{
		Email:         email,
		Success:       false,
		FailureReason: models.FailureAccountLocked,
		IsBlocked:     true,
		AttemptTime:   now,
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	count, err := store.CountRecentFailures(ctx, email, now.Add(-15*time.Minute))
	if err != nil {
		t.Fatalf("CountRecentFailures() error = %v", err)
	}
	if count != 3 {
		t.Errorf("CountRecentFailures() = %d, want 3", count)
	}

	// Other accounts are unaffected
	count, err = store.CountRecentFailures(ctx, "someone.else@lnu.edu.ua", now.Add(-15*time.Minute))
	if err != nil {
		t.Fatalf("CountRecentFailures() error = %v", err)
	}
	if count != 0 {
		t.Errorf("CountRecentFailures() other account = %d, want 0", count)
	}
}

func TestLastFailure(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx := testutil.TestContext(t)

	email := "lesya.ukrainka@lnu.edu.ua"
	now := time.Now().UTC()

	last, err := store.LastFailure(ctx, email, now.Add(-15*time.Minute))
	if err != nil {
		t.Fatalf("LastFailure() error = %v", err)
	}
	if last != nil {
		t.Error("LastFailure() with no records should return nil")
	}

	older := now.Add(-10 * time.Minute)
	newer := now.Add(-2 * time.Minute)
	for _, at := range []time.Time{older, newer} {
		if err := store.Create(ctx, models.LoginAttempt{
			Email:         email,
			Success:       false,
			FailureReason: models.FailureInvalidCredentials,
			AttemptTime:   at,
		}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	// Synthetic record newer than both must be skipped
	if err := store.Create(ctx, models.LoginAttempt{
		Email:         email,
		Success:       false,
		FailureReason: models.FailureAccountLocked,
		IsBlocked:     true,
		AttemptTime:   now,
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	last, err = store.LastFailure(ctx, email, now.Add(-15*time.Minute))
	if err != nil {
		t.Fatalf("LastFailure() error = %v", err)
	}
	if last == nil {
		t.Fatal("LastFailure() returned nil")
	}
	if !last.AttemptTime.Truncate(time.Millisecond).Equal(newer.Truncate(time.Millisecond)) {
		t.Errorf("LastFailure() AttemptTime = %v, want %v", last.AttemptTime, newer)
	}
}

func TestDeleteOlderThan(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx := testutil.TestContext(t)

	email := "retention@lnu.edu.ua"
	now := time.Now().UTC()

	for _, at := range []time.Time{
		now.Add(-40 * 24 * time.Hour),
		now.Add(-35 * 24 * time.Hour),
		now.Add(-1 * time.Hour),
	} {
		if err := store.Create(ctx, models.LoginAttempt{
			Email:       email,
			Success:     false,
			AttemptTime: at,
		}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	deleted, err := store.DeleteOlderThan(ctx, now.Add(-30*24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan() error = %v", err)
	}
	if deleted != 2 {
		t.Errorf("DeleteOlderThan() = %d, want 2", deleted)
	}

	remaining, err := store.GetByEmail(ctx, email, 10)
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if len(remaining) != 1 {
		t.Errorf("remaining attempts = %d, want 1", len(remaining))
	}
}
