// internal/app/store/sessions/store_test.go
package sessions

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/unihub-ua/unihub/internal/testutil"
)

func TestCreateAndGetByToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx := testutil.TestContext(t)

	userID := primitive.NewObjectID()
	rec, err := store.Create(ctx, "tok-1", userID, "203.0.113.9", "test-agent", time.Hour)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.ExpiresAt.Before(rec.CreatedAt) {
		t.Error("expires before created")
	}

	got, err := store.GetByToken(ctx, "tok-1")
	if err != nil || got == nil {
		t.Fatalf("GetByToken: %+v, %v", got, err)
	}
	if got.UserID != userID {
		t.Errorf("user = %s, want %s", got.UserID.Hex(), userID.Hex())
	}

	missing, err := store.GetByToken(ctx, "unknown")
	if err != nil || missing != nil {
		t.Errorf("unknown token: %+v, %v, want nil, nil", missing, err)
	}
}

func TestGetByToken_ExpiredHidden(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx := testutil.TestContext(t)

	if _, err := store.Create(ctx, "tok-old", primitive.NewObjectID(), "", "", -time.Minute); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := store.GetByToken(ctx, "tok-old")
	if err != nil {
		t.Fatalf("GetByToken: %v", err)
	}
	if got != nil {
		t.Errorf("expired session returned: %+v", got)
	}

	n, err := store.DeleteExpired(ctx)
	if err != nil || n != 1 {
		t.Errorf("DeleteExpired = %d, %v, want 1", n, err)
	}
}

func TestTouch_ExtendsExpiry(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx := testutil.TestContext(t)

	rec, err := store.Create(ctx, "tok-touch", primitive.NewObjectID(), "", "", time.Minute)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Touch(ctx, "tok-touch", 2*time.Hour); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	got, _ := store.GetByToken(ctx, "tok-touch")
	if !got.ExpiresAt.After(rec.ExpiresAt.Add(time.Hour)) {
		t.Errorf("expiry not extended: %v -> %v", rec.ExpiresAt, got.ExpiresAt)
	}
}

func TestDeleteForUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx := testutil.TestContext(t)

	userID := primitive.NewObjectID()
	for _, tok := range []string{"a", "b"} {
		if _, err := store.Create(ctx, tok, userID, "", "", time.Hour); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if _, err := store.Create(ctx, "c", primitive.NewObjectID(), "", "", time.Hour); err != nil {
		t.Fatalf("Create: %v", err)
	}

	n, err := store.DeleteForUser(ctx, userID)
	if err != nil || n != 2 {
		t.Fatalf("DeleteForUser = %d, %v, want 2", n, err)
	}
	other, _ := store.GetByToken(ctx, "c")
	if other == nil {
		t.Error("other user's session should survive")
	}
}
