// internal/app/store/namechanges/store_test.go
package namechanges

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/unihub-ua/unihub/internal/domain/models"
	"github.com/unihub-ua/unihub/internal/testutil"
)

func TestCreate_OnePendingPerUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx := testutil.TestContext(t)

	userID := primitive.NewObjectID()
	r, err := store.Create(ctx, CreateInput{
		UserID:  userID,
		OldName: "Old Name",
		NewName: "  New Name  ",
		Reason:  "marriage",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if r.NewName != "New Name" {
		t.Errorf("new name = %q, want trimmed", r.NewName)
	}
	if r.Status != models.NameChangePending {
		t.Errorf("status = %q, want pending", r.Status)
	}

	_, err = store.Create(ctx, CreateInput{UserID: userID, OldName: "Old", NewName: "Another"})
	if !errors.Is(err, ErrPendingExists) {
		t.Errorf("second pending err = %v, want ErrPendingExists", err)
	}

	// a different user is not blocked
	if _, err := store.Create(ctx, CreateInput{
		UserID: primitive.NewObjectID(), OldName: "A", NewName: "B",
	}); err != nil {
		t.Errorf("other user Create: %v", err)
	}
}

func TestDecide_ApproveOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx := testutil.TestContext(t)

	userID := primitive.NewObjectID()
	r, err := store.Create(ctx, CreateInput{UserID: userID, OldName: "Old", NewName: "New"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	reviewer := primitive.NewObjectID()
	decided, err := store.Decide(ctx, r.ID, reviewer, models.NameChangeApproved, "ok")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if decided.Status != models.NameChangeApproved {
		t.Errorf("status = %q, want approved", decided.Status)
	}
	if decided.Reviewer == nil || *decided.Reviewer != reviewer {
		t.Errorf("reviewer = %v, want %s", decided.Reviewer, reviewer.Hex())
	}
	if decided.DecidedAt == nil {
		t.Error("expected decided_at to be set")
	}

	_, err = store.Decide(ctx, r.ID, reviewer, models.NameChangeRejected, "late")
	if !errors.Is(err, ErrAlreadyDecided) {
		t.Errorf("second decide err = %v, want ErrAlreadyDecided", err)
	}

	// a decided request no longer blocks a new one
	if _, err := store.Create(ctx, CreateInput{UserID: userID, OldName: "New", NewName: "Newer"}); err != nil {
		t.Errorf("Create after decision: %v", err)
	}
}

func TestDecide_RejectsInvalidStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx := testutil.TestContext(t)

	r, err := store.Create(ctx, CreateInput{
		UserID: primitive.NewObjectID(), OldName: "A", NewName: "B",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Decide(ctx, r.ID, primitive.NewObjectID(), "pending", ""); err == nil {
		t.Error("expected error for invalid decision status")
	}
}

func TestListPending_OldestFirst(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx := testutil.TestContext(t)

	first, err := store.Create(ctx, CreateInput{
		UserID: primitive.NewObjectID(), OldName: "A", NewName: "AA",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Create(ctx, CreateInput{
		UserID: primitive.NewObjectID(), OldName: "B", NewName: "BB",
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	pending, err := store.ListPending(ctx, 10, 1)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}
	if pending[0].ID != first.ID {
		t.Error("expected oldest request first")
	}

	n, err := store.CountPending(ctx)
	if err != nil || n != 2 {
		t.Errorf("CountPending = %d, %v, want 2", n, err)
	}
}

func TestListByUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx := testutil.TestContext(t)

	userID := primitive.NewObjectID()
	r, err := store.Create(ctx, CreateInput{UserID: userID, OldName: "A", NewName: "B"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Decide(ctx, r.ID, primitive.NewObjectID(), models.NameChangeRejected, "no"); err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if _, err := store.Create(ctx, CreateInput{UserID: userID, OldName: "A", NewName: "C"}); err != nil {
		t.Fatalf("second Create: %v", err)
	}

	list, err := store.ListByUser(ctx, userID)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("len = %d, want 2", len(list))
	}
}
