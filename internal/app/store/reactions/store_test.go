package reactions

import (
	"sync"
	"testing"

	"github.com/unihub-ua/unihub/internal/domain/models"
	"github.com/unihub-ua/unihub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestToggle_CreateRetractFlip(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx := testutil.TestContext(t)

	targetID := primitive.NewObjectID().Hex()
	userID := primitive.NewObjectID().Hex()

	// First press creates a like
	got, err := store.Toggle(ctx, models.TargetAnnouncement, targetID, userID, models.ValueLike)
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if got != models.ValueLike {
		t.Errorf("Toggle() = %d, want %d", got, models.ValueLike)
	}

	// Same press again retracts it
	got, err = store.Toggle(ctx, models.TargetAnnouncement, targetID, userID, models.ValueLike)
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if got != 0 {
		t.Errorf("Toggle() same value = %d, want 0 (retracted)", got)
	}

	reaction, err := store.Get(ctx, models.TargetAnnouncement, targetID, userID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if reaction != nil {
		t.Error("Get() after retraction should return nil")
	}

	// Like then dislike flips in place
	if _, err := store.Toggle(ctx, models.TargetAnnouncement, targetID, userID, models.ValueLike); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	got, err = store.Toggle(ctx, models.TargetAnnouncement, targetID, userID, models.ValueDislike)
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if got != models.ValueDislike {
		t.Errorf("Toggle() flip = %d, want %d", got, models.ValueDislike)
	}

	// Flipping leaves exactly one reaction behind
	counts, err := store.CountsFor(ctx, models.TargetAnnouncement, targetID, userID)
	if err != nil {
		t.Fatalf("CountsFor() error = %v", err)
	}
	if counts.Likes != 0 || counts.Dislikes != 1 {
		t.Errorf("counts after flip = %d likes / %d dislikes, want 0/1", counts.Likes, counts.Dislikes)
	}
	if counts.UserReaction != models.ValueDislike {
		t.Errorf("UserReaction = %d, want %d", counts.UserReaction, models.ValueDislike)
	}
}

func TestToggle_IndependentPerTarget(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx := testutil.TestContext(t)

	userID := primitive.NewObjectID().Hex()
	sharedID := primitive.NewObjectID().Hex()

	// Same id under different target types must not collide
	if _, err := store.Toggle(ctx, models.TargetAnnouncement, sharedID, userID, models.ValueLike); err != nil {
		t.Fatalf("Toggle(announcement) error = %v", err)
	}
	if _, err := store.Toggle(ctx, models.TargetComment, sharedID, userID, models.ValueDislike); err != nil {
		t.Fatalf("Toggle(comment) error = %v", err)
	}

	a, err := store.CountsFor(ctx, models.TargetAnnouncement, sharedID, userID)
	if err != nil {
		t.Fatalf("CountsFor() error = %v", err)
	}
	c, err := store.CountsFor(ctx, models.TargetComment, sharedID, userID)
	if err != nil {
		t.Fatalf("CountsFor() error = %v", err)
	}
	if a.Likes != 1 || a.Dislikes != 0 {
		t.Errorf("announcement counts = %d/%d, want 1/0", a.Likes, a.Dislikes)
	}
	if c.Likes != 0 || c.Dislikes != 1 {
		t.Errorf("comment counts = %d/%d, want 0/1", c.Likes, c.Dislikes)
	}
}

func TestCountsFor_ManyUsers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx := testutil.TestContext(t)

	targetID := primitive.NewObjectID().Hex()

	for i := 0; i < 3; i++ {
		if _, err := store.Toggle(ctx, models.TargetTeacher, targetID, primitive.NewObjectID().Hex(), models.ValueLike); err != nil {
			t.Fatalf("Toggle() error = %v", err)
		}
	}
	for i := 0; i < 2; i++ {
		if _, err := store.Toggle(ctx, models.TargetTeacher, targetID, primitive.NewObjectID().Hex(), models.ValueDislike); err != nil {
			t.Fatalf("Toggle() error = %v", err)
		}
	}

	counts, err := store.CountsFor(ctx, models.TargetTeacher, targetID, "")
	if err != nil {
		t.Fatalf("CountsFor() error = %v", err)
	}
	if counts.Likes != 3 {
		t.Errorf("Likes = %d, want 3", counts.Likes)
	}
	if counts.Dislikes != 2 {
		t.Errorf("Dislikes = %d, want 2", counts.Dislikes)
	}
	if counts.Score != 1 {
		t.Errorf("Score = %d, want 1", counts.Score)
	}
	// Anonymous readers have no own vote
	if counts.UserReaction != 0 {
		t.Errorf("UserReaction = %d, want 0", counts.UserReaction)
	}
}

func TestCountsFor_EmptyTarget(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx := testutil.TestContext(t)

	counts, err := store.CountsFor(ctx, models.TargetReview, primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex())
	if err != nil {
		t.Fatalf("CountsFor() error = %v", err)
	}
	if counts.Likes != 0 || counts.Dislikes != 0 || counts.Score != 0 || counts.UserReaction != 0 {
		t.Errorf("counts for untouched target = %+v, want all zero", counts)
	}
}

func TestToggle_ConcurrentSameUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx := testutil.TestContext(t)

	targetID := primitive.NewObjectID().Hex()
	userID := primitive.NewObjectID().Hex()

	// Racing first presses must converge to at most one stored reaction,
	// never a duplicate pair.
	const racers = 8
	var wg sync.WaitGroup
	errs := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Toggle(ctx, models.TargetComment, targetID, userID, models.ValueLike); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Toggle() error = %v", err)
	}

	counts, err := store.CountsFor(ctx, models.TargetComment, targetID, "")
	if err != nil {
		t.Fatalf("CountsFor() error = %v", err)
	}
	if counts.Likes > 1 {
		t.Errorf("Likes = %d after concurrent toggles of one user, want <= 1", counts.Likes)
	}
}

func TestCountsForMany(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx := testutil.TestContext(t)

	userID := primitive.NewObjectID().Hex()
	target1 := primitive.NewObjectID().Hex()
	target2 := primitive.NewObjectID().Hex()
	target3 := primitive.NewObjectID().Hex() // no reactions

	if _, err := store.Toggle(ctx, models.TargetAnnouncement, target1, userID, models.ValueLike); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if _, err := store.Toggle(ctx, models.TargetAnnouncement, target2, primitive.NewObjectID().Hex(), models.ValueDislike); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}

	batch, err := store.CountsForMany(ctx, models.TargetAnnouncement, []string{target1, target2, target3}, userID)
	if err != nil {
		t.Fatalf("CountsForMany() error = %v", err)
	}

	if batch[target1].Likes != 1 || batch[target1].UserReaction != models.ValueLike {
		t.Errorf("target1 = %+v, want 1 like with own reaction", batch[target1])
	}
	if batch[target2].Dislikes != 1 || batch[target2].UserReaction != 0 {
		t.Errorf("target2 = %+v, want 1 dislike and no own reaction", batch[target2])
	}
	if batch[target3].Likes != 0 || batch[target3].Dislikes != 0 {
		t.Errorf("target3 = %+v, want zero counts", batch[target3])
	}
}

func TestDeleteForTarget(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx := testutil.TestContext(t)

	targetID := primitive.NewObjectID().Hex()
	for i := 0; i < 4; i++ {
		if _, err := store.Toggle(ctx, models.TargetComment, targetID, primitive.NewObjectID().Hex(), models.ValueLike); err != nil {
			t.Fatalf("Toggle() error = %v", err)
		}
	}

	deleted, err := store.DeleteForTarget(ctx, models.TargetComment, targetID)
	if err != nil {
		t.Fatalf("DeleteForTarget() error = %v", err)
	}
	if deleted != 4 {
		t.Errorf("DeleteForTarget() = %d, want 4", deleted)
	}

	counts, err := store.CountsFor(ctx, models.TargetComment, targetID, "")
	if err != nil {
		t.Fatalf("CountsFor() error = %v", err)
	}
	if counts.Likes != 0 {
		t.Errorf("Likes after delete = %d, want 0", counts.Likes)
	}
}
