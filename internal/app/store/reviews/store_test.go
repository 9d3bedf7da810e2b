// internal/app/store/reviews/store_test.go
package reviews

import (
	"math"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/unihub-ua/unihub/internal/testutil"
)

func TestUpsert_ReplacesExisting(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx := testutil.TestContext(t)

	teacherID := primitive.NewObjectID()
	authorID := primitive.NewObjectID()

	first, err := store.Upsert(ctx, UpsertInput{
		TeacherID:  teacherID,
		AuthorID:   authorID,
		AuthorName: "Student",
		Rating:     2,
		Body:       "tough grader",
	})
	if err != nil {
		t.Fatalf("first Upsert: %v", err)
	}

	second, err := store.Upsert(ctx, UpsertInput{
		TeacherID:  teacherID,
		AuthorID:   authorID,
		AuthorName: "Student",
		Rating:     5,
		Body:       "changed my mind",
	})
	if err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("upsert created a second document: %s vs %s", second.ID.Hex(), first.ID.Hex())
	}
	if second.Rating != 5 || second.Body != "changed my mind" {
		t.Errorf("review not replaced: %+v", second)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt changed on replace")
	}

	summary, err := store.SummaryFor(ctx, teacherID)
	if err != nil {
		t.Fatalf("SummaryFor: %v", err)
	}
	if summary.Count != 1 {
		t.Errorf("count = %d, want 1 (one review per author)", summary.Count)
	}
}

func TestSummaryFor_Average(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx := testutil.TestContext(t)

	teacherID := primitive.NewObjectID()
	for _, rating := range []int{5, 4, 2} {
		if _, err := store.Upsert(ctx, UpsertInput{
			TeacherID:  teacherID,
			AuthorID:   primitive.NewObjectID(),
			AuthorName: "Student",
			Rating:     rating,
		}); err != nil {
			t.Fatalf("Upsert rating %d: %v", rating, err)
		}
	}

	summary, err := store.SummaryFor(ctx, teacherID)
	if err != nil {
		t.Fatalf("SummaryFor: %v", err)
	}
	if summary.Count != 3 {
		t.Errorf("count = %d, want 3", summary.Count)
	}
	want := (5.0 + 4.0 + 2.0) / 3.0
	if math.Abs(summary.Average-want) > 0.001 {
		t.Errorf("average = %f, want %f", summary.Average, want)
	}

	empty, err := store.SummaryFor(ctx, primitive.NewObjectID())
	if err != nil {
		t.Fatalf("SummaryFor empty: %v", err)
	}
	if empty.Count != 0 || empty.Average != 0 {
		t.Errorf("empty summary = %+v, want zeros", empty)
	}
}

func TestListByTeacher_NewestFirst(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx := testutil.TestContext(t)

	teacherID := primitive.NewObjectID()
	for i := 0; i < 3; i++ {
		if _, err := store.Upsert(ctx, UpsertInput{
			TeacherID:  teacherID,
			AuthorID:   primitive.NewObjectID(),
			AuthorName: "Student",
			Rating:     3,
		}); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	list, err := store.ListByTeacher(ctx, teacherID, 2, 1)
	if err != nil {
		t.Fatalf("ListByTeacher: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("page len = %d, want 2", len(list))
	}
	rest, err := store.ListByTeacher(ctx, teacherID, 2, 2)
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if len(rest) != 1 {
		t.Errorf("page 2 len = %d, want 1", len(rest))
	}
}

func TestGetByTeacherAndAuthor(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx := testutil.TestContext(t)

	teacherID := primitive.NewObjectID()
	authorID := primitive.NewObjectID()

	got, err := store.GetByTeacherAndAuthor(ctx, teacherID, authorID)
	if err != nil || got != nil {
		t.Fatalf("before upsert: got %+v, %v, want nil, nil", got, err)
	}

	created, err := store.Upsert(ctx, UpsertInput{
		TeacherID: teacherID, AuthorID: authorID, AuthorName: "Student", Rating: 4,
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err = store.GetByTeacherAndAuthor(ctx, teacherID, authorID)
	if err != nil || got == nil || got.ID != created.ID {
		t.Fatalf("after upsert: got %+v, %v", got, err)
	}
}

func TestDeleteByTeacher(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx := testutil.TestContext(t)

	teacherID := primitive.NewObjectID()
	for i := 0; i < 2; i++ {
		if _, err := store.Upsert(ctx, UpsertInput{
			TeacherID: teacherID, AuthorID: primitive.NewObjectID(), AuthorName: "Student", Rating: 3,
		}); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	ids, err := store.DeleteByTeacher(ctx, teacherID)
	if err != nil {
		t.Fatalf("DeleteByTeacher: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("ids = %d, want 2", len(ids))
	}
	summary, _ := store.SummaryFor(ctx, teacherID)
	if summary.Count != 0 {
		t.Errorf("count after delete = %d, want 0", summary.Count)
	}
}
