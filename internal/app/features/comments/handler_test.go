// internal/app/features/comments/handler_test.go
package comments

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	announcementstore "github.com/unihub-ua/unihub/internal/app/store/announcements"
	commentstore "github.com/unihub-ua/unihub/internal/app/store/comments"
	reactionstore "github.com/unihub-ua/unihub/internal/app/store/reactions"
	"github.com/unihub-ua/unihub/internal/domain/models"
	"github.com/unihub-ua/unihub/internal/testutil"
)

func newHandler(db *mongo.Database) *Handler {
	return NewHandler(
		commentstore.New(db),
		announcementstore.New(db),
		reactionstore.New(db),
		nil,
		zap.NewNop(),
	)
}

func seedAnnouncement(t *testing.T, h *Handler, published bool) primitive.ObjectID {
	t.Helper()
	mod := testutil.ModeratorUser()
	a, err := h.announcements.Create(testutil.TestContext(t), announcementstore.CreateInput{
		Title:      "Host announcement",
		Body:       "<p>body</p>",
		AuthorID:   mod.UserID(),
		AuthorName: mod.Name,
		Published:  published,
	})
	if err != nil {
		t.Fatalf("seed announcement: %v", err)
	}
	return a.ID
}

func seedComment(t *testing.T, h *Handler, announcementID primitive.ObjectID, author testutil.TestUser, body string) *models.Comment {
	t.Helper()
	c, err := h.store.Create(testutil.TestContext(t), commentstore.CreateInput{
		AnnouncementID: announcementID,
		AuthorID:       author.UserID(),
		AuthorName:     author.Name,
		Body:           body,
	})
	if err != nil {
		t.Fatalf("seed comment: %v", err)
	}
	return c
}

func TestCreate_SanitizesAndRecordsAuthor(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	aid := seedAnnouncement(t, h, true)
	student := testutil.StudentUser()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"body":"hello <b>there</b><div>block</div>"}`))
	req = testutil.WithUser(req, student)
	req = testutil.WithURLParam(req, "id", aid.Hex())
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var c models.Comment
	if err := json.Unmarshal(rec.Body.Bytes(), &c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if strings.Contains(c.Body, "<div>") {
		t.Errorf("block markup survived: %q", c.Body)
	}
	if !strings.Contains(c.Body, "<b>there</b>") {
		t.Errorf("inline markup lost: %q", c.Body)
	}
	if c.AuthorName != student.Name {
		t.Errorf("author name = %q, want %q", c.AuthorName, student.Name)
	}
}

func TestCreate_UnpublishedAnnouncement(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	aid := seedAnnouncement(t, h, false)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"body":"hi"}`))
	req = testutil.WithUser(req, testutil.StudentUser())
	req = testutil.WithURLParam(req, "id", aid.Hex())
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for draft announcement", rec.Code)
	}
}

func TestList_OrderAndReactionCounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	ctx := testutil.TestContext(t)
	aid := seedAnnouncement(t, h, true)
	student := testutil.StudentUser()

	first := seedComment(t, h, aid, student, "first")
	seedComment(t, h, aid, testutil.ModeratorUser(), "second")
	if _, err := h.reactions.Toggle(ctx, models.TargetComment, first.ID.Hex(), student.ID, 1); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = testutil.WithUser(req, student)
	req = testutil.WithURLParam(req, "id", aid.Hex())
	rec := httptest.NewRecorder()
	h.List(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Items []commentResponse `json:"items"`
		Total int64             `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 2 || len(resp.Items) != 2 {
		t.Fatalf("total = %d, items = %d", resp.Total, len(resp.Items))
	}
	if resp.Items[0].Body != "first" {
		t.Errorf("first item = %q, want oldest first", resp.Items[0].Body)
	}
	if resp.Items[0].Reactions == nil || resp.Items[0].Reactions.Likes != 1 || resp.Items[0].Reactions.UserReaction != 1 {
		t.Errorf("reactions = %+v", resp.Items[0].Reactions)
	}
}

func TestUpdate_AuthorOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	aid := seedAnnouncement(t, h, true)
	author := testutil.StudentUser()
	c := seedComment(t, h, aid, author, "original")

	patch := func(u testutil.TestUser) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch, "/"+c.ID.Hex(), strings.NewReader(`{"body":"edited"}`))
		req = testutil.WithUser(req, u)
		req = testutil.WithURLParam(req, "commentID", c.ID.Hex())
		rec := httptest.NewRecorder()
		h.Update(rec, req)
		return rec
	}

	if rec := patch(testutil.StudentUser()); rec.Code != http.StatusForbidden {
		t.Errorf("other user edit = %d, want 403", rec.Code)
	}
	rec := patch(author)
	if rec.Code != http.StatusOK {
		t.Fatalf("author edit = %d, body = %s", rec.Code, rec.Body.String())
	}
	var out models.Comment
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Body != "edited" {
		t.Errorf("body = %q, want edited", out.Body)
	}
}

func TestDelete_AuthorAndModerator(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	ctx := testutil.TestContext(t)
	aid := seedAnnouncement(t, h, true)
	author := testutil.StudentUser()

	del := func(id primitive.ObjectID, u testutil.TestUser) int {
		req := httptest.NewRequest(http.MethodDelete, "/"+id.Hex(), nil)
		req = testutil.WithUser(req, u)
		req = testutil.WithURLParam(req, "commentID", id.Hex())
		rec := httptest.NewRecorder()
		h.Delete(rec, req)
		return rec.Code
	}

	own := seedComment(t, h, aid, author, "mine")
	if _, err := h.reactions.Toggle(ctx, models.TargetComment, own.ID.Hex(), author.ID, 1); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if code := del(own.ID, testutil.StudentUser()); code != http.StatusForbidden {
		t.Errorf("stranger delete = %d, want 403", code)
	}
	if code := del(own.ID, author); code != http.StatusOK {
		t.Errorf("author delete = %d, want 200", code)
	}
	counts, err := h.reactions.CountsFor(ctx, models.TargetComment, own.ID.Hex(), "")
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts.Likes != 0 {
		t.Errorf("reactions survived delete: %+v", counts)
	}

	other := seedComment(t, h, aid, author, "reported")
	if code := del(other.ID, testutil.ModeratorUser()); code != http.StatusOK {
		t.Errorf("moderator delete = %d, want 200", code)
	}
	if code := del(other.ID, testutil.ModeratorUser()); code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", code)
	}
}
