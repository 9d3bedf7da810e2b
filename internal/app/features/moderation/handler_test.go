// internal/app/features/moderation/handler_test.go
package moderation

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	announcementstore "github.com/unihub-ua/unihub/internal/app/store/announcements"
	namechangestore "github.com/unihub-ua/unihub/internal/app/store/namechanges"
	reportstore "github.com/unihub-ua/unihub/internal/app/store/reports"
	sessionstore "github.com/unihub-ua/unihub/internal/app/store/sessions"
	userstore "github.com/unihub-ua/unihub/internal/app/store/users"
	"github.com/unihub-ua/unihub/internal/domain/models"
	"github.com/unihub-ua/unihub/internal/testutil"
)

func newHandler(db *mongo.Database) *Handler {
	announcements := announcementstore.New(db)
	return NewHandler(
		reportstore.New(db),
		namechangestore.New(db),
		userstore.New(db),
		sessionstore.New(db),
		map[models.TargetType]TargetChecker{
			models.TargetAnnouncement: announcements,
		},
		nil,
		nil,
		Config{AppName: "UniHub", ContactEmail: "support@lnu.edu.ua"},
		zap.NewNop(),
	)
}

func seedAnnouncement(t *testing.T, db *mongo.Database) primitive.ObjectID {
	t.Helper()
	mod := testutil.ModeratorUser()
	a, err := announcementstore.New(db).Create(testutil.TestContext(t), announcementstore.CreateInput{
		Title:      "Reported content",
		Body:       "<p>body</p>",
		AuthorID:   mod.UserID(),
		AuthorName: mod.Name,
		Published:  true,
	})
	if err != nil {
		t.Fatalf("seed announcement: %v", err)
	}
	return a.ID
}

func seedUser(t *testing.T, h *Handler, role, status string) *models.User {
	t.Helper()
	u, err := h.users.Create(testutil.TestContext(t), userstore.CreateInput{
		FullName:     "Seeded " + role,
		Email:        primitive.NewObjectID().Hex() + "@lnu.edu.ua",
		PasswordHash: "x",
		Role:         role,
		Status:       status,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func fileReport(h *Handler, u testutil.TestUser, targetType, targetID, reason string) *httptest.ResponseRecorder {
	body := fmt.Sprintf(`{"target_type":%q,"target_id":%q,"reason":%q}`, targetType, targetID, reason)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req = testutil.WithUser(req, u)
	rec := httptest.NewRecorder()
	h.FileReport(rec, req)
	return rec
}

func TestFileReport(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	aid := seedAnnouncement(t, db)

	rec := fileReport(h, testutil.StudentUser(), "announcement", aid.Hex(), models.ReasonSpam)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var rep models.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rep.CaseNumber == "" || rep.Status != models.ReportOpen {
		t.Errorf("report = %+v", rep)
	}
}

func TestFileReport_Rejections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	aid := seedAnnouncement(t, db)
	student := testutil.StudentUser()

	cases := []struct {
		name       string
		targetType string
		targetID   string
		reason     string
		want       int
	}{
		{"unknown reason", "announcement", aid.Hex(), "nonsense", http.StatusBadRequest},
		{"bad target type", "post", aid.Hex(), models.ReasonSpam, http.StatusBadRequest},
		{"bad target id", "announcement", "nope", models.ReasonSpam, http.StatusBadRequest},
		{"missing target", "announcement", primitive.NewObjectID().Hex(), models.ReasonSpam, http.StatusNotFound},
		{"unsupported type", "comment", primitive.NewObjectID().Hex(), models.ReasonSpam, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rec := fileReport(h, student, tc.targetType, tc.targetID, tc.reason); rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestDecideReport(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	aid := seedAnnouncement(t, db)
	mod := testutil.ModeratorUser()

	rec := fileReport(h, testutil.StudentUser(), "announcement", aid.Hex(), models.ReasonAbuse)
	var rep models.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}

	decide := func(status string) *httptest.ResponseRecorder {
		body := fmt.Sprintf(`{"status":%q,"note":"handled"}`, status)
		req := httptest.NewRequest(http.MethodPost, "/reports/"+rep.ID.Hex()+"/decide", strings.NewReader(body))
		req = testutil.WithUser(req, mod)
		req = testutil.WithURLParam(req, "id", rep.ID.Hex())
		rec := httptest.NewRecorder()
		h.DecideReport(rec, req)
		return rec
	}

	if rec := decide("upheld"); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid decision = %d, want 400", rec.Code)
	}
	rec2 := decide(models.ReportResolved)
	if rec2.Code != http.StatusOK {
		t.Fatalf("resolve = %d, body = %s", rec2.Code, rec2.Body.String())
	}
	var decided models.Report
	if err := json.Unmarshal(rec2.Body.Bytes(), &decided); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decided.Status != models.ReportResolved || decided.ResolverNote != "handled" {
		t.Errorf("decided = %+v", decided)
	}
	if rec := decide(models.ReportDismissed); rec.Code != http.StatusConflict {
		t.Errorf("second decision = %d, want 409", rec.Code)
	}
}

func TestNameChange_Lifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	ctx := testutil.TestContext(t)
	account := seedUser(t, h, models.RoleStudent, models.StatusActive)
	caller := testutil.TestUser{
		ID: account.ID.Hex(), Name: account.FullName, Email: account.Email, Role: account.Role,
	}

	request := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"new_name":"Renamed Person","reason":"marriage"}`))
		req = testutil.WithUser(req, caller)
		rec := httptest.NewRecorder()
		h.RequestNameChange(rec, req)
		return rec
	}

	rec := request()
	if rec.Code != http.StatusCreated {
		t.Fatalf("request = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created models.NameChangeRequest
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.OldName != account.FullName || created.NewName != "Renamed Person" {
		t.Errorf("request = %+v", created)
	}

	if rec := request(); rec.Code != http.StatusConflict {
		t.Errorf("duplicate pending = %d, want 409", rec.Code)
	}

	mod := testutil.ModeratorUser()
	body := fmt.Sprintf(`{"status":%q}`, models.NameChangeApproved)
	req := httptest.NewRequest(http.MethodPost, "/name-changes/"+created.ID.Hex()+"/decide", strings.NewReader(body))
	req = testutil.WithUser(req, mod)
	req = testutil.WithURLParam(req, "id", created.ID.Hex())
	rec2 := httptest.NewRecorder()
	h.DecideNameChange(rec2, req)
	if rec2.Code != http.StatusOK {
		t.Fatalf("approve = %d, body = %s", rec2.Code, rec2.Body.String())
	}

	updated, err := h.users.GetByID(ctx, account.ID)
	if err != nil || updated == nil {
		t.Fatalf("reload user: %v", err)
	}
	if updated.FullName != "Renamed Person" {
		t.Errorf("full name = %q, want applied name", updated.FullName)
	}
}

func TestDisableUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	ctx := testutil.TestContext(t)
	admin := testutil.AdminUser()
	target := seedUser(t, h, models.RoleStudent, models.StatusActive)

	if _, err := h.sessions.Create(ctx, "tok-disable", target.ID, "127.0.0.1", "test", time.Hour); err != nil {
		t.Fatalf("session: %v", err)
	}

	post := func(path string, u testutil.TestUser, id primitive.ObjectID) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req = testutil.WithUser(req, u)
		req = testutil.WithURLParam(req, "id", id.Hex())
		rec := httptest.NewRecorder()
		h.DisableUser(rec, req)
		return rec
	}

	if rec := post("/users/x/disable", admin, target.ID); rec.Code != http.StatusOK {
		t.Fatalf("disable = %d, body = %s", rec.Code, rec.Body.String())
	}
	updated, _ := h.users.GetByID(ctx, target.ID)
	if updated.Status != models.StatusDisabled {
		t.Errorf("status = %q, want disabled", updated.Status)
	}
	if s, _ := h.sessions.GetByToken(ctx, "tok-disable"); s != nil {
		t.Error("session survived disable")
	}

	// self-disable refused
	self := seedUser(t, h, models.RoleAdmin, models.StatusActive)
	selfUser := testutil.TestUser{ID: self.ID.Hex(), Name: self.FullName, Email: self.Email, Role: self.Role}
	if rec := post("/users/x/disable", selfUser, self.ID); rec.Code != http.StatusBadRequest {
		t.Errorf("self disable = %d, want 400", rec.Code)
	}
}

func TestDisableUser_LastAdminGuard(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	only := seedUser(t, h, models.RoleAdmin, models.StatusActive)
	actor := testutil.AdminUser()

	req := httptest.NewRequest(http.MethodPost, "/users/x/disable", nil)
	req = testutil.WithUser(req, actor)
	req = testutil.WithURLParam(req, "id", only.ID.Hex())
	rec := httptest.NewRecorder()
	h.DisableUser(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("disable last admin = %d, want 400", rec.Code)
	}
}

func TestChangeRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	ctx := testutil.TestContext(t)
	actor := testutil.AdminUser()

	change := func(id primitive.ObjectID, role string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/users/x/role", strings.NewReader(fmt.Sprintf(`{"role":%q}`, role)))
		req = testutil.WithUser(req, actor)
		req = testutil.WithURLParam(req, "id", id.Hex())
		rec := httptest.NewRecorder()
		h.ChangeRole(rec, req)
		return rec
	}

	student := seedUser(t, h, models.RoleStudent, models.StatusActive)
	if rec := change(student.ID, "moderator"); rec.Code != http.StatusOK {
		t.Fatalf("promote = %d, body = %s", rec.Code, rec.Body.String())
	}
	updated, _ := h.users.GetByID(ctx, student.ID)
	if updated.Role != models.RoleModerator {
		t.Errorf("role = %q, want moderator", updated.Role)
	}

	if rec := change(student.ID, "emperor"); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown role = %d, want 400", rec.Code)
	}

	// demoting the only active admin is refused
	only := seedUser(t, h, models.RoleAdmin, models.StatusActive)
	if rec := change(only.ID, "student"); rec.Code != http.StatusBadRequest {
		t.Errorf("demote last admin = %d, want 400", rec.Code)
	}

	// a second admin makes the demotion legal
	seedUser(t, h, models.RoleAdmin, models.StatusActive)
	if rec := change(only.ID, "student"); rec.Code != http.StatusOK {
		t.Errorf("demote with backup admin = %d, want 200", rec.Code)
	}
}

func TestListUsers_Filter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	seedUser(t, h, models.RoleStudent, models.StatusActive)
	seedUser(t, h, models.RoleStudent, models.StatusDisabled)
	seedUser(t, h, models.RoleModerator, models.StatusActive)

	req := httptest.NewRequest(http.MethodGet, "/users?status=active", nil)
	req = testutil.WithUser(req, testutil.AdminUser())
	rec := httptest.NewRecorder()
	h.ListUsers(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Total int64 `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("total = %d, want 2 active", resp.Total)
	}
}
