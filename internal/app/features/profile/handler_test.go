// internal/app/features/profile/handler_test.go
package profile

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	sessionstore "github.com/unihub-ua/unihub/internal/app/store/sessions"
	userstore "github.com/unihub-ua/unihub/internal/app/store/users"
	"github.com/unihub-ua/unihub/internal/app/system/auth"
	"github.com/unihub-ua/unihub/internal/app/system/authutil"
	"github.com/unihub-ua/unihub/internal/domain/models"
	"github.com/unihub-ua/unihub/internal/testutil"
)

func newHandler(db *mongo.Database) *Handler {
	return NewHandler(
		userstore.New(db),
		sessionstore.New(db),
		nil,
		nil,
		Config{AppName: "UniHub", BaseURL: "https://unihub.lnu.edu.ua"},
		zap.NewNop(),
	)
}

func seedAccount(t *testing.T, h *Handler, password string) *models.User {
	t.Helper()
	hash, err := authutil.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	u, err := h.users.Create(testutil.TestContext(t), userstore.CreateInput{
		FullName:     "Profile Owner",
		Email:        "owner@lnu.edu.ua",
		PasswordHash: hash,
		Status:       models.StatusActive,
		Faculty:      "Physics",
		Course:       2,
	})
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}
	return u
}

func asUser(req *http.Request, u *models.User, token string) *http.Request {
	return auth.WithTestUser(req, &auth.SessionUser{
		ID:    u.ID.Hex(),
		Name:  u.FullName,
		Email: u.Email,
		Role:  u.Role,
		Token: token,
	})
}

func TestMe(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	account := seedAccount(t, h, "long enough pass")

	req := asUser(httptest.NewRequest(http.MethodGet, "/", nil), account, "")
	rec := httptest.NewRecorder()
	h.Me(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp meResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Email != "owner@lnu.edu.ua" || resp.Faculty != "Physics" || resp.Course != 2 {
		t.Errorf("response = %+v", resp)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("response leaks password material")
	}
}

func TestUpdate_FacultyAndCourse(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	account := seedAccount(t, h, "long enough pass")

	req := asUser(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"course":3}`)), account, "")
	rec := httptest.NewRecorder()
	h.Update(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp meResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Course != 3 || resp.Faculty != "Physics" {
		t.Errorf("response = %+v, want course updated and faculty kept", resp)
	}

	req = asUser(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"course":9}`)), account, "")
	rec = httptest.NewRecorder()
	h.Update(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("course 9 status = %d, want 400", rec.Code)
	}
}

func TestChangePassword(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	ctx := testutil.TestContext(t)
	account := seedAccount(t, h, "old password 1")

	if _, err := h.sessions.Create(ctx, "tok-current", account.ID, "127.0.0.1", "test", time.Hour); err != nil {
		t.Fatalf("session: %v", err)
	}
	if _, err := h.sessions.Create(ctx, "tok-other", account.ID, "10.0.0.1", "other", time.Hour); err != nil {
		t.Fatalf("session: %v", err)
	}

	change := func(current, next string) *httptest.ResponseRecorder {
		body := fmt.Sprintf(`{"current_password":%q,"new_password":%q}`, current, next)
		req := asUser(httptest.NewRequest(http.MethodPost, "/password", strings.NewReader(body)), account, "tok-current")
		rec := httptest.NewRecorder()
		h.ChangePassword(rec, req)
		return rec
	}

	if rec := change("wrong", "brand new pass 9"); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong current = %d, want 401", rec.Code)
	}
	if rec := change("old password 1", "short"); rec.Code != http.StatusBadRequest {
		t.Errorf("weak new = %d, want 400", rec.Code)
	}

	rec := change("old password 1", "brand new pass 9")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	updated, _ := h.users.GetByID(ctx, account.ID)
	if !authutil.CheckPassword("brand new pass 9", updated.PasswordHash) {
		t.Error("new password does not verify")
	}
	if authutil.CheckPassword("old password 1", updated.PasswordHash) {
		t.Error("old password still verifies")
	}

	if s, _ := h.sessions.GetByToken(ctx, "tok-other"); s != nil {
		t.Error("other session survived password change")
	}
	if s, _ := h.sessions.GetByToken(ctx, "tok-current"); s == nil {
		t.Error("current session was dropped")
	}
}
