// internal/app/features/login/handler_test.go
package login

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

	"github.com/unihub-ua/unihub/internal/app/store/loginattempts"
	"github.com/unihub-ua/unihub/internal/app/store/securitysettings"
	sessionstore "github.com/unihub-ua/unihub/internal/app/store/sessions"
	"github.com/unihub-ua/unihub/internal/app/store/users"
	"github.com/unihub-ua/unihub/internal/app/system/authutil"
	"github.com/unihub-ua/unihub/internal/app/system/throttle"
	"github.com/unihub-ua/unihub/internal/domain/models"
	"github.com/unihub-ua/unihub/internal/testutil"
)

func newHandler(t *testing.T, db *mongo.Database) (*Handler, *users.Store) {
	t.Helper()
	sm := testutil.NewTestSessionManager(t)
	thr := throttle.New(
		loginattempts.New(db),
		throttle.NewSettingsProvider(securitysettings.New(db), zap.NewNop()),
		zap.NewNop(),
	)
	userStore := users.New(db)
	h := NewHandler(userStore, sessionstore.New(db), sm, thr, nil, zap.NewNop())
	return h, userStore
}

func activeUser(t *testing.T, store *users.Store, email, password string) *models.User {
	t.Helper()
	ctx := testutil.TestContext(t)
	hash, err := authutil.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	u, err := store.Create(ctx, users.CreateInput{
		FullName:     "Test User",
		Email:        email,
		PasswordHash: hash,
		Status:       models.StatusActive,
	})
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}
	return u
}

func loginRec(h *Handler, email, password string) *httptest.ResponseRecorder {
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.RemoteAddr = "203.0.113.7:4000"
	rec := httptest.NewRecorder()
	h.Login(rec, req)
	return rec
}

func TestLogin_Success(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h, userStore := newHandler(t, db)
	activeUser(t, userStore, "ok@lnu.edu.ua", "long enough pass")

	rec := loginRec(h, "OK@lnu.edu.ua", "long enough pass")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		OK   bool `json:"ok"`
		User struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.OK || resp.User.Email != "ok@lnu.edu.ua" || resp.User.Role != models.RoleStudent {
		t.Errorf("response = %+v", resp)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Error("expected a session cookie")
	}

	// session record persisted
	n, err := sessionstore.New(db).DeleteForUser(testutil.TestContext(t), mustGetUser(t, userStore, "ok@lnu.edu.ua").ID)
	if err != nil || n != 1 {
		t.Errorf("session records = %d, %v, want 1", n, err)
	}
}

func mustGetUser(t *testing.T, store *users.Store, email string) *models.User {
	t.Helper()
	u, err := store.GetByEmail(testutil.TestContext(t), email)
	if err != nil || u == nil {
		t.Fatalf("GetByEmail: %v %v", u, err)
	}
	return u
}

func TestLogin_WrongPassword(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h, userStore := newHandler(t, db)
	activeUser(t, userStore, "wp@lnu.edu.ua", "long enough pass")

	rec := loginRec(h, "wp@lnu.edu.ua", "not the password")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	// attempt recorded in the ledger
	n, err := loginattempts.New(db).CountRecentFailures(
		testutil.TestContext(t), "wp@lnu.edu.ua", time.Now().Add(-time.Minute))
	if err != nil || n != 1 {
		t.Errorf("recorded failures = %d, %v, want 1", n, err)
	}
}

func TestLogin_UnknownEmailIsGeneric(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h, _ := newHandler(t, db)

	rec := loginRec(h, "ghost@lnu.edu.ua", "whatever pass")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if strings.Contains(strings.ToLower(rec.Body.String()), "not found") {
		t.Error("response reveals the account does not exist")
	}
}

func TestLogin_LockoutAfterRepeatedFailures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h, userStore := newHandler(t, db)
	activeUser(t, userStore, "locked@lnu.edu.ua", "long enough pass")

	for i := 0; i < models.DefaultMaxLoginAttempts; i++ {
		if rec := loginRec(h, "locked@lnu.edu.ua", "wrong pass"); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d", i, rec.Code)
		}
	}

	rec := loginRec(h, "locked@lnu.edu.ua", "long enough pass")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
	var resp struct {
		RetryAfter int `json:"retry_after"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.RetryAfter <= 0 {
		t.Errorf("retry_after = %d, want > 0", resp.RetryAfter)
	}
}

func TestLogin_DisabledAndPending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h, userStore := newHandler(t, db)
	ctx := testutil.TestContext(t)

	hash, _ := authutil.HashPassword("long enough pass")
	if _, err := userStore.Create(ctx, users.CreateInput{
		FullName: "Disabled", Email: "dis@lnu.edu.ua", PasswordHash: hash,
		Status: models.StatusDisabled,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := userStore.Create(ctx, users.CreateInput{
		FullName: "Pending", Email: "pend@lnu.edu.ua", PasswordHash: hash,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if rec := loginRec(h, "dis@lnu.edu.ua", "long enough pass"); rec.Code != http.StatusForbidden {
		t.Errorf("disabled status = %d, want 403", rec.Code)
	}
	rec := loginRec(h, "pend@lnu.edu.ua", "long enough pass")
	if rec.Code != http.StatusForbidden {
		t.Errorf("pending status = %d, want 403", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "confirm") {
		t.Errorf("pending message should mention confirmation: %s", rec.Body.String())
	}
}

func TestLogin_BadPayloads(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h, _ := newHandler(t, db)

	for _, body := range []string{`{`, `{"email":"","password":""}`, `{"email":"a@lnu.edu.ua"}`} {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.Login(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestLogout(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h, userStore := newHandler(t, db)
	activeUser(t, userStore, "out@lnu.edu.ua", "long enough pass")

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req = testutil.WithUser(req, testutil.StudentUser())
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
