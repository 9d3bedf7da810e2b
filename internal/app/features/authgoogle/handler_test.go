package authgoogle

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"go.uber.org/zap"

	loginattemptstore "github.com/unihub-ua/unihub/internal/app/store/loginattempts"
	oauthstatestore "github.com/unihub-ua/unihub/internal/app/store/oauthstate"
	settingstore "github.com/unihub-ua/unihub/internal/app/store/securitysettings"
	sessionstore "github.com/unihub-ua/unihub/internal/app/store/sessions"
	userstore "github.com/unihub-ua/unihub/internal/app/store/users"
	"github.com/unihub-ua/unihub/internal/app/system/throttle"
	"github.com/unihub-ua/unihub/internal/testutil"
)

func newHandler(t *testing.T) (*Handler, *oauthstatestore.Store) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	states := oauthstatestore.New(db)
	provider := throttle.NewSettingsProvider(settingstore.New(db), logger)
	thr := throttle.New(loginattemptstore.New(db), provider, logger)

	h := NewHandler(
		userstore.New(db),
		sessionstore.New(db),
		states,
		testutil.NewTestSessionManager(t),
		thr,
		nil,
		Config{
			ClientID:       "test-client-id",
			ClientSecret:   "test-client-secret",
			BaseURL:        "http://localhost:8080",
			AllowedDomains: []string{"lnu.edu.ua"},
		},
		logger,
	)
	return h, states
}

func TestStart_RedirectsToGoogleWithState(t *testing.T) {
	h, states := newHandler(t)
	ctx := testutil.TestContext(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/google?redirect=/announcements", nil)
	rec := httptest.NewRecorder()
	h.Start(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTemporaryRedirect)
	}
	location := rec.Header().Get("Location")
	if !strings.Contains(location, "accounts.google.com") {
		t.Errorf("Location = %q, want Google authorization URL", location)
	}
	if !strings.Contains(location, "state=") {
		t.Fatalf("Location = %q, want a state parameter", location)
	}

	u, err := url.Parse(location)
	if err != nil {
		t.Fatalf("parse redirect URL: %v", err)
	}
	state := u.Query().Get("state")
	if state == "" {
		t.Fatal("state parameter is empty")
	}

	stored, err := states.Consume(ctx, state)
	if err != nil {
		t.Fatalf("Consume() error: %v", err)
	}
	if stored == nil {
		t.Fatal("issued state was not stored")
	}
	if stored.Redirect != "/announcements" {
		t.Errorf("Redirect = %q, want %q", stored.Redirect, "/announcements")
	}
}

func TestCallback_UnknownState(t *testing.T) {
	h, _ := newHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=forged&code=abc", nil)
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if location := rec.Header().Get("Location"); !strings.Contains(location, "invalid_state") {
		t.Errorf("Location = %q, want invalid_state error", location)
	}
}

func TestCallback_StateIsSingleUse(t *testing.T) {
	h, states := newHandler(t)
	ctx := testutil.TestContext(t)

	state, err := states.Issue(ctx, "")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	// First use consumes the state; the provider error short-circuits the
	// rest of the flow.
	req := httptest.NewRequest(http.MethodGet,
		"/auth/google/callback?state="+state+"&error=access_denied", nil)
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if location := rec.Header().Get("Location"); !strings.Contains(location, "access_denied") {
		t.Errorf("Location = %q, want access_denied error", location)
	}

	// Replaying the same state must be rejected.
	rec = httptest.NewRecorder()
	h.Callback(rec, req)

	if location := rec.Header().Get("Location"); !strings.Contains(location, "invalid_state") {
		t.Errorf("replay Location = %q, want invalid_state error", location)
	}
}

func TestCallback_ProviderError(t *testing.T) {
	h, states := newHandler(t)
	ctx := testutil.TestContext(t)

	state, err := states.Issue(ctx, "")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet,
		"/auth/google/callback?state="+state+"&error=access_denied", nil)
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if location := rec.Header().Get("Location"); !strings.Contains(location, "access_denied") {
		t.Errorf("Location = %q, want access_denied error", location)
	}
}

func TestRoutes(t *testing.T) {
	h, _ := newHandler(t)
	if Routes(h) == nil {
		t.Fatal("Routes() returned nil")
	}
}
