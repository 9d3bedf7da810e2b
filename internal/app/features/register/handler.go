// Package register provides account registration and email verification.
//
// Endpoints (mounted at /api/register):
//   - POST /        - create a pending account and send a verification link
//   - POST /verify  - confirm an email verification token
//
// Only institutional email addresses from the configured domains may
// register. Accounts stay pending until the address is confirmed.
package register

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/unihub-ua/unihub/internal/app/store/emailverify"
	"github.com/unihub-ua/unihub/internal/app/store/users"
	"github.com/unihub-ua/unihub/internal/app/system/auditlog"
	"github.com/unihub-ua/unihub/internal/app/system/authutil"
	"github.com/unihub-ua/unihub/internal/app/system/inputval"
	"github.com/unihub-ua/unihub/internal/app/system/jsonutil"
	"github.com/unihub-ua/unihub/internal/app/system/mailer"
	"github.com/unihub-ua/unihub/internal/app/system/normalize"
)

// Config holds registration settings.
type Config struct {
	AppName        string
	BaseURL        string   // public base URL for verification links
	AllowedDomains []string // institutional email domains, e.g. ["lnu.edu.ua"]
}

// Handler handles registration requests.
type Handler struct {
	users  *users.Store
	verify *emailverify.Store
	mail   *mailer.Mailer
	audit  *auditlog.Logger
	cfg    Config
	logger *zap.Logger
}

// NewHandler creates a registration handler. mail may be nil, in which case
// verification emails are skipped (development setups).
func NewHandler(userStore *users.Store, verifyStore *emailverify.Store, mail *mailer.Mailer, audit *auditlog.Logger, cfg Config, logger *zap.Logger) *Handler {
	return &Handler{
		users:  userStore,
		verify: verifyStore,
		mail:   mail,
		audit:  audit,
		cfg:    cfg,
		logger: logger,
	}
}

type registerRequest struct {
	FullName string `json:"full_name" validate:"required,min=2,max=120" label:"Full name"`
	Email    string `json:"email" validate:"required" label:"Email"`
	Password string `json:"password" validate:"required" label:"Password"`
	Faculty  string `json:"faculty" validate:"max=120" label:"Faculty"`
	Course   int    `json:"course" label:"Course"`
}

// Register handles POST /register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}
	if res := inputval.Validate(&in); res.HasErrors() {
		jsonutil.BadRequest(w, res.First())
		return
	}

	email := normalize.Email(in.Email)
	if !inputval.IsValidEmail(email) {
		jsonutil.BadRequest(w, "Invalid email address")
		return
	}
	if !inputval.IsInstitutionalEmail(email, h.cfg.AllowedDomains) {
		jsonutil.BadRequest(w, "Registration requires a university email address ("+strings.Join(h.cfg.AllowedDomains, ", ")+")")
		return
	}
	if err := authutil.ValidatePassword(in.Password); err != nil {
		jsonutil.BadRequest(w, err.Error())
		return
	}
	if in.Course < 0 || in.Course > 6 {
		jsonutil.BadRequest(w, "Course must be between 1 and 6")
		return
	}

	hash, err := authutil.HashPassword(in.Password)
	if err != nil {
		h.logger.Error("failed to hash password", zap.Error(err))
		jsonutil.InternalError(w, "Registration failed")
		return
	}

	user, err := h.users.Create(r.Context(), users.CreateInput{
		FullName:     in.FullName,
		Email:        email,
		PasswordHash: hash,
		Faculty:      in.Faculty,
		Course:       in.Course,
	})
	if err == users.ErrDuplicateEmail {
		// Same response shape as success so the endpoint does not reveal
		// which addresses are registered.
		jsonutil.OK(w, map[string]any{
			"ok":      true,
			"message": "If this address is new, a verification email has been sent.",
		})
		return
	}
	if err != nil {
		h.logger.Error("failed to create user", zap.Error(err))
		jsonutil.InternalError(w, "Registration failed")
		return
	}

	rec, err := h.verify.Issue(r.Context(), user.ID, user.Email)
	if err != nil {
		h.logger.Error("failed to issue verification token",
			zap.String("user_id", user.ID.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "Registration failed")
		return
	}

	if h.mail != nil {
		verifyURL := strings.TrimRight(h.cfg.BaseURL, "/") + "/verify-email?token=" + rec.Token
		text, html := mailer.VerificationEmail(mailer.VerificationEmailData{
			AppName:   h.cfg.AppName,
			UserName:  user.FullName,
			VerifyURL: verifyURL,
			ExpiryHrs: int(emailverify.DefaultTTL.Hours()),
		})
		if err := h.mail.Send(mailer.Email{
			To:       user.Email,
			Subject:  "Confirm your " + h.cfg.AppName + " email",
			TextBody: text,
			HTMLBody: html,
		}); err != nil {
			h.logger.Warn("verification email not sent",
				zap.String("user_id", user.ID.Hex()), zap.Error(err))
		}
	}

	h.audit.Registered(r.Context(), r, user.ID, user.Email)

	jsonutil.Created(w, map[string]any{
		"ok":      true,
		"message": "If this address is new, a verification email has been sent.",
	})
}

type verifyRequest struct {
	Token string `json:"token" validate:"required" label:"Token"`
}

// Verify handles POST /verify.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var in verifyRequest
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}
	if res := inputval.Validate(&in); res.HasErrors() {
		jsonutil.BadRequest(w, res.First())
		return
	}

	rec, err := h.verify.Consume(r.Context(), in.Token)
	if err != nil {
		h.logger.Error("failed to consume verification token", zap.Error(err))
		jsonutil.InternalError(w, "Verification failed")
		return
	}
	if rec == nil {
		jsonutil.BadRequest(w, "Verification link is invalid or has expired")
		return
	}

	if err := h.users.MarkEmailVerified(r.Context(), rec.UserID); err != nil {
		h.logger.Error("failed to mark email verified",
			zap.String("user_id", rec.UserID.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "Verification failed")
		return
	}

	h.audit.EmailVerified(r.Context(), r, rec.UserID, rec.Email)

	jsonutil.OK(w, map[string]any{"ok": true, "message": "Email confirmed. You can now sign in."})
}
