// Package moderation provides the content report, name change, and user
// administration API.
//
// Endpoints:
//
//	Mounted at /api/reports:
//	  - POST /                    - file a report (signed in)
//
//	Mounted at /api/name-changes:
//	  - POST /                    - request a display name change (signed in)
//	  - GET  /mine                - the caller's requests, newest first
//
//	Mounted at /api/moderation (moderator or admin):
//	  - GET  /reports             - list reports, filterable
//	  - POST /reports/{id}/decide - resolve or dismiss a report
//	  - GET  /name-changes        - pending requests, oldest first
//	  - POST /name-changes/{id}/decide - approve or reject; approval applies
//	    the new name to the user record
//
//	Mounted at /api/admin/users (admin only):
//	  - GET  /                    - list accounts, filterable
//	  - POST /{id}/disable        - disable an account and drop its sessions
//	  - POST /{id}/enable         - re-enable an account
//	  - POST /{id}/role           - change an account's role
package moderation

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	namechangestore "github.com/unihub-ua/unihub/internal/app/store/namechanges"
	reportstore "github.com/unihub-ua/unihub/internal/app/store/reports"
	sessionstore "github.com/unihub-ua/unihub/internal/app/store/sessions"
	userstore "github.com/unihub-ua/unihub/internal/app/store/users"
	"github.com/unihub-ua/unihub/internal/app/system/auditlog"
	"github.com/unihub-ua/unihub/internal/app/system/auth"
	"github.com/unihub-ua/unihub/internal/app/system/inputval"
	"github.com/unihub-ua/unihub/internal/app/system/jsonutil"
	"github.com/unihub-ua/unihub/internal/app/system/mailer"
	"github.com/unihub-ua/unihub/internal/app/system/normalize"
	"github.com/unihub-ua/unihub/internal/domain/models"
)

// TargetChecker reports whether a reported target exists.
type TargetChecker interface {
	Exists(ctx context.Context, id primitive.ObjectID) (bool, error)
}

// Config carries the values used when notifying disabled users.
type Config struct {
	AppName      string
	ContactEmail string
}

// Handler handles moderation API requests.
type Handler struct {
	reports     *reportstore.Store
	nameChanges *namechangestore.Store
	users       *userstore.Store
	sessions    *sessionstore.Store
	targets     map[models.TargetType]TargetChecker
	mail        *mailer.Mailer
	audit       *auditlog.Logger
	cfg         Config
	logger      *zap.Logger
}

// NewHandler creates a moderation handler. mail and audit may be nil.
func NewHandler(
	reports *reportstore.Store,
	nameChanges *namechangestore.Store,
	users *userstore.Store,
	sessions *sessionstore.Store,
	targets map[models.TargetType]TargetChecker,
	mail *mailer.Mailer,
	audit *auditlog.Logger,
	cfg Config,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		reports:     reports,
		nameChanges: nameChanges,
		users:       users,
		sessions:    sessions,
		targets:     targets,
		mail:        mail,
		audit:       audit,
		cfg:         cfg,
		logger:      logger,
	}
}

type reportRequest struct {
	TargetType string `json:"target_type" validate:"required,targettype"`
	TargetID   string `json:"target_id" validate:"required,objectid"`
	Reason     string `json:"reason" validate:"required" label:"Reason"`
	Details    string `json:"details" validate:"omitempty,max=2000" label:"Details"`
}

type decisionRequest struct {
	Status string `json:"status" validate:"required" label:"Decision"`
	Note   string `json:"note" validate:"omitempty,max=2000" label:"Note"`
}

type nameChangeRequest struct {
	NewName string `json:"new_name" validate:"required,min=2,max=150" label:"New name"`
	Reason  string `json:"reason" validate:"omitempty,max=2000" label:"Reason"`
}

type roleRequest struct {
	Role string `json:"role" validate:"required" label:"Role"`
}

// FileReport handles POST /api/reports.
func (h *Handler) FileReport(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "Sign in to report content")
		return
	}

	var in reportRequest
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}
	if res := inputval.Validate(&in); res.HasErrors() {
		jsonutil.BadRequest(w, res.First())
		return
	}
	if !models.IsValidReportReason(in.Reason) {
		jsonutil.BadRequest(w, "Unknown report reason")
		return
	}

	targetType := models.TargetType(normalize.TargetType(in.TargetType))
	oid, err := primitive.ObjectIDFromHex(in.TargetID)
	if err != nil {
		jsonutil.BadRequest(w, "Invalid target id")
		return
	}
	checker, ok := h.targets[targetType]
	if !ok {
		jsonutil.BadRequest(w, "Unsupported target type")
		return
	}
	exists, err := checker.Exists(r.Context(), oid)
	if err != nil {
		h.logger.Error("failed to check report target",
			zap.String("target_type", string(targetType)),
			zap.String("target_id", in.TargetID),
			zap.Error(err))
		jsonutil.InternalError(w, "Failed to file report")
		return
	}
	if !exists {
		jsonutil.NotFound(w, "Target not found")
		return
	}

	rep, err := h.reports.Create(r.Context(), reportstore.CreateInput{
		TargetType:   targetType,
		TargetID:     in.TargetID,
		ReporterID:   user.UserID(),
		ReporterName: user.Name,
		Reason:       in.Reason,
		Details:      in.Details,
	})
	if err != nil {
		h.logger.Error("failed to create report",
			zap.String("user_id", user.ID), zap.Error(err))
		jsonutil.InternalError(w, "Failed to file report")
		return
	}

	h.logger.Info("content reported",
		zap.String("case_number", rep.CaseNumber),
		zap.String("target_type", string(targetType)),
		zap.String("target_id", in.TargetID))

	jsonutil.Created(w, rep)
}

// ListReports handles GET /api/moderation/reports.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	f := reportstore.Filter{
		Status:     normalize.QueryParam(r.URL.Query().Get("status")),
		TargetType: models.TargetType(normalize.TargetType(r.URL.Query().Get("target_type"))),
		TargetID:   normalize.QueryParam(r.URL.Query().Get("target_id")),
	}

	items, err := h.reports.Find(r.Context(), f, limit, page)
	if err != nil {
		h.logger.Error("failed to list reports", zap.Error(err))
		jsonutil.InternalError(w, "Failed to load reports")
		return
	}
	total, err := h.reports.Count(r.Context(), f)
	if err != nil {
		jsonutil.InternalError(w, "Failed to load reports")
		return
	}
	jsonutil.OK(w, map[string]any{"items": items, "total": total})
}

// DecideReport handles POST /api/moderation/reports/{id}/decide.
func (h *Handler) DecideReport(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "Sign in required")
		return
	}
	id, ok := pathID(w, r, "report")
	if !ok {
		return
	}

	var in decisionRequest
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}
	if res := inputval.Validate(&in); res.HasErrors() {
		jsonutil.BadRequest(w, res.First())
		return
	}
	status := normalize.Status(in.Status)
	if status != models.ReportResolved && status != models.ReportDismissed {
		jsonutil.BadRequest(w, "Decision must be resolved or dismissed")
		return
	}

	err := h.reports.Decide(r.Context(), id, user.UserID(), status, in.Note)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		jsonutil.NotFound(w, "Report not found")
		return
	case errors.Is(err, reportstore.ErrAlreadyDecided):
		jsonutil.Error(w, http.StatusConflict, "Report has already been decided")
		return
	case err != nil:
		h.logger.Error("failed to decide report", zap.String("id", id.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "Failed to decide report")
		return
	}

	rep, err := h.reports.GetByID(r.Context(), id)
	if err != nil || rep == nil {
		jsonutil.InternalError(w, "Failed to load report")
		return
	}
	if status == models.ReportResolved {
		h.audit.ReportResolved(r.Context(), r, user.UserID(), rep.CaseNumber, in.Note)
	} else {
		h.audit.ReportDismissed(r.Context(), r, user.UserID(), rep.CaseNumber)
	}
	jsonutil.OK(w, rep)
}

// RequestNameChange handles POST /api/name-changes.
func (h *Handler) RequestNameChange(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "Sign in required")
		return
	}

	var in nameChangeRequest
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}
	if res := inputval.Validate(&in); res.HasErrors() {
		jsonutil.BadRequest(w, res.First())
		return
	}

	account, err := h.users.GetByID(r.Context(), user.UserID())
	if err != nil || account == nil {
		h.logger.Error("failed to load user for name change",
			zap.String("user_id", user.ID), zap.Error(err))
		jsonutil.InternalError(w, "Failed to submit request")
		return
	}

	req, err := h.nameChanges.Create(r.Context(), namechangestore.CreateInput{
		UserID:  account.ID,
		OldName: account.FullName,
		NewName: in.NewName,
		Reason:  in.Reason,
	})
	if errors.Is(err, namechangestore.ErrPendingExists) {
		jsonutil.Error(w, http.StatusConflict, "You already have a pending name change request")
		return
	}
	if err != nil {
		h.logger.Error("failed to create name change request",
			zap.String("user_id", user.ID), zap.Error(err))
		jsonutil.InternalError(w, "Failed to submit request")
		return
	}
	jsonutil.Created(w, req)
}

// MyNameChanges handles GET /api/name-changes/mine.
func (h *Handler) MyNameChanges(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "Sign in required")
		return
	}
	items, err := h.nameChanges.ListByUser(r.Context(), user.UserID())
	if err != nil {
		h.logger.Error("failed to list name changes", zap.String("user_id", user.ID), zap.Error(err))
		jsonutil.InternalError(w, "Failed to load requests")
		return
	}
	jsonutil.OK(w, map[string]any{"items": items})
}

// ListNameChanges handles GET /api/moderation/name-changes.
func (h *Handler) ListNameChanges(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	items, err := h.nameChanges.ListPending(r.Context(), limit, page)
	if err != nil {
		h.logger.Error("failed to list pending name changes", zap.Error(err))
		jsonutil.InternalError(w, "Failed to load requests")
		return
	}
	total, err := h.nameChanges.CountPending(r.Context())
	if err != nil {
		jsonutil.InternalError(w, "Failed to load requests")
		return
	}
	jsonutil.OK(w, map[string]any{"items": items, "total": total})
}

// DecideNameChange handles POST /api/moderation/name-changes/{id}/decide.
// Approval applies the new name to the user record.
func (h *Handler) DecideNameChange(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "Sign in required")
		return
	}
	id, ok := pathID(w, r, "request")
	if !ok {
		return
	}

	var in decisionRequest
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}
	if res := inputval.Validate(&in); res.HasErrors() {
		jsonutil.BadRequest(w, res.First())
		return
	}
	status := normalize.Status(in.Status)
	if status != models.NameChangeApproved && status != models.NameChangeRejected {
		jsonutil.BadRequest(w, "Decision must be approved or rejected")
		return
	}

	req, err := h.nameChanges.Decide(r.Context(), id, user.UserID(), status, in.Note)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		jsonutil.NotFound(w, "Request not found")
		return
	case errors.Is(err, namechangestore.ErrAlreadyDecided):
		jsonutil.Error(w, http.StatusConflict, "Request has already been decided")
		return
	case err != nil:
		h.logger.Error("failed to decide name change", zap.String("id", id.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "Failed to decide request")
		return
	}

	approved := status == models.NameChangeApproved
	if approved {
		if err := h.users.UpdateFullName(r.Context(), req.UserID, req.NewName); err != nil {
			h.logger.Error("failed to apply approved name change",
				zap.String("request_id", id.Hex()),
				zap.String("user_id", req.UserID.Hex()),
				zap.Error(err))
			jsonutil.InternalError(w, "Failed to apply the new name")
			return
		}
	}
	h.audit.NameChangeReviewed(r.Context(), r, user.UserID(), req.UserID, approved)
	jsonutil.OK(w, req)
}

// ListUsers handles GET /api/admin/users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	f := userstore.Filter{
		Role:   normalize.Role(r.URL.Query().Get("role")),
		Status: normalize.Status(r.URL.Query().Get("status")),
		Search: normalize.QueryParam(r.URL.Query().Get("q")),
	}

	items, err := h.users.Find(r.Context(), f, limit, page)
	if err != nil {
		h.logger.Error("failed to list users", zap.Error(err))
		jsonutil.InternalError(w, "Failed to load users")
		return
	}
	total, err := h.users.Count(r.Context(), f)
	if err != nil {
		jsonutil.InternalError(w, "Failed to load users")
		return
	}
	jsonutil.OK(w, map[string]any{"items": items, "total": total})
}

// DisableUser handles POST /api/admin/users/{id}/disable. Drops the
// account's sessions so the lockout is immediate.
func (h *Handler) DisableUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "Sign in required")
		return
	}
	id, ok := pathID(w, r, "user")
	if !ok {
		return
	}
	ctx := r.Context()

	target, err := h.users.GetByID(ctx, id)
	if err != nil {
		h.logger.Error("failed to load user", zap.String("id", id.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "Failed to disable account")
		return
	}
	if target == nil {
		jsonutil.NotFound(w, "User not found")
		return
	}
	if target.ID == actor.UserID() {
		jsonutil.BadRequest(w, "You cannot disable your own account")
		return
	}
	if target.Role == models.RoleAdmin && target.Status == models.StatusActive {
		admins, err := h.users.CountActiveAdmins(ctx)
		if err != nil {
			jsonutil.InternalError(w, "Failed to disable account")
			return
		}
		if admins <= 1 {
			jsonutil.BadRequest(w, "Cannot disable the last active admin")
			return
		}
	}

	if err := h.users.SetStatus(ctx, id, models.StatusDisabled); err != nil {
		h.logger.Error("failed to disable user", zap.String("id", id.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "Failed to disable account")
		return
	}
	if _, err := h.sessions.DeleteForUser(ctx, id); err != nil {
		h.logger.Error("failed to drop sessions for disabled user",
			zap.String("id", id.Hex()), zap.Error(err))
	}
	h.audit.UserDisabled(ctx, r, actor.UserID(), id)

	if h.mail != nil {
		text, html := mailer.AccountDisabledEmail(mailer.AccountDisabledEmailData{
			AppName:      h.cfg.AppName,
			UserName:     target.FullName,
			ContactEmail: h.cfg.ContactEmail,
		})
		if err := h.mail.Send(mailer.Email{
			To:       target.Email,
			Subject:  h.cfg.AppName + ": your account has been disabled",
			TextBody: text,
			HTMLBody: html,
		}); err != nil {
			h.logger.Error("failed to send account disabled email",
				zap.String("email", target.Email), zap.Error(err))
		}
	}

	jsonutil.OK(w, map[string]any{"ok": true})
}

// EnableUser handles POST /api/admin/users/{id}/enable.
func (h *Handler) EnableUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "Sign in required")
		return
	}
	id, ok := pathID(w, r, "user")
	if !ok {
		return
	}

	if err := h.users.SetStatus(r.Context(), id, models.StatusActive); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.NotFound(w, "User not found")
			return
		}
		h.logger.Error("failed to enable user", zap.String("id", id.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "Failed to enable account")
		return
	}
	h.audit.UserEnabled(r.Context(), r, actor.UserID(), id)
	jsonutil.OK(w, map[string]any{"ok": true})
}

// ChangeRole handles POST /api/admin/users/{id}/role.
func (h *Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "Sign in required")
		return
	}
	id, ok := pathID(w, r, "user")
	if !ok {
		return
	}

	var in roleRequest
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}
	role := normalize.Role(in.Role)
	if !models.IsValidRole(role) {
		jsonutil.BadRequest(w, "Unknown role")
		return
	}
	ctx := r.Context()

	target, err := h.users.GetByID(ctx, id)
	if err != nil {
		h.logger.Error("failed to load user", zap.String("id", id.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "Failed to change role")
		return
	}
	if target == nil {
		jsonutil.NotFound(w, "User not found")
		return
	}
	if target.Role == role {
		jsonutil.OK(w, map[string]any{"ok": true})
		return
	}
	if target.Role == models.RoleAdmin && target.Status == models.StatusActive {
		admins, err := h.users.CountActiveAdmins(ctx)
		if err != nil {
			jsonutil.InternalError(w, "Failed to change role")
			return
		}
		if admins <= 1 {
			jsonutil.BadRequest(w, "Cannot demote the last active admin")
			return
		}
	}

	if err := h.users.SetRole(ctx, id, role); err != nil {
		h.logger.Error("failed to change role", zap.String("id", id.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "Failed to change role")
		return
	}
	h.audit.UserRoleChanged(ctx, r, actor.UserID(), id, target.Role, role)
	jsonutil.OK(w, map[string]any{"ok": true})
}

func pathID(w http.ResponseWriter, r *http.Request, kind string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.BadRequest(w, "Invalid "+kind+" id")
		return primitive.NilObjectID, false
	}
	return id, true
}
