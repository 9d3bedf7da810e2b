// Package announcements provides the announcement feed API.
//
// Endpoints (mounted at /api/announcements):
//   - GET    /           - published announcements, pinned first
//   - GET    /{id}       - single announcement with reaction counts
//   - GET    /all        - all announcements including drafts (moderator)
//   - POST   /           - create an announcement (moderator)
//   - PATCH  /{id}       - update title, body, pinned, published (moderator)
//   - DELETE /{id}       - remove an announcement and its comments (moderator)
//
// Bodies are rich HTML, sanitized before storage.
package announcements

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	announcementstore "github.com/unihub-ua/unihub/internal/app/store/announcements"
	commentstore "github.com/unihub-ua/unihub/internal/app/store/comments"
	reactionstore "github.com/unihub-ua/unihub/internal/app/store/reactions"
	"github.com/unihub-ua/unihub/internal/app/system/auditlog"
	"github.com/unihub-ua/unihub/internal/app/system/auth"
	"github.com/unihub-ua/unihub/internal/app/system/htmlsanitize"
	"github.com/unihub-ua/unihub/internal/app/system/inputval"
	"github.com/unihub-ua/unihub/internal/app/system/jsonutil"
	"github.com/unihub-ua/unihub/internal/domain/models"
)

// Handler handles announcement API requests.
type Handler struct {
	store     *announcementstore.Store
	comments  *commentstore.Store
	reactions *reactionstore.Store
	audit     *auditlog.Logger
	logger    *zap.Logger
}

// NewHandler creates an announcements handler.
func NewHandler(store *announcementstore.Store, comments *commentstore.Store, reactions *reactionstore.Store, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		store:     store,
		comments:  comments,
		reactions: reactions,
		audit:     audit,
		logger:    logger,
	}
}

type createRequest struct {
	Title     string `json:"title" validate:"required,min=3,max=200" label:"Title"`
	Body      string `json:"body" validate:"required,min=1,max=50000" label:"Body"`
	Pinned    bool   `json:"pinned"`
	Published bool   `json:"published"`
}

type updateRequest struct {
	Title     *string `json:"title" validate:"omitempty,min=3,max=200" label:"Title"`
	Body      *string `json:"body" validate:"omitempty,min=1,max=50000" label:"Body"`
	Pinned    *bool   `json:"pinned"`
	Published *bool   `json:"published"`
}

type announcementResponse struct {
	models.Announcement
	Comments  int64                  `json:"comments"`
	Reactions *models.ReactionCounts `json:"reactions,omitempty"`
}

// List handles GET /. Published announcements only, pinned first, with
// per-item reaction counts for the caller.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, page := pageParams(r)

	items, err := h.store.ListPublished(r.Context(), limit, page)
	if err != nil {
		h.logger.Error("failed to list announcements", zap.Error(err))
		jsonutil.InternalError(w, "Failed to load announcements")
		return
	}
	total, err := h.store.CountPublished(r.Context())
	if err != nil {
		h.logger.Error("failed to count announcements", zap.Error(err))
		jsonutil.InternalError(w, "Failed to load announcements")
		return
	}

	out, err := h.decorate(r, items)
	if err != nil {
		jsonutil.InternalError(w, "Failed to load announcements")
		return
	}

	jsonutil.OK(w, map[string]any{
		"items": out,
		"total": total,
	})
}

// ListAll handles GET /all. Includes drafts. Moderator view.
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	limit, page := pageParams(r)

	items, err := h.store.ListAll(r.Context(), limit, page)
	if err != nil {
		h.logger.Error("failed to list announcements", zap.Error(err))
		jsonutil.InternalError(w, "Failed to load announcements")
		return
	}

	out, err := h.decorate(r, items)
	if err != nil {
		jsonutil.InternalError(w, "Failed to load announcements")
		return
	}
	jsonutil.OK(w, map[string]any{"items": out})
}

// Get handles GET /{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	a, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to load announcement", zap.String("id", id.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "Failed to load announcement")
		return
	}
	if a == nil || !visibleTo(a, r) {
		jsonutil.NotFound(w, "Announcement not found")
		return
	}

	out, err := h.decorate(r, []models.Announcement{*a})
	if err != nil {
		jsonutil.InternalError(w, "Failed to load announcement")
		return
	}
	jsonutil.OK(w, out[0])
}

// Create handles POST /.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "Sign in required")
		return
	}

	var in createRequest
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}
	if res := inputval.Validate(&in); res.HasErrors() {
		jsonutil.BadRequest(w, res.First())
		return
	}

	a, err := h.store.Create(r.Context(), announcementstore.CreateInput{
		Title:      in.Title,
		Body:       htmlsanitize.Rich(in.Body),
		AuthorID:   user.UserID(),
		AuthorName: user.Name,
		Pinned:     in.Pinned,
		Published:  in.Published,
	})
	if err != nil {
		h.logger.Error("failed to create announcement", zap.String("user_id", user.ID), zap.Error(err))
		jsonutil.InternalError(w, "Failed to create announcement")
		return
	}

	h.logger.Info("announcement created",
		zap.String("id", a.ID.Hex()),
		zap.String("author_id", user.ID),
		zap.Bool("published", a.Published))

	jsonutil.Created(w, a)
}

// Update handles PATCH /{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var in updateRequest
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}
	if res := inputval.Validate(&in); res.HasErrors() {
		jsonutil.BadRequest(w, res.First())
		return
	}

	upd := announcementstore.UpdateInput{
		Title:     in.Title,
		Pinned:    in.Pinned,
		Published: in.Published,
	}
	if in.Body != nil {
		clean := htmlsanitize.Rich(*in.Body)
		upd.Body = &clean
	}

	if err := h.store.Update(r.Context(), id, upd); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.NotFound(w, "Announcement not found")
			return
		}
		h.logger.Error("failed to update announcement", zap.String("id", id.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "Failed to update announcement")
		return
	}

	a, err := h.store.GetByID(r.Context(), id)
	if err != nil || a == nil {
		jsonutil.InternalError(w, "Failed to load announcement")
		return
	}
	jsonutil.OK(w, a)
}

// Delete handles DELETE /{id}. Removes the announcement, its comments,
// and every reaction on any of them.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	if err := h.store.Delete(ctx, id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.NotFound(w, "Announcement not found")
			return
		}
		h.logger.Error("failed to delete announcement", zap.String("id", id.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "Failed to delete announcement")
		return
	}

	commentIDs, err := h.comments.DeleteByAnnouncement(ctx, id)
	if err != nil {
		h.logger.Error("failed to delete announcement comments", zap.String("id", id.Hex()), zap.Error(err))
	}
	if _, err := h.reactions.DeleteForTarget(ctx, models.TargetAnnouncement, id.Hex()); err != nil {
		h.logger.Error("failed to delete announcement reactions", zap.String("id", id.Hex()), zap.Error(err))
	}
	for _, cid := range commentIDs {
		if _, err := h.reactions.DeleteForTarget(ctx, models.TargetComment, cid.Hex()); err != nil {
			h.logger.Error("failed to delete comment reactions", zap.String("comment_id", cid.Hex()), zap.Error(err))
		}
	}

	if user, ok := auth.CurrentUser(r); ok {
		h.audit.ContentRemoved(ctx, r, user.UserID(), string(models.TargetAnnouncement), id.Hex())
	}

	jsonutil.OK(w, map[string]any{"ok": true})
}

// decorate attaches comment and reaction counts to each announcement.
func (h *Handler) decorate(r *http.Request, items []models.Announcement) ([]announcementResponse, error) {
	userID := ""
	if user, ok := auth.CurrentUser(r); ok {
		userID = user.ID
	}

	ids := make([]string, 0, len(items))
	for _, a := range items {
		ids = append(ids, a.ID.Hex())
	}
	counts, err := h.reactions.CountsForMany(r.Context(), models.TargetAnnouncement, ids, userID)
	if err != nil {
		h.logger.Error("failed to load reaction counts", zap.Error(err))
		return nil, err
	}

	out := make([]announcementResponse, 0, len(items))
	for _, a := range items {
		n, err := h.comments.CountByAnnouncement(r.Context(), a.ID)
		if err != nil {
			h.logger.Error("failed to count comments", zap.String("id", a.ID.Hex()), zap.Error(err))
			return nil, err
		}
		out = append(out, announcementResponse{
			Announcement: a,
			Comments:     n,
			Reactions:    counts[a.ID.Hex()],
		})
	}
	return out, nil
}

// visibleTo reports whether the caller may see the announcement.
// Drafts are moderator-only.
func visibleTo(a *models.Announcement, r *http.Request) bool {
	if a.Published {
		return true
	}
	user, ok := auth.CurrentUser(r)
	return ok && (user.Role == models.RoleModerator || user.Role == models.RoleAdmin)
}

func pathID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.BadRequest(w, "Invalid announcement id")
		return primitive.NilObjectID, false
	}
	return id, true
}

func pageParams(r *http.Request) (limit, page int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	return limit, page
}
