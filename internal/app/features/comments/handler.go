// Package comments provides the announcement comment API.
//
// Endpoints (mounted at /api/announcements/{id}/comments):
//   - GET    /             - comments on the announcement, oldest first
//   - POST   /             - add a comment (signed in)
//   - PATCH  /{commentID}  - edit own comment
//   - DELETE /{commentID}  - remove own comment; moderators can remove any
//
// Bodies allow inline formatting only; block markup is stripped.
package comments

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
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

// Handler handles comment API requests.
type Handler struct {
	store         *commentstore.Store
	announcements *announcementstore.Store
	reactions     *reactionstore.Store
	audit         *auditlog.Logger
	logger        *zap.Logger
}

// NewHandler creates a comments handler.
func NewHandler(store *commentstore.Store, announcements *announcementstore.Store, reactions *reactionstore.Store, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		store:         store,
		announcements: announcements,
		reactions:     reactions,
		audit:         audit,
		logger:        logger,
	}
}

type commentRequest struct {
	Body string `json:"body" validate:"required,min=1,max=5000" label:"Comment"`
}

type commentResponse struct {
	models.Comment
	Reactions *models.ReactionCounts `json:"reactions,omitempty"`
}

// List handles GET /. Oldest first, with per-comment reaction counts.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	announcementID, ok := h.announcementID(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	items, err := h.store.ListByAnnouncement(r.Context(), announcementID, limit, page)
	if err != nil {
		h.logger.Error("failed to list comments",
			zap.String("announcement_id", announcementID.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "Failed to load comments")
		return
	}

	userID := ""
	if user, ok := auth.CurrentUser(r); ok {
		userID = user.ID
	}
	ids := make([]string, 0, len(items))
	for _, c := range items {
		ids = append(ids, c.ID.Hex())
	}
	counts, err := h.reactions.CountsForMany(r.Context(), models.TargetComment, ids, userID)
	if err != nil {
		h.logger.Error("failed to load comment reaction counts",
			zap.String("announcement_id", announcementID.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "Failed to load comments")
		return
	}

	out := make([]commentResponse, 0, len(items))
	for _, c := range items {
		out = append(out, commentResponse{Comment: c, Reactions: counts[c.ID.Hex()]})
	}

	total, err := h.store.CountByAnnouncement(r.Context(), announcementID)
	if err != nil {
		jsonutil.InternalError(w, "Failed to load comments")
		return
	}
	jsonutil.OK(w, map[string]any{"items": out, "total": total})
}

// Create handles POST /.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "Sign in to comment")
		return
	}
	announcementID, ok := h.announcementID(w, r)
	if !ok {
		return
	}

	var in commentRequest
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}
	if res := inputval.Validate(&in); res.HasErrors() {
		jsonutil.BadRequest(w, res.First())
		return
	}

	c, err := h.store.Create(r.Context(), commentstore.CreateInput{
		AnnouncementID: announcementID,
		AuthorID:       user.UserID(),
		AuthorName:     user.Name,
		Body:           htmlsanitize.Strict(in.Body),
	})
	if err != nil {
		h.logger.Error("failed to create comment",
			zap.String("announcement_id", announcementID.Hex()),
			zap.String("user_id", user.ID),
			zap.Error(err))
		jsonutil.InternalError(w, "Failed to post comment")
		return
	}

	jsonutil.Created(w, c)
}

// Update handles PATCH /{commentID}. Authors may edit their own comments.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "Sign in required")
		return
	}
	id, ok := commentID(w, r)
	if !ok {
		return
	}

	var in commentRequest
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}
	if res := inputval.Validate(&in); res.HasErrors() {
		jsonutil.BadRequest(w, res.First())
		return
	}

	c, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to load comment", zap.String("id", id.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "Failed to update comment")
		return
	}
	if c == nil {
		jsonutil.NotFound(w, "Comment not found")
		return
	}
	if c.AuthorID != user.UserID() {
		jsonutil.Forbidden(w, "You can only edit your own comments")
		return
	}

	if err := h.store.UpdateBody(r.Context(), id, user.UserID(), htmlsanitize.Strict(in.Body)); err != nil {
		h.logger.Error("failed to update comment", zap.String("id", id.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "Failed to update comment")
		return
	}

	c, err = h.store.GetByID(r.Context(), id)
	if err != nil || c == nil {
		jsonutil.InternalError(w, "Failed to update comment")
		return
	}
	jsonutil.OK(w, c)
}

// Delete handles DELETE /{commentID}. Authors may remove their own
// comments; moderators and admins may remove any.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "Sign in required")
		return
	}
	id, ok := commentID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	c, err := h.store.GetByID(ctx, id)
	if err != nil {
		h.logger.Error("failed to load comment", zap.String("id", id.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "Failed to delete comment")
		return
	}
	if c == nil {
		jsonutil.NotFound(w, "Comment not found")
		return
	}

	isModerator := models.CanModerate(user.Role)
	if c.AuthorID != user.UserID() && !isModerator {
		jsonutil.Forbidden(w, "You can only delete your own comments")
		return
	}

	if err := h.store.Delete(ctx, id); err != nil {
		h.logger.Error("failed to delete comment", zap.String("id", id.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "Failed to delete comment")
		return
	}
	if _, err := h.reactions.DeleteForTarget(ctx, models.TargetComment, id.Hex()); err != nil {
		h.logger.Error("failed to delete comment reactions", zap.String("id", id.Hex()), zap.Error(err))
	}

	if isModerator && c.AuthorID != user.UserID() {
		h.audit.ContentRemoved(ctx, r, user.UserID(), string(models.TargetComment), id.Hex())
	}

	jsonutil.OK(w, map[string]any{"ok": true})
}

// announcementID resolves the parent announcement from the route and
// confirms it is published.
func (h *Handler) announcementID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.BadRequest(w, "Invalid announcement id")
		return primitive.NilObjectID, false
	}
	exists, err := h.announcements.Exists(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to check announcement", zap.String("id", id.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "Failed to load comments")
		return primitive.NilObjectID, false
	}
	if !exists {
		jsonutil.NotFound(w, "Announcement not found")
		return primitive.NilObjectID, false
	}
	return id, true
}

func commentID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "commentID"))
	if err != nil {
		jsonutil.BadRequest(w, "Invalid comment id")
		return primitive.NilObjectID, false
	}
	return id, true
}
