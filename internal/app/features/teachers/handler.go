// Package teachers provides the teacher directory and review API.
//
// Endpoints (mounted at /api/teachers):
//   - GET    /                     - directory, filterable by faculty and name
//   - GET    /{id}                 - profile with rating summary and reactions
//   - GET    /{id}/reviews         - reviews, newest first
//   - PUT    /{id}/reviews         - create or replace the caller's review
//   - DELETE /{id}/reviews         - retract the caller's review
//   - POST   /                     - add a teacher profile (admin)
//   - PATCH  /{id}                 - update a teacher profile (admin)
//   - DELETE /{id}                 - remove a profile and its reviews (admin)
//
// Each signed-in student holds at most one review per teacher; submitting
// again replaces the previous one.
package teachers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	reactionstore "github.com/unihub-ua/unihub/internal/app/store/reactions"
	reviewstore "github.com/unihub-ua/unihub/internal/app/store/reviews"
	teacherstore "github.com/unihub-ua/unihub/internal/app/store/teachers"
	"github.com/unihub-ua/unihub/internal/app/system/auditlog"
	"github.com/unihub-ua/unihub/internal/app/system/auth"
	"github.com/unihub-ua/unihub/internal/app/system/htmlsanitize"
	"github.com/unihub-ua/unihub/internal/app/system/inputval"
	"github.com/unihub-ua/unihub/internal/app/system/jsonutil"
	"github.com/unihub-ua/unihub/internal/app/system/normalize"
	"github.com/unihub-ua/unihub/internal/domain/models"
)

// Handler handles teacher directory API requests.
type Handler struct {
	store     *teacherstore.Store
	reviews   *reviewstore.Store
	reactions *reactionstore.Store
	audit     *auditlog.Logger
	logger    *zap.Logger
}

// NewHandler creates a teachers handler.
func NewHandler(store *teacherstore.Store, reviews *reviewstore.Store, reactions *reactionstore.Store, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		store:     store,
		reviews:   reviews,
		reactions: reactions,
		audit:     audit,
		logger:    logger,
	}
}

type teacherRequest struct {
	FullName   string `json:"full_name" validate:"required,min=2,max=150" label:"Full name"`
	Faculty    string `json:"faculty" validate:"required,min=2,max=150" label:"Faculty"`
	Department string `json:"department" validate:"omitempty,max=150" label:"Department"`
	Position   string `json:"position" validate:"omitempty,max=150" label:"Position"`
	Bio        string `json:"bio" validate:"omitempty,max=10000" label:"Bio"`
}

type teacherUpdateRequest struct {
	FullName   *string `json:"full_name" validate:"omitempty,min=2,max=150" label:"Full name"`
	Faculty    *string `json:"faculty" validate:"omitempty,min=2,max=150" label:"Faculty"`
	Department *string `json:"department" validate:"omitempty,max=150" label:"Department"`
	Position   *string `json:"position" validate:"omitempty,max=150" label:"Position"`
	Bio        *string `json:"bio" validate:"omitempty,max=10000" label:"Bio"`
}

type reviewRequest struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5" label:"Rating"`
	Body   string `json:"body" validate:"omitempty,max=5000" label:"Review"`
}

type teacherResponse struct {
	models.Teacher
	Rating    reviewstore.RatingSummary `json:"rating"`
	Reactions *models.ReactionCounts    `json:"reactions,omitempty"`
}

// List handles GET /?faculty=...&q=...
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	f := teacherstore.Filter{
		Faculty: normalize.QueryParam(r.URL.Query().Get("faculty")),
		Search:  normalize.QueryParam(r.URL.Query().Get("q")),
	}

	items, err := h.store.Find(r.Context(), f, limit, page)
	if err != nil {
		h.logger.Error("failed to list teachers", zap.Error(err))
		jsonutil.InternalError(w, "Failed to load teachers")
		return
	}
	total, err := h.store.Count(r.Context(), f)
	if err != nil {
		h.logger.Error("failed to count teachers", zap.Error(err))
		jsonutil.InternalError(w, "Failed to load teachers")
		return
	}

	out := make([]teacherResponse, 0, len(items))
	for _, tch := range items {
		summary, err := h.reviews.SummaryFor(r.Context(), tch.ID)
		if err != nil {
			h.logger.Error("failed to summarize reviews",
				zap.String("teacher_id", tch.ID.Hex()), zap.Error(err))
			jsonutil.InternalError(w, "Failed to load teachers")
			return
		}
		out = append(out, teacherResponse{Teacher: tch, Rating: summary})
	}

	jsonutil.OK(w, map[string]any{"items": out, "total": total})
}

// Get handles GET /{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	tch, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to load teacher", zap.String("id", id.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "Failed to load teacher")
		return
	}
	if tch == nil {
		jsonutil.NotFound(w, "Teacher not found")
		return
	}

	summary, err := h.reviews.SummaryFor(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to summarize reviews", zap.String("id", id.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "Failed to load teacher")
		return
	}

	userID := ""
	if user, ok := auth.CurrentUser(r); ok {
		userID = user.ID
	}
	counts, err := h.reactions.CountsFor(r.Context(), models.TargetTeacher, id.Hex(), userID)
	if err != nil {
		h.logger.Error("failed to load teacher reactions", zap.String("id", id.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "Failed to load teacher")
		return
	}

	jsonutil.OK(w, teacherResponse{Teacher: *tch, Rating: summary, Reactions: counts})
}

// Create handles POST /. Admin only.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in teacherRequest
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}
	if res := inputval.Validate(&in); res.HasErrors() {
		jsonutil.BadRequest(w, res.First())
		return
	}

	tch, err := h.store.Create(r.Context(), teacherstore.CreateInput{
		FullName:   in.FullName,
		Faculty:    in.Faculty,
		Department: in.Department,
		Position:   in.Position,
		Bio:        htmlsanitize.Strict(in.Bio),
	})
	if err != nil {
		h.logger.Error("failed to create teacher", zap.Error(err))
		jsonutil.InternalError(w, "Failed to create teacher")
		return
	}

	h.logger.Info("teacher profile created",
		zap.String("id", tch.ID.Hex()),
		zap.String("full_name", tch.FullName))
	jsonutil.Created(w, tch)
}

// Update handles PATCH /{id}. Admin only.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var in teacherUpdateRequest
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}
	if res := inputval.Validate(&in); res.HasErrors() {
		jsonutil.BadRequest(w, res.First())
		return
	}

	upd := teacherstore.UpdateInput{
		FullName:   in.FullName,
		Faculty:    in.Faculty,
		Department: in.Department,
		Position:   in.Position,
	}
	if in.Bio != nil {
		clean := htmlsanitize.Strict(*in.Bio)
		upd.Bio = &clean
	}

	if err := h.store.Update(r.Context(), id, upd); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.NotFound(w, "Teacher not found")
			return
		}
		h.logger.Error("failed to update teacher", zap.String("id", id.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "Failed to update teacher")
		return
	}

	tch, err := h.store.GetByID(r.Context(), id)
	if err != nil || tch == nil {
		jsonutil.InternalError(w, "Failed to load teacher")
		return
	}
	jsonutil.OK(w, tch)
}

// Delete handles DELETE /{id}. Removes the profile, its reviews, and
// every reaction on any of them. Admin only.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	if err := h.store.Delete(ctx, id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.NotFound(w, "Teacher not found")
			return
		}
		h.logger.Error("failed to delete teacher", zap.String("id", id.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "Failed to delete teacher")
		return
	}

	reviewIDs, err := h.reviews.DeleteByTeacher(ctx, id)
	if err != nil {
		h.logger.Error("failed to delete teacher reviews", zap.String("id", id.Hex()), zap.Error(err))
	}
	if _, err := h.reactions.DeleteForTarget(ctx, models.TargetTeacher, id.Hex()); err != nil {
		h.logger.Error("failed to delete teacher reactions", zap.String("id", id.Hex()), zap.Error(err))
	}
	for _, rid := range reviewIDs {
		if _, err := h.reactions.DeleteForTarget(ctx, models.TargetReview, rid.Hex()); err != nil {
			h.logger.Error("failed to delete review reactions", zap.String("review_id", rid.Hex()), zap.Error(err))
		}
	}

	if user, ok := auth.CurrentUser(r); ok {
		h.audit.ContentRemoved(ctx, r, user.UserID(), string(models.TargetTeacher), id.Hex())
	}

	jsonutil.OK(w, map[string]any{"ok": true})
}

// ListReviews handles GET /{id}/reviews.
func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	id, ok := h.existingTeacher(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	items, err := h.reviews.ListByTeacher(r.Context(), id, limit, page)
	if err != nil {
		h.logger.Error("failed to list reviews", zap.String("teacher_id", id.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "Failed to load reviews")
		return
	}
	summary, err := h.reviews.SummaryFor(r.Context(), id)
	if err != nil {
		jsonutil.InternalError(w, "Failed to load reviews")
		return
	}

	jsonutil.OK(w, map[string]any{"items": items, "rating": summary})
}

// PutReview handles PUT /{id}/reviews. Creates the caller's review or
// replaces the existing one.
func (h *Handler) PutReview(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "Sign in to review")
		return
	}
	id, ok := h.existingTeacher(w, r)
	if !ok {
		return
	}

	var in reviewRequest
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}
	if res := inputval.Validate(&in); res.HasErrors() {
		jsonutil.BadRequest(w, res.First())
		return
	}

	rv, err := h.reviews.Upsert(r.Context(), reviewstore.UpsertInput{
		TeacherID:  id,
		AuthorID:   user.UserID(),
		AuthorName: user.Name,
		Rating:     in.Rating,
		Body:       htmlsanitize.Strict(in.Body),
	})
	if err != nil {
		h.logger.Error("failed to save review",
			zap.String("teacher_id", id.Hex()),
			zap.String("user_id", user.ID),
			zap.Error(err))
		jsonutil.InternalError(w, "Failed to save review")
		return
	}

	summary, err := h.reviews.SummaryFor(r.Context(), id)
	if err != nil {
		jsonutil.InternalError(w, "Failed to save review")
		return
	}
	jsonutil.OK(w, map[string]any{"review": rv, "rating": summary})
}

// DeleteReview handles DELETE /{id}/reviews. Retracts the caller's own
// review of the teacher.
func (h *Handler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "Sign in required")
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	rv, err := h.reviews.GetByTeacherAndAuthor(ctx, id, user.UserID())
	if err != nil {
		h.logger.Error("failed to load review", zap.String("teacher_id", id.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "Failed to delete review")
		return
	}
	if rv == nil {
		jsonutil.NotFound(w, "Review not found")
		return
	}

	if err := h.reviews.Delete(ctx, rv.ID); err != nil {
		h.logger.Error("failed to delete review", zap.String("id", rv.ID.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "Failed to delete review")
		return
	}
	if _, err := h.reactions.DeleteForTarget(ctx, models.TargetReview, rv.ID.Hex()); err != nil {
		h.logger.Error("failed to delete review reactions", zap.String("id", rv.ID.Hex()), zap.Error(err))
	}

	jsonutil.OK(w, map[string]any{"ok": true})
}

// existingTeacher resolves {id} and confirms the teacher exists.
func (h *Handler) existingTeacher(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return primitive.NilObjectID, false
	}
	exists, err := h.store.Exists(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to check teacher", zap.String("id", id.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "Failed to load teacher")
		return primitive.NilObjectID, false
	}
	if !exists {
		jsonutil.NotFound(w, "Teacher not found")
		return primitive.NilObjectID, false
	}
	return id, true
}

func pathID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.BadRequest(w, "Invalid teacher id")
		return primitive.NilObjectID, false
	}
	return id, true
}
