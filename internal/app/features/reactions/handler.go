// Package reactions provides the like/dislike voting API.
//
// Endpoints (mounted at /api/reactions):
//   - POST /toggle - cast, retract, or flip the caller's vote on a target
//   - GET  /counts - aggregate counts for one target
//
// Votes are stored one per (target_type, target_id, user) and counts are
// computed from the ledger on every read.
package reactions

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	reactionstore "github.com/unihub-ua/unihub/internal/app/store/reactions"
	"github.com/unihub-ua/unihub/internal/app/system/auth"
	"github.com/unihub-ua/unihub/internal/app/system/inputval"
	"github.com/unihub-ua/unihub/internal/app/system/jsonutil"
	"github.com/unihub-ua/unihub/internal/app/system/normalize"
	"github.com/unihub-ua/unihub/internal/domain/models"
)

// TargetChecker reports whether a reaction target exists. Each content
// store provides one.
type TargetChecker interface {
	Exists(ctx context.Context, id primitive.ObjectID) (bool, error)
}

// Handler handles reaction API requests.
type Handler struct {
	store   *reactionstore.Store
	targets map[models.TargetType]TargetChecker
	logger  *zap.Logger
}

// NewHandler creates a reactions handler. targets maps each supported
// target kind to the store that can confirm the target exists.
func NewHandler(store *reactionstore.Store, targets map[models.TargetType]TargetChecker, logger *zap.Logger) *Handler {
	return &Handler{
		store:   store,
		targets: targets,
		logger:  logger,
	}
}

type toggleRequest struct {
	TargetType string `json:"target_type" validate:"required,targettype"`
	TargetID   string `json:"target_id" validate:"required,objectid"`
	Value      int    `json:"value" validate:"required,reaction"`
}

type countsResponse struct {
	Likes        int64 `json:"likes"`
	Dislikes     int64 `json:"dislikes"`
	Score        int64 `json:"score"`
	UserReaction int   `json:"user_reaction"`
}

// Toggle handles POST /toggle.
//
// Casting the same value twice retracts the vote; casting the opposite
// value flips it. The response carries the post-toggle aggregate so the
// client can render without a second request.
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "Sign in to react")
		return
	}

	var in toggleRequest
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}
	if res := inputval.Validate(&in); res.HasErrors() {
		jsonutil.BadRequest(w, res.First())
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
		h.logger.Error("failed to check reaction target",
			zap.String("target_type", string(targetType)),
			zap.String("target_id", in.TargetID),
			zap.Error(err))
		jsonutil.InternalError(w, "Failed to process reaction")
		return
	}
	if !exists {
		jsonutil.NotFound(w, "Target not found")
		return
	}

	userReaction, err := h.store.Toggle(r.Context(), targetType, in.TargetID, user.ID, in.Value)
	if err != nil {
		h.logger.Error("failed to toggle reaction",
			zap.String("target_type", string(targetType)),
			zap.String("target_id", in.TargetID),
			zap.String("user_id", user.ID),
			zap.Error(err))
		jsonutil.InternalError(w, "Failed to process reaction")
		return
	}

	counts, err := h.store.CountsFor(r.Context(), targetType, in.TargetID, user.ID)
	if err != nil {
		h.logger.Error("failed to load reaction counts",
			zap.String("target_type", string(targetType)),
			zap.String("target_id", in.TargetID),
			zap.Error(err))
		jsonutil.InternalError(w, "Failed to load reaction counts")
		return
	}

	h.logger.Debug("reaction toggled",
		zap.String("target_type", string(targetType)),
		zap.String("target_id", in.TargetID),
		zap.String("user_id", user.ID),
		zap.Int("user_reaction", userReaction))

	jsonutil.OK(w, map[string]any{
		"ok": true,
		"counts": countsResponse{
			Likes:        counts.Likes,
			Dislikes:     counts.Dislikes,
			Score:        counts.Score,
			UserReaction: counts.UserReaction,
		},
	})
}

// Counts handles GET /{targetType}/{targetID}/counts and the query-param
// form GET /counts?target_type=...&target_id=...
//
// Works for anonymous callers too; user_reaction is 0 unless signed in.
func (h *Handler) Counts(w http.ResponseWriter, r *http.Request) {
	rawType := chi.URLParam(r, "targetType")
	rawID := chi.URLParam(r, "targetID")
	if rawType == "" {
		rawType = r.URL.Query().Get("target_type")
	}
	if rawID == "" {
		rawID = r.URL.Query().Get("target_id")
	}
	targetType := models.TargetType(normalize.TargetType(rawType))
	targetID := normalize.QueryParam(rawID)

	if !models.IsValidTargetType(targetType) {
		jsonutil.BadRequest(w, "Unsupported target type")
		return
	}
	if !inputval.IsValidObjectID(targetID) {
		jsonutil.BadRequest(w, "Invalid target id")
		return
	}

	userID := ""
	if user, ok := auth.CurrentUser(r); ok {
		userID = user.ID
	}

	counts, err := h.store.CountsFor(r.Context(), targetType, targetID, userID)
	if err != nil {
		h.logger.Error("failed to load reaction counts",
			zap.String("target_type", string(targetType)),
			zap.String("target_id", targetID),
			zap.Error(err))
		jsonutil.InternalError(w, "Failed to load reaction counts")
		return
	}

	jsonutil.OK(w, countsResponse{
		Likes:        counts.Likes,
		Dislikes:     counts.Dislikes,
		Score:        counts.Score,
		UserReaction: counts.UserReaction,
	})
}
