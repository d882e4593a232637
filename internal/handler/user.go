package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/quickai/quickai/internal/handler/dto"
	"github.com/quickai/quickai/internal/model"
)

// CreationBrowser lists creations and toggles likes.
type CreationBrowser interface {
	ListUserCreations(ctx context.Context, userID string) ([]*model.Creation, error)
	ListPublishedCreations(ctx context.Context) ([]*model.Creation, error)
	ToggleLike(ctx context.Context, userID, creationID string) (bool, string, error)
}

// UserHandler handles the /api/user routes.
type UserHandler struct {
	svc    CreationBrowser
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc CreationBrowser, logger *slog.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger}
}

// GetUserCreations handles GET /api/user/get-user-creations.
func (h *UserHandler) GetUserCreations(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	creations, err := h.svc.ListUserCreations(r.Context(), caller.UserID)
	if err != nil {
		handleServiceError(w, r, h.logger, "get-user-creations", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.CreationListResponse{
		Success:   true,
		Creations: dto.ToCreationList(creations),
	})
}

// GetPublishedCreations handles GET /api/user/get-published-creations.
func (h *UserHandler) GetPublishedCreations(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireCaller(w, r); !ok {
		return
	}

	creations, err := h.svc.ListPublishedCreations(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, "get-published-creations", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.CreationListResponse{
		Success:   true,
		Creations: dto.ToCreationList(creations),
	})
}

// ToggleLikeCreation handles POST /api/user/toggle-like-creation.
func (h *UserHandler) ToggleLikeCreation(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	var req dto.ToggleLikeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	liked, message, err := h.svc.ToggleLike(r.Context(), caller.UserID, req.ID)
	if err != nil {
		handleServiceError(w, r, h.logger, "toggle-like-creation", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.Response{
		Success: true,
		Message: message,
		Liked:   &liked,
	})
}
