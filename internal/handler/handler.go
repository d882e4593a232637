// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/quickai/quickai/internal/auth"
	"github.com/quickai/quickai/internal/handler/dto"
	"github.com/quickai/quickai/internal/middleware"
	"github.com/quickai/quickai/internal/model"
	"github.com/quickai/quickai/internal/service"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// Handler serves the unauthenticated informational routes.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// Root reports that the server is alive.
// GET /
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"message": "QuickAI server is live",
		"version": Version,
	}
	writeJSON(w, http.StatusOK, response)
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, dto.Response{
		Success: false,
		Message: "Resource not found",
		Code:    "NOT_FOUND",
	})
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, dto.Response{
		Success: false,
		Message: "Method not allowed",
		Code:    "METHOD_NOT_ALLOWED",
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeContent writes a successful generation response.
func writeContent(w http.ResponseWriter, content string) {
	writeJSON(w, http.StatusOK, dto.Response{Success: true, Content: content})
}

// decodeJSON decodes the request body into dst, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			middleware.WriteJSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
			return false
		}
		if errors.Is(err, io.EOF) {
			middleware.WriteJSONError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is required")
			return false
		}
		middleware.WriteJSONError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return false
	}
	return true
}

// requireCaller returns the authenticated caller, writing a 401 if the
// route was mounted without the auth middleware.
func requireCaller(w http.ResponseWriter, r *http.Request) (*model.Caller, bool) {
	caller := auth.CallerFromContext(r.Context())
	if caller == nil {
		middleware.WriteJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Not authenticated")
		return nil, false
	}
	return caller, true
}

// handleServiceError logs a failed operation once and maps it to a response.
// Business failures are reported with HTTP 200 and success=false.
func handleServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, operation string, err error) {
	attrs := []any{
		slog.String("user_id", auth.UserIDFromContext(r.Context())),
		slog.String("operation", operation),
		slog.String("stage", service.Stage(err)),
		slog.String("request_id", middleware.GetRequestID(r.Context())),
		slog.String("error", err.Error()),
	}

	code := service.Code(err)
	switch {
	case code == "":
		logger.ErrorContext(r.Context(), "internal_error", attrs...)
		writeJSON(w, http.StatusInternalServerError, dto.Response{
			Success: false,
			Message: service.Message(err),
			Code:    "INTERNAL_ERROR",
		})
		return
	case errors.Is(err, service.ErrExternalService), errors.Is(err, service.ErrPersistence):
		logger.ErrorContext(r.Context(), "operation_failed", attrs...)
	default:
		logger.InfoContext(r.Context(), "operation_rejected", attrs...)
	}

	writeJSON(w, http.StatusOK, dto.Response{
		Success: false,
		Message: service.Message(err),
		Code:    code,
	})
}
