package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/quickai/quickai/internal/auth"
	"github.com/quickai/quickai/internal/identity"
	"github.com/quickai/quickai/internal/model"
)

// SessionVerifier turns a bearer token into a verified session.
type SessionVerifier interface {
	Verify(ctx context.Context, token string) (*model.Session, error)
}

// CallerResolver loads the caller for a verified session.
type CallerResolver interface {
	Resolve(ctx context.Context, session *model.Session) (*model.Caller, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger   *slog.Logger
	Verifier SessionVerifier
	Resolver CallerResolver
}

// Auth returns a middleware that authenticates requests with a session token.
// It verifies the bearer token, resolves the caller (plan and free usage)
// and injects the caller into the request context.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", "missing_token"),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}

			session, err := cfg.Verifier.Verify(r.Context(), token)
			if err != nil {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", "invalid_token"),
					slog.String("error", err.Error()),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}

			caller, err := cfg.Resolver.Resolve(r.Context(), session)
			if err != nil {
				if errors.Is(err, identity.ErrUserNotFound) {
					cfg.Logger.Warn("authentication failed",
						slog.String("reason", "unknown_user"),
						slog.String("user_id", session.UserID),
						slog.String("request_id", GetRequestID(r.Context())),
					)
					writeAuthError(w)
					return
				}

				cfg.Logger.Error("identity lookup failed",
					slog.String("user_id", session.UserID),
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				WriteJSONError(w, http.StatusServiceUnavailable, "IDENTITY_UNAVAILABLE", "Could not load account details. Please try again.")
				return
			}

			cfg.Logger.Debug("authentication successful",
				slog.String("user_id", caller.UserID),
				slog.String("plan", string(caller.Plan)),
				slog.Int("free_usage", caller.FreeUsage),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			ctx := auth.ContextWithCaller(r.Context(), caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearerToken extracts the session token from the Authorization header.
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}

// writeAuthError writes a 401 Unauthorized response.
// Uses the same message for all auth failures to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	WriteJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Not authenticated")
}

type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// WriteJSONError writes the API error envelope with the given status.
func WriteJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Success: false, Message: message, Code: code})
}
