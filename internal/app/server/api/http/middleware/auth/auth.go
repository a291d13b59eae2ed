package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

// Validator resolves a bearer token to a user id.
type Validator func(token string) (string, error)

type Auth struct {
	validate Validator
	log      *slog.Logger
}

func New(validate Validator, log *slog.Logger) *Auth {
	return &Auth{
		validate: validate,
		log:      log.With(slog.String("component", "auth_middleware")),
	}
}

type contextKey string

const userIDKey contextKey = "userID"

// Middleware rejects requests without a valid bearer token and stores
// the resolved user id in the request context.
func (a *Auth) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		header := ctx.Header("Authorization")

		if !strings.HasPrefix(header, "Bearer ") {
			a.log.Warn("missing bearer token")
			writeUnauthorized(ctx)
			return
		}

		userID, err := a.validate(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			a.log.Warn("token validation failed", "error", err)
			writeUnauthorized(ctx)
			return
		}

		newCtx := context.WithValue(ctx.Context(), userIDKey, userID)
		next(huma.WithContext(ctx, newCtx))
	}
}

func writeUnauthorized(ctx huma.Context) {
	ctx.SetStatus(http.StatusUnauthorized)
	ctx.SetHeader("Content-Type", "application/json")
	json.NewEncoder(ctx.BodyWriter()).Encode(map[string]string{
		"error": "Unauthorized",
	})
}

// WithUserID injects a user id, for handler tests.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID extracts the authenticated user id from the context.
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok
}
