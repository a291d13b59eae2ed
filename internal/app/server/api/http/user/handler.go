package user

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"vgsync/internal/app/server/api/http/middleware/auth"
	"vgsync/internal/domain/user"
)

// Profiler is the user store slice the handler needs.
type Profiler interface {
	Profile(userID string) (user.User, bool)
}

type Handler struct {
	store      Profiler
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(store Profiler, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		store:      store,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.profileOp(), h.profile)
}

func (h *Handler) profile(ctx context.Context, _ *profileInput) (*profileOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("no authenticated user")
	}

	u, ok := h.store.Profile(userID)
	if !ok {
		return nil, huma.Error404NotFound("profile not found")
	}

	return &profileOutput{Body: u}, nil
}
