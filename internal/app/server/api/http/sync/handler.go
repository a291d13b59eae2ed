package sync

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"vgsync/internal/app/server/api/http/middleware/auth"
	"vgsync/internal/domain/sync"
)

// Batcher applies a client batch and assembles the response.
type Batcher interface {
	ApplyBatch(userID string, req sync.BatchRequest) *sync.BatchResponse
}

type Handler struct {
	store      Batcher
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(store Batcher, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		store:      store,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.batchSyncOp(), h.batchSync)
}

func (h *Handler) batchSync(ctx context.Context, input *batchSyncInput) (*batchSyncOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("no authenticated user")
	}

	h.log.Debug("batch sync received",
		"user_id", userID,
		"actions", len(input.Body.Actions),
	)

	resp := h.store.ApplyBatch(userID, input.Body)

	return &batchSyncOutput{Body: *resp}, nil
}
