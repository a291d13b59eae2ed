package order

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"vgsync/internal/app/server/api/http/middleware/auth"
	"vgsync/internal/domain/order"
)

// Lister is the order store slice the handler needs.
type Lister interface {
	OrdersFor(userID string) []order.Order
}

type Handler struct {
	store      Lister
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(store Lister, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		store:      store,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.myOrdersOp(), h.myOrders)
}

func (h *Handler) myOrders(ctx context.Context, _ *myOrdersInput) (*myOrdersOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("no authenticated user")
	}

	return &myOrdersOutput{
		Body: myOrdersResponse{
			Orders: h.store.OrdersFor(userID),
		},
	}, nil
}
