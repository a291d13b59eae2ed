package product

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"vgsync/internal/app/server/api/http/middleware/auth"
	"vgsync/internal/domain/catalog"
)

// Lister is the listing store slice the handler needs.
type Lister interface {
	Products(f catalog.Filter) []catalog.Product
	FavoritesFor(userID string) []catalog.Product
}

type Handler struct {
	store     Lister
	log       *slog.Logger
	public    huma.Middlewares
	protected huma.Middlewares
}

// NewHandler takes separate middleware chains: listing is public,
// favorites require auth.
func NewHandler(store Lister, log *slog.Logger, public, protected huma.Middlewares) *Handler {
	return &Handler{
		store:     store,
		log:       log,
		public:    public,
		protected: protected,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.favoritesOp(), h.favorites)
}

func (h *Handler) list(_ context.Context, input *listInput) (*listOutput, error) {
	filter := catalog.Filter{
		Category: input.Category,
		SellerID: input.SellerID,
		Search:   input.Search,
		MinPrice: input.MinPrice,
		MaxPrice: input.MaxPrice,
	}

	return &listOutput{
		Body: listResponse{
			Products: h.store.Products(filter),
		},
	}, nil
}

func (h *Handler) favorites(ctx context.Context, _ *favoritesInput) (*favoritesOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("no authenticated user")
	}

	return &favoritesOutput{
		Body: favoritesResponse{
			Favorites: h.store.FavoritesFor(userID),
		},
	}, nil
}
