package product

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "products-list",
		Method:      http.MethodGet,
		Path:        "/api/v1/products",
		Summary:     "List marketplace listings",
		Description: "Returns listings matching the optional filter query parameters",
		Tags:        []string{"products"},
		Middlewares: h.public,
	}
}

func (h *Handler) favoritesOp() huma.Operation {
	return huma.Operation{
		OperationID: "products-favorites",
		Method:      http.MethodGet,
		Path:        "/api/v1/products/favorites",
		Summary:     "List the user's favorite listings",
		Tags:        []string{"products"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.protected,
	}
}
