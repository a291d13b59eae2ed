package order

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) myOrdersOp() huma.Operation {
	return huma.Operation{
		OperationID: "orders-my-orders",
		Method:      http.MethodGet,
		Path:        "/api/v1/orders/my-orders",
		Summary:     "List the user's orders",
		Description: "Returns orders where the user is buyer or seller, newest first",
		Tags:        []string{"orders"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
