package user

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) profileOp() huma.Operation {
	return huma.Operation{
		OperationID: "users-profile",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/profile",
		Summary:     "Get the authenticated user's profile",
		Tags:        []string{"users"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
