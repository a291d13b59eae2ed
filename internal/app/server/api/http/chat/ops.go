package chat

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "chats-list",
		Method:      http.MethodGet,
		Path:        "/api/v1/chats",
		Summary:     "List the user's conversations",
		Tags:        []string{"chats"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) messagesOp() huma.Operation {
	return huma.Operation{
		OperationID: "chats-messages",
		Method:      http.MethodGet,
		Path:        "/api/v1/chats/{id}/messages",
		Summary:     "List a conversation's messages",
		Tags:        []string{"chats"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
