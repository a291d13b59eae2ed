package chat

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"vgsync/internal/app/server/api/http/middleware/auth"
	"vgsync/internal/domain/chat"
)

// Lister is the conversation store slice the handler needs.
type Lister interface {
	ChatsFor(userID string) []chat.Chat
	Messages(chatID string) []chat.Message
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
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.messagesOp(), h.messages)
}

func (h *Handler) list(ctx context.Context, _ *listInput) (*listOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("no authenticated user")
	}

	return &listOutput{
		Body: listResponse{
			Chats: h.store.ChatsFor(userID),
		},
	}, nil
}

func (h *Handler) messages(ctx context.Context, input *messagesInput) (*messagesOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("no authenticated user")
	}

	// The chat must belong to the requester.
	member := false
	for _, c := range h.store.ChatsFor(userID) {
		if c.ID == input.ID {
			member = true
			break
		}
	}
	if !member {
		return nil, huma.Error404NotFound("chat not found")
	}

	return &messagesOutput{
		Body: messagesResponse{
			Messages: h.store.Messages(input.ID),
		},
	}, nil
}
