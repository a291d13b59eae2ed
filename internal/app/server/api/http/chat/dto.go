package chat

import "vgsync/internal/domain/chat"

type listInput struct{}

type listOutput struct {
	Body listResponse
}

type listResponse struct {
	Chats []chat.Chat `json:"chats"`
}

type messagesInput struct {
	ID string `path:"id" doc:"Chat ID"`
}

type messagesOutput struct {
	Body messagesResponse
}

type messagesResponse struct {
	Messages []chat.Message `json:"messages"`
}
