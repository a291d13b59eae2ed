package sync

import (
	"time"

	"vgsync/internal/domain/catalog"
	"vgsync/internal/domain/chat"
	"vgsync/internal/domain/order"
	"vgsync/internal/domain/user"
)

// DTOs for the batch-sync API.

// BatchRequest is the body of POST /sync: every queued action in the
// batch plus the client's last known sync timestamp.
type BatchRequest struct {
	LastSyncTimestamp time.Time `json:"lastSyncTimestamp" format:"date-time"`
	Actions           []Action  `json:"actions"`
}

// BatchData is the authoritative server state returned alongside a
// committed batch. Absent collections mean "no change since the given
// timestamp", not "empty".
type BatchData struct {
	Profile       *user.User          `json:"profile,omitempty"`
	Products      []catalog.Product   `json:"products,omitempty"`
	Orders        []order.Order       `json:"orders,omitempty"`
	Chats         []chat.Chat         `json:"chats,omitempty"`
	Messages      []chat.Message      `json:"messages,omitempty"`
	Favorites     []catalog.Product   `json:"favorites,omitempty"`
	Notifications []user.Notification `json:"notifications,omitempty"`
}

// ResolvedTemp maps a client-generated placeholder id to the committed
// server record, carrying the full entity so the client can swap its
// optimistic copy in place. Replayed actions report the original
// commit again, which keeps the mapping safe to deliver twice.
type ResolvedTemp struct {
	Type     ActionType       `json:"type"`
	TempID   string           `json:"tempId"`
	ServerID string           `json:"serverId"`
	Message  *chat.Message    `json:"message,omitempty"`
	Product  *catalog.Product `json:"product,omitempty"`
}

// ActionError reports a validation-class rejection of a single batch
// item. Retrying cannot fix these, so the queue caps attempts instead of
// looping forever.
type ActionError struct {
	ActionID string `json:"actionId"`
	Status   int    `json:"status"`
	Message  string `json:"message"`
}

// BatchResponse is the server's reply to a committed batch.
type BatchResponse struct {
	Data      BatchData      `json:"data"`
	Resolved  []ResolvedTemp `json:"resolved,omitempty"`
	Conflicts []Conflict     `json:"conflicts,omitempty"`
	Rejected  []ActionError  `json:"rejected,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
