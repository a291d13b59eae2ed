package sync

import (
	"fmt"
	"time"

	"vgsync/internal/domain/catalog"
)

// ActionType enumerates the mutations a client can queue while offline.
type ActionType string

const (
	ActionMessageSend    ActionType = "message_send"
	ActionProductCreate  ActionType = "product_create"
	ActionProductUpdate  ActionType = "product_update"
	ActionFavoriteToggle ActionType = "favorite_toggle"
)

// Action is one queued client mutation. Exactly one payload field is
// non-nil, selected by Type; use the New* constructors so the pairing
// cannot drift.
type Action struct {
	ID        string     `json:"id"`
	Type      ActionType `json:"type"`
	CreatedAt time.Time  `json:"createdAt"`

	// RetryFlag marks an action re-enqueued after a client-wins
	// conflict resolution.
	RetryFlag bool `json:"retryFlag,omitempty"`
	// Attempts counts how many times the server rejected the action
	// with a validation error. Capped by the queue's dead-letter policy.
	Attempts int `json:"attempts,omitempty"`

	MessageSend    *MessageSendPayload    `json:"messageSend,omitempty"`
	ProductCreate  *ProductCreatePayload  `json:"productCreate,omitempty"`
	ProductUpdate  *ProductUpdatePayload  `json:"productUpdate,omitempty"`
	FavoriteToggle *FavoriteTogglePayload `json:"favoriteToggle,omitempty"`
}

// MessageSendPayload carries an offline-composed chat message. TempID is
// the client-generated placeholder id the server translates on commit.
type MessageSendPayload struct {
	ChatID  string    `json:"chatId"`
	TempID  string    `json:"tempId"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sentAt"`
}

// ProductCreatePayload carries a listing created offline.
type ProductCreatePayload struct {
	TempID  string          `json:"tempId"`
	Product catalog.Product `json:"product"`
}

// ProductUpdatePayload carries an edit to an existing listing.
type ProductUpdatePayload struct {
	ProductID string          `json:"productId"`
	Product   catalog.Product `json:"product"`
}

// FavoriteTogglePayload flips favorite membership for one product.
type FavoriteTogglePayload struct {
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`
}

// NewMessageSend builds a message_send action.
func NewMessageSend(p MessageSendPayload) Action {
	return Action{Type: ActionMessageSend, MessageSend: &p}
}

// NewProductCreate builds a product_create action.
func NewProductCreate(p ProductCreatePayload) Action {
	return Action{Type: ActionProductCreate, ProductCreate: &p}
}

// NewProductUpdate builds a product_update action.
func NewProductUpdate(p ProductUpdatePayload) Action {
	return Action{Type: ActionProductUpdate, ProductUpdate: &p}
}

// NewFavoriteToggle builds a favorite_toggle action.
func NewFavoriteToggle(p FavoriteTogglePayload) Action {
	return Action{Type: ActionFavoriteToggle, FavoriteToggle: &p}
}

// Validate checks that the action's type matches its populated payload.
func (a Action) Validate() error {
	var want bool
	switch a.Type {
	case ActionMessageSend:
		want = a.MessageSend != nil
	case ActionProductCreate:
		want = a.ProductCreate != nil
	case ActionProductUpdate:
		want = a.ProductUpdate != nil
	case ActionFavoriteToggle:
		want = a.FavoriteToggle != nil
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
	if !want {
		return fmt.Errorf("action %s missing %s payload", a.ID, a.Type)
	}
	return nil
}

// Resolution is the server's verdict on a conflicting action.
type Resolution string

const (
	ServerWins Resolution = "server_wins"
	ClientWins Resolution = "client_wins"
	Manual     Resolution = "manual"
)

// Conflict is a per-action conflict report returned by the batch-sync
// endpoint. ClientData is the client's version of the mutation so a
// client-wins resolution can be replayed.
type Conflict struct {
	Type       ActionType `json:"type"`
	Resolution Resolution `json:"resolution"`
	ClientData *Action    `json:"clientData,omitempty"`
	Reason     string     `json:"reason,omitempty"`
	CreatedAt  time.Time  `json:"createdAt,omitempty"`
}
