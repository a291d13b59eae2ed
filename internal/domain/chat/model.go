package chat

import "time"

// MessageStatus tracks delivery progress of a message from the sender's
// point of view.
type MessageStatus string

const (
	StatusPending   MessageStatus = "pending"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
	StatusFailed    MessageStatus = "failed"
)

// Message is a single chat message.
type Message struct {
	ID       string        `json:"id"`
	ChatID   string        `json:"chat_id"`
	SenderID string        `json:"sender_id"`
	Text     string        `json:"text"`
	SentAt   time.Time     `json:"sent_at"`
	Status   MessageStatus `json:"status,omitempty"`

	// IsTemp marks messages composed offline (or before server ack).
	// Temp messages carry a "temp_" id prefix and StatusPending; the
	// server must never be treated as authoritative for them.
	IsTemp bool `json:"_isTemp,omitempty"`
}

// Key implements the merge identity for cache reconciliation.
func (m Message) Key() string { return m.ID }

// Temp reports whether the record is a client-side placeholder.
func (m Message) Temp() bool { return m.IsTemp }

// Chat is a buyer/seller conversation, usually anchored to a listing.
type Chat struct {
	ID           string    `json:"id"`
	ProductID    string    `json:"product_id,omitempty"`
	Participants []string  `json:"participants"`
	LastMessage  string    `json:"last_message,omitempty"`
	UnreadCount  int       `json:"unread_count,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`

	IsTemp bool `json:"_isTemp,omitempty"`
}

func (c Chat) Key() string { return c.ID }
func (c Chat) Temp() bool  { return c.IsTemp }
