package user

import "time"

// User is the authenticated account profile.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email,omitempty"`
	Region    string    `json:"region,omitempty"`
	City      string    `json:"city,omitempty"`
	Role      string    `json:"role,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Notification is an in-app notification entry.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`

	IsTemp bool `json:"_isTemp,omitempty"`
}

// Key implements the merge identity for cache reconciliation.
func (n Notification) Key() string { return n.ID }

// Temp reports whether the record is a client-side placeholder.
func (n Notification) Temp() bool { return n.IsTemp }
