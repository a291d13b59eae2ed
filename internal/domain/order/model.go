package order

import "time"

// Status is the fulfilment state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// Order is a purchase of one or more listings.
type Order struct {
	ID         string    `json:"id"`
	BuyerID    string    `json:"buyer_id"`
	SellerID   string    `json:"seller_id"`
	ProductIDs []string  `json:"product_ids"`
	Amount     int64     `json:"amount"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	IsTemp bool `json:"_isTemp,omitempty"`
}

// Key implements the merge identity for cache reconciliation.
func (o Order) Key() string { return o.ID }

// Temp reports whether the record is a client-side placeholder.
func (o Order) Temp() bool { return o.IsTemp }

// Delivery is the courier leg of an order, updated live while a driver
// is en route.
type Delivery struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	Latitude  float64   `json:"latitude,omitempty"`
	Longitude float64   `json:"longitude,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
