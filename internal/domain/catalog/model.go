package catalog

import (
	"strings"
	"time"
)

// ProductStatus is the moderation/visibility state of a listing.
type ProductStatus string

const (
	StatusDraft    ProductStatus = "draft"
	StatusActive   ProductStatus = "active"
	StatusSold     ProductStatus = "sold"
	StatusArchived ProductStatus = "archived"
)

// Product is a marketplace listing. Prices are in XAF (no minor units).
type Product struct {
	ID          string        `json:"id"`
	SellerID    string        `json:"seller_id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Category    string        `json:"category"`
	Price       int64         `json:"price"`
	Images      []string      `json:"images,omitempty"`
	Status      ProductStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	// IsTemp marks listings created offline that have not been
	// acknowledged by the server yet. Temp products carry a "temp_"
	// id prefix and are replaced wholesale on acknowledgment.
	IsTemp bool `json:"_isTemp,omitempty"`
}

// Key implements the merge identity for cache reconciliation.
func (p Product) Key() string { return p.ID }

// Temp reports whether the record is a client-side placeholder.
func (p Product) Temp() bool { return p.IsTemp }

// Filter narrows a product collection. Zero-valued fields impose no
// constraint; set fields compose with AND semantics.
type Filter struct {
	Category string
	SellerID string
	Search   string
	MinPrice int64
	MaxPrice int64
}

// Match reports whether p satisfies every set constraint of f.
// Search is a case-insensitive substring match over title and description.
func (f Filter) Match(p Product) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.SellerID != "" && p.SellerID != f.SellerID {
		return false
	}
	if f.MinPrice > 0 && p.Price < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && p.Price > f.MaxPrice {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Title), needle) &&
			!strings.Contains(strings.ToLower(p.Description), needle) {
			return false
		}
	}
	return true
}

// Apply returns the subset of products matching f, preserving order.
func (f Filter) Apply(products []Product) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}
