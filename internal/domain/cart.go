package domain

import (
	"strings"
	"time"
)

// SelectedOptions is the option snapshot captured when an item is added.
// Two cart lines with different options never merge.
type SelectedOptions struct {
	Required map[string]string `json:"required,omitempty"`
	Optional []string          `json:"optional,omitempty"`
	Notes    string            `json:"notes,omitempty"`
	Size     string            `json:"size,omitempty"`
}

func (o SelectedOptions) IsCustomized() bool {
	return len(o.Required) > 0 || len(o.Optional) > 0 || strings.TrimSpace(o.Notes) != "" || o.Size != ""
}

// CartItem is one cart line. ID is unique per add ("{productID}-{suffix}");
// ProductID is the catalog product the line was created from.
type CartItem struct {
	ID            string          `json:"id"`
	ProductID     string          `json:"product_id"`
	Name          string          `json:"name"`
	Image         string          `json:"image,omitempty"`
	UnitPrice     float64         `json:"unit_price"`
	OriginalPrice float64         `json:"original_price"`
	Discount      float64         `json:"discount"`
	Quantity      int             `json:"quantity"`
	Options       SelectedOptions `json:"options"`
	PlaceID       string          `json:"place_id"`
	PlaceName     string          `json:"place_name,omitempty"`
	AddedAt       time.Time       `json:"added_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Subtotal is always unit price times quantity; the cart total is the sum of
// these and is recomputed on every mutation, never cached independently.
func (i CartItem) Subtotal() float64 {
	return i.UnitPrice * float64(i.Quantity)
}

// Cart is the persisted record for one identity's cart.
type Cart struct {
	Items         []CartItem `json:"items"`
	TotalPrice    float64    `json:"total_price"`
	EditingItemID string     `json:"editing_item_id,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}
