package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type cartJSON struct {
	ID                 string         `json:"id"`
	SessionID          string         `json:"session_id"`
	Currency           string         `json:"currency"`
	Version            int            `json:"version"`
	Items              []lineItemJSON `json:"items"`
	ItemCount          int            `json:"item_count"`
	TotalPrice         int64          `json:"total_price"`
	TotalLoyaltyPoints int64          `json:"total_loyalty_points"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	ExpiresAt          time.Time      `json:"expires_at"`
}

type lineItemJSON struct {
	ProductID     string `json:"product_id"`
	Name          string `json:"name"`
	UnitPrice     int64  `json:"unit_price"`
	LoyaltyPoints int64  `json:"loyalty_points"`
	Available     bool   `json:"available"`
	Quantity      int    `json:"quantity"`
	Subtotal      int64  `json:"subtotal"`
	Points        int64  `json:"points"`
}

// MarshalJSON encodes the cart with its lines in order and the derived totals.
func (c *Cart) MarshalJSON() ([]byte, error) {
	items := make([]lineItemJSON, 0, len(c.order))
	for _, li := range c.Items() {
		items = append(items, lineItemJSON{
			ProductID:     li.Product.id,
			Name:          li.Product.name,
			UnitPrice:     li.Product.price,
			LoyaltyPoints: li.Product.loyaltyPoints,
			Available:     li.Product.available,
			Quantity:      li.Quantity,
			Subtotal:      li.Subtotal(),
			Points:        li.Points(),
		})
	}

	return json.Marshal(cartJSON{
		ID:                 c.ID,
		SessionID:          c.SessionID,
		Currency:           c.Currency,
		Version:            c.Version,
		Items:              items,
		ItemCount:          c.ItemCount(),
		TotalPrice:         c.TotalPrice(),
		TotalLoyaltyPoints: c.TotalLoyaltyPoints(),
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
		ExpiresAt:          c.ExpiresAt,
	})
}

// UnmarshalJSON rebuilds a cart from its encoded form. Derived totals are
// ignored and recomputed. Lines with a non-positive quantity are dropped and
// repeated product IDs are merged into the first occurrence.
func (c *Cart) UnmarshalJSON(data []byte) error {
	var raw cartJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	rebuilt := Cart{
		ID:        raw.ID,
		SessionID: raw.SessionID,
		Currency:  raw.Currency,
		Version:   raw.Version,
		CreatedAt: raw.CreatedAt,
		UpdatedAt: raw.UpdatedAt,
		ExpiresAt: raw.ExpiresAt,
	}

	for i, item := range raw.Items {
		if item.Quantity <= 0 {
			continue
		}
		p, err := NewProduct(item.ProductID, item.Name, item.UnitPrice, item.LoyaltyPoints, item.Available)
		if err != nil {
			return fmt.Errorf("cart item %d: %w", i, err)
		}
		if existing, ok := rebuilt.lines[p.id]; ok {
			existing.Quantity += item.Quantity
			continue
		}
		rebuilt.Add(p)
		rebuilt.lines[p.id].Quantity = item.Quantity
	}

	*c = rebuilt
	return nil
}
