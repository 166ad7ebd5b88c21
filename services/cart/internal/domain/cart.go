package domain

import "time"

// DefaultCurrency is used for carts created without an explicit currency.
const DefaultCurrency = "USD"

// Cart is the storefront session cart: line items unique by product ID,
// iterated in insertion order. The zero value is an empty, usable cart.
//
// Cart is not safe for concurrent use; a session store serializes writers.
type Cart struct {
	ID        string
	SessionID string
	Currency  string
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time

	lines map[string]*LineItem
	order []string
}

// NewCart returns an empty cart for the given session.
func NewCart(id, sessionID, currency string, now time.Time, ttl time.Duration) *Cart {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Cart{
		ID:        id,
		SessionID: sessionID,
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Add puts one unit of p into the cart. An existing line is incremented and
// its product snapshot refreshed; otherwise a new line is appended.
// Availability is not checked here.
func (c *Cart) Add(p Product) bool {
	if p.id == "" {
		return false
	}
	if li, ok := c.lines[p.id]; ok {
		li.Quantity++
		li.Product = p
		return true
	}
	if c.lines == nil {
		c.lines = make(map[string]*LineItem)
	}
	c.lines[p.id] = &LineItem{Product: p, Quantity: 1}
	c.order = append(c.order, p.id)
	return true
}

// SetQuantity sets the quantity of an existing line. Zero removes the line.
// Unknown product IDs and negative quantities leave the cart unchanged.
func (c *Cart) SetQuantity(productID string, quantity int) bool {
	if quantity < 0 {
		return false
	}
	if quantity == 0 {
		return c.Remove(productID)
	}
	li, ok := c.lines[productID]
	if !ok || li.Quantity == quantity {
		return false
	}
	li.Quantity = quantity
	return true
}

// Remove drops the line for productID if present.
func (c *Cart) Remove(productID string) bool {
	if _, ok := c.lines[productID]; !ok {
		return false
	}
	delete(c.lines, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// Clear empties the cart.
func (c *Cart) Clear() bool {
	if len(c.order) == 0 {
		return false
	}
	c.lines = nil
	c.order = nil
	return true
}

// TotalPrice is the sum of price times quantity over all lines.
func (c *Cart) TotalPrice() int64 {
	var total int64
	for _, li := range c.lines {
		total += li.Subtotal()
	}
	return total
}

// TotalLoyaltyPoints is the sum of loyalty points times quantity over all lines.
func (c *Cart) TotalLoyaltyPoints() int64 {
	var total int64
	for _, li := range c.lines {
		total += li.Points()
	}
	return total
}

// ItemCount is the sum of all quantities, not the number of lines.
func (c *Cart) ItemCount() int {
	var count int
	for _, li := range c.lines {
		count += li.Quantity
	}
	return count
}

// Len returns the number of distinct lines.
func (c *Cart) Len() int {
	return len(c.order)
}

// Item returns the line for productID.
func (c *Cart) Item(productID string) (LineItem, bool) {
	li, ok := c.lines[productID]
	if !ok {
		return LineItem{}, false
	}
	return *li, true
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []LineItem {
	items := make([]LineItem, 0, len(c.order))
	for _, id := range c.order {
		items = append(items, *c.lines[id])
	}
	return items
}

// Touch records a modification at now and pushes the expiry out by ttl.
func (c *Cart) Touch(now time.Time, ttl time.Duration) {
	c.UpdatedAt = now
	c.ExpiresAt = now.Add(ttl)
}
