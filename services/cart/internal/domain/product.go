package domain

import (
	"strings"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Product is a read-only catalog entry as seen by the cart. Prices are in the
// smallest currency unit.
type Product struct {
	id            string
	name          string
	price         int64
	loyaltyPoints int64
	available     bool
}

// NewProduct validates and builds a Product.
func NewProduct(id, name string, price, loyaltyPoints int64, available bool) (Product, error) {
	if strings.TrimSpace(id) == "" {
		return Product{}, apperrors.InvalidInput("product id is required")
	}
	if price < 0 {
		return Product{}, apperrors.InvalidInput("product price must not be negative")
	}
	if loyaltyPoints < 0 {
		return Product{}, apperrors.InvalidInput("product loyalty points must not be negative")
	}
	return Product{
		id:            id,
		name:          name,
		price:         price,
		loyaltyPoints: loyaltyPoints,
		available:     available,
	}, nil
}

// MustProduct is NewProduct for fixtures; it panics on invalid input.
func MustProduct(id, name string, price, loyaltyPoints int64, available bool) Product {
	p, err := NewProduct(id, name, price, loyaltyPoints, available)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Product) ID() string           { return p.id }
func (p Product) Name() string         { return p.name }
func (p Product) Price() int64         { return p.price }
func (p Product) LoyaltyPoints() int64 { return p.loyaltyPoints }
func (p Product) Available() bool      { return p.available }

// LineItem pairs a product with a quantity of at least one.
type LineItem struct {
	Product  Product
	Quantity int
}

// Subtotal is price times quantity.
func (li LineItem) Subtotal() int64 {
	return li.Product.price * int64(li.Quantity)
}

// Points is the loyalty yield times quantity.
func (li LineItem) Points() int64 {
	return li.Product.loyaltyPoints * int64(li.Quantity)
}
