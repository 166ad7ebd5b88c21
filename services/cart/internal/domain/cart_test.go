package domain

import (
	"encoding/json"
	"math/rand/v2"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

var (
	productA = MustProduct("prod-a", "Arabica Beans 1kg", 3200, 32, true)
	productB = MustProduct("prod-b", "Oat Milk Case", 4200, 42, true)
	productC = MustProduct("prod-c", "Paper Cups x500", 1500, 0, false)
)

// exampleCart is A x2 + B x1.
func exampleCart() *Cart {
	c := &Cart{}
	c.Add(productA)
	c.Add(productA)
	c.Add(productB)
	return c
}

func productIDs(c *Cart) []string {
	ids := make([]string, 0, c.Len())
	for _, li := range c.Items() {
		ids = append(ids, li.Product.ID())
	}
	return ids
}

// ============================================================================
// Product
// ============================================================================

func TestNewProduct_Valid(t *testing.T) {
	p, err := NewProduct("sku-1", "Widget", 0, 0, true)

	require.NoError(t, err)
	assert.Equal(t, "sku-1", p.ID())
	assert.Equal(t, "Widget", p.Name())
	assert.Zero(t, p.Price())
	assert.True(t, p.Available())
}

func TestNewProduct_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		price  int64
		points int64
		msg    string
	}{
		{"empty id", " ", 100, 1, "product id is required"},
		{"negative price", "sku-1", -1, 1, "product price must not be negative"},
		{"negative points", "sku-1", 100, -5, "product loyalty points must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProduct(tt.id, "x", tt.price, tt.points, true)

			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestMustProduct_Panics(t *testing.T) {
	assert.Panics(t, func() { MustProduct("", "x", 1, 1, true) })
}

func TestLineItem_SubtotalAndPoints(t *testing.T) {
	li := LineItem{Product: productA, Quantity: 3}

	assert.Equal(t, int64(9600), li.Subtotal())
	assert.Equal(t, int64(96), li.Points())
}

// ============================================================================
// Add
// ============================================================================

func TestAdd_NewProductInsertsQuantityOne(t *testing.T) {
	c := &Cart{}

	assert.True(t, c.Add(productA))

	li, ok := c.Item("prod-a")
	require.True(t, ok)
	assert.Equal(t, 1, li.Quantity)
	assert.Equal(t, 1, c.Len())
}

func TestAdd_TwiceMergesIntoOneLine(t *testing.T) {
	c := &Cart{}
	c.Add(productA)
	c.Add(productA)

	require.Equal(t, 1, c.Len())
	li, _ := c.Item("prod-a")
	assert.Equal(t, 2, li.Quantity)
}

func TestAdd_PreservesInsertionOrder(t *testing.T) {
	c := &Cart{}
	c.Add(productB)
	c.Add(productA)
	c.Add(productC)
	c.Add(productB)

	assert.Equal(t, []string{"prod-b", "prod-a", "prod-c"}, productIDs(c))
}

func TestAdd_UnavailableProductIsAccepted(t *testing.T) {
	c := &Cart{}

	assert.True(t, c.Add(productC))
	assert.Equal(t, 1, c.ItemCount())
}

func TestAdd_RefreshesProductSnapshot(t *testing.T) {
	c := &Cart{}
	c.Add(productA)
	c.Add(MustProduct("prod-a", "Arabica Beans 1kg", 3500, 35, true))

	li, _ := c.Item("prod-a")
	assert.Equal(t, int64(3500), li.Product.Price())
	assert.Equal(t, int64(7000), c.TotalPrice())
}

func TestAdd_ZeroValueProductIgnored(t *testing.T) {
	c := &Cart{}

	assert.False(t, c.Add(Product{}))
	assert.Zero(t, c.Len())
}

// ============================================================================
// SetQuantity
// ============================================================================

func TestSetQuantity_UpdatesExistingLine(t *testing.T) {
	c := exampleCart()

	assert.True(t, c.SetQuantity("prod-b", 5))

	li, _ := c.Item("prod-b")
	assert.Equal(t, 5, li.Quantity)
	assert.Equal(t, 7, c.ItemCount())
}

func TestSetQuantity_ZeroRemovesLine(t *testing.T) {
	c := exampleCart()
	before := c.ItemCount()

	assert.True(t, c.SetQuantity("prod-a", 0))

	_, ok := c.Item("prod-a")
	assert.False(t, ok)
	assert.Equal(t, before-2, c.ItemCount())
	assert.Equal(t, []string{"prod-b"}, productIDs(c))
}

func TestSetQuantity_ZeroOnAbsentIsNoop(t *testing.T) {
	c := exampleCart()

	assert.False(t, c.SetQuantity("prod-z", 0))
	assert.Equal(t, 3, c.ItemCount())
}

func TestSetQuantity_UnknownProductDoesNotInsert(t *testing.T) {
	c := exampleCart()
	before := c.Items()

	assert.False(t, c.SetQuantity("prod-z", 4))

	assert.Equal(t, before, c.Items())
	_, ok := c.Item("prod-z")
	assert.False(t, ok)
}

func TestSetQuantity_NegativeIsNoop(t *testing.T) {
	c := exampleCart()

	assert.False(t, c.SetQuantity("prod-a", -3))

	li, _ := c.Item("prod-a")
	assert.Equal(t, 2, li.Quantity)
}

func TestSetQuantity_SameValueReportsNoChange(t *testing.T) {
	c := exampleCart()

	assert.False(t, c.SetQuantity("prod-a", 2))
}

// ============================================================================
// Remove / Clear
// ============================================================================

func TestRemove_Idempotent(t *testing.T) {
	once := exampleCart()
	twice := exampleCart()

	assert.True(t, once.Remove("prod-a"))
	assert.True(t, twice.Remove("prod-a"))
	assert.False(t, twice.Remove("prod-a"))

	assert.Equal(t, once.Items(), twice.Items())
	assert.Equal(t, once.TotalPrice(), twice.TotalPrice())
}

func TestRemove_KeepsOrderOfRemaining(t *testing.T) {
	c := &Cart{}
	c.Add(productA)
	c.Add(productB)
	c.Add(productC)

	c.Remove("prod-b")
	c.Add(productB)

	assert.Equal(t, []string{"prod-a", "prod-c", "prod-b"}, productIDs(c))
}

func TestClear_ZeroesTotals(t *testing.T) {
	c := exampleCart()

	assert.True(t, c.Clear())

	assert.Zero(t, c.TotalPrice())
	assert.Zero(t, c.TotalLoyaltyPoints())
	assert.Zero(t, c.ItemCount())
	assert.Empty(t, c.Items())
	assert.False(t, c.Clear())
}

func TestClear_CartUsableAfterwards(t *testing.T) {
	c := exampleCart()
	c.Clear()
	c.Add(productB)

	assert.Equal(t, []string{"prod-b"}, productIDs(c))
}

// ============================================================================
// Totals
// ============================================================================

func TestTotals_Example(t *testing.T) {
	c := exampleCart()

	assert.Equal(t, int64(10600), c.TotalPrice())
	assert.Equal(t, int64(106), c.TotalLoyaltyPoints())
	assert.Equal(t, 3, c.ItemCount())
	assert.Equal(t, 2, c.Len())
}

func TestTotals_EmptyCart(t *testing.T) {
	var c Cart

	assert.Zero(t, c.TotalPrice())
	assert.Zero(t, c.TotalLoyaltyPoints())
	assert.Zero(t, c.ItemCount())
	assert.Empty(t, c.Items())
}

func TestTotals_RandomizedMatchesSum(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))

	for round := 0; round < 200; round++ {
		c := &Cart{}
		wantQty := map[string]int{}
		products := map[string]Product{}

		ops := rng.IntN(20)
		for i := 0; i < ops; i++ {
			id := "p" + strconv.Itoa(rng.IntN(8))
			p := MustProduct(id, id, rng.Int64N(1_000_000), rng.Int64N(1000), true)
			products[id] = p

			switch rng.IntN(4) {
			case 0, 1:
				c.Add(p)
				wantQty[id]++
			case 2:
				if _, ok := wantQty[id]; ok {
					q := rng.IntN(5)
					c.SetQuantity(id, q)
					if q == 0 {
						delete(wantQty, id)
					} else {
						wantQty[id] = q
					}
				}
			case 3:
				c.Remove(id)
				delete(wantQty, id)
			}
		}

		var wantPrice, wantPoints int64
		var wantCount int
		for _, li := range c.Items() {
			wantPrice += li.Product.Price() * int64(li.Quantity)
			wantPoints += li.Product.LoyaltyPoints() * int64(li.Quantity)
			wantCount += li.Quantity
			assert.Equal(t, wantQty[li.Product.ID()], li.Quantity)
			assert.GreaterOrEqual(t, li.Quantity, 1)
		}

		assert.Len(t, c.Items(), len(wantQty))
		assert.Equal(t, wantPrice, c.TotalPrice())
		assert.Equal(t, wantPoints, c.TotalLoyaltyPoints())
		assert.Equal(t, wantCount, c.ItemCount())
	}
}

// ============================================================================
// Items / Touch / NewCart
// ============================================================================

func TestItems_ReturnsCopy(t *testing.T) {
	c := exampleCart()

	items := c.Items()
	items[0].Quantity = 99

	li, _ := c.Item("prod-a")
	assert.Equal(t, 2, li.Quantity)
}

func TestNewCart_Defaults(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := NewCart("cart-1", "sess-1", "", now, time.Hour)

	assert.Equal(t, DefaultCurrency, c.Currency)
	assert.Equal(t, now, c.CreatedAt)
	assert.Equal(t, now.Add(time.Hour), c.ExpiresAt)
	assert.Zero(t, c.Version)
}

func TestTouch(t *testing.T) {
	c := NewCart("cart-1", "sess-1", "EUR", time.Unix(0, 0).UTC(), time.Hour)
	later := time.Unix(3600, 0).UTC()

	c.Touch(later, 2*time.Hour)

	assert.Equal(t, later, c.UpdatedAt)
	assert.Equal(t, later.Add(2*time.Hour), c.ExpiresAt)
}

// ============================================================================
// JSON
// ============================================================================

func TestMarshalJSON_IncludesDerivedTotals(t *testing.T) {
	c := exampleCart()
	c.ID = "cart-1"
	c.SessionID = "sess-1"
	c.Currency = "USD"

	raw, err := json.Marshal(c)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, float64(10600), out["total_price"])
	assert.Equal(t, float64(106), out["total_loyalty_points"])
	assert.Equal(t, float64(3), out["item_count"])

	items := out["items"].([]any)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	assert.Equal(t, "prod-a", first["product_id"])
	assert.Equal(t, float64(6400), first["subtotal"])
	assert.Equal(t, float64(64), first["points"])
}

func TestMarshalJSON_EmptyCartHasEmptyItems(t *testing.T) {
	raw, err := json.Marshal(&Cart{})
	require.NoError(t, err)

	assert.Contains(t, string(raw), `"items":[]`)
}

func TestJSON_RoundTripPreservesOrder(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	c := NewCart("cart-1", "sess-1", "USD", now, time.Hour)
	c.Version = 4
	c.Add(productB)
	c.Add(productA)
	c.Add(productA)
	c.Add(productC)

	raw, err := json.Marshal(c)
	require.NoError(t, err)

	var got Cart
	require.NoError(t, json.Unmarshal(raw, &got))

	assert.Equal(t, c.Items(), got.Items())
	assert.Equal(t, 4, got.Version)
	assert.Equal(t, "sess-1", got.SessionID)
	assert.True(t, c.ExpiresAt.Equal(got.ExpiresAt))
}

func TestUnmarshalJSON_EnforcesInvariants(t *testing.T) {
	raw := `{
		"id": "cart-1",
		"items": [
			{"product_id": "prod-a", "name": "A", "unit_price": 3200, "loyalty_points": 32, "quantity": 1},
			{"product_id": "prod-b", "name": "B", "unit_price": 4200, "loyalty_points": 42, "quantity": 0},
			{"product_id": "prod-a", "name": "A", "unit_price": 3200, "loyalty_points": 32, "quantity": 2}
		],
		"total_price": 1
	}`

	var c Cart
	require.NoError(t, json.Unmarshal([]byte(raw), &c))

	assert.Equal(t, []string{"prod-a"}, productIDs(&c))
	li, _ := c.Item("prod-a")
	assert.Equal(t, 3, li.Quantity)
	assert.Equal(t, int64(9600), c.TotalPrice())
}

func TestUnmarshalJSON_InvalidProduct(t *testing.T) {
	raw := `{"items":[{"product_id":"prod-a","unit_price":-1,"quantity":1}]}`

	var c Cart
	err := json.Unmarshal([]byte(raw), &c)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cart item 0")
}
