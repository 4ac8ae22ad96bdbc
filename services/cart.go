package services

import (
	"github.com/shopspring/decimal"

	"bitenow/models"
)

// Cart maps an item id's text form to a cart entry. Entries iterate in the order their item
// was first added; removing an entry completely and adding it again moves it
// to the end.
type Cart struct {
	entries map[string]*models.CartEntry
	order   []string
	fee     decimal.Decimal
}

// NewCart returns an empty cart that charges deliveryFee on any non-zero subtotal.
func NewCart(deliveryFee decimal.Decimal) *Cart {
	return &Cart{
		entries: make(map[string]*models.CartEntry),
		fee:     deliveryFee,
	}
}

// Add increments the quantity for item.ID, inserting it at 1 if absent.
// Availability is not checked here.
func (c *Cart) Add(item models.MenuItem) {
	key := item.ID.String()
	if e, ok := c.entries[key]; ok {
		e.Quantity++
		return
	}
	c.entries[key] = &models.CartEntry{Item: item, Quantity: 1}
	c.order = append(c.order, key)
}

// Remove decrements the quantity for id and drops the entry at zero.
// Unknown ids are ignored.
func (c *Cart) Remove(id models.ItemID) {
	key := id.String()
	e, ok := c.entries[key]
	if !ok {
		return
	}
	if e.Quantity > 1 {
		e.Quantity--
		return
	}
	delete(c.entries, key)
	for i, v := range c.order {
		if v == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Cart) Quantity(id models.ItemID) int {
	if e, ok := c.entries[id.String()]; ok {
		return e.Quantity
	}
	return 0
}

func (c *Cart) Len() int { return len(c.order) }

func (c *Cart) IsEmpty() bool { return len(c.order) == 0 }

func (c *Cart) Clear() {
	c.entries = make(map[string]*models.CartEntry)
	c.order = nil
}

// Entries returns copies of the cart entries in insertion order.
func (c *Cart) Entries() []models.CartEntry {
	out := make([]models.CartEntry, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, *c.entries[key])
	}
	return out
}

// Lines returns the (item id, quantity) pairs sent with an order. Each id
// keeps the JSON kind the menu delivered it as.
func (c *Cart) Lines() []models.OrderLine {
	out := make([]models.OrderLine, 0, len(c.order))
	for _, key := range c.order {
		e := c.entries[key]
		out = append(out, models.OrderLine{ItemID: e.Item.ID, Quantity: e.Quantity})
	}
	return out
}

// Totals derives subtotal, delivery fee and total from the current entries.
func (c *Cart) Totals() models.Pricing {
	return CalcPricing(c.Entries(), c.fee)
}

// CalcPricing sums price × quantity and adds fee when the subtotal is positive.
func CalcPricing(entries []models.CartEntry, fee decimal.Decimal) models.Pricing {
	subtotal := decimal.Zero
	for _, e := range entries {
		subtotal = subtotal.Add(e.LineTotal())
	}
	deliveryFee := decimal.Zero
	if subtotal.IsPositive() {
		deliveryFee = fee
	}
	return models.Pricing{
		Subtotal:    subtotal,
		DeliveryFee: deliveryFee,
		Total:       subtotal.Add(deliveryFee),
	}
}
