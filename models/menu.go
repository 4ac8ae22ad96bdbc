package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// ItemID identifies a menu item. The backend may send ids as JSON numbers or
// strings; the id keeps the token it arrived as so it can be echoed back
// unchanged. String gives the text form used for lookups and callback data.
type ItemID struct {
	text   string
	number bool
}

// StringID is an id the backend sent as a JSON string.
func StringID(s string) ItemID { return ItemID{text: s} }

// NumberID is an id the backend sent as a JSON number. lit is the literal
// exactly as it appeared on the wire.
func NumberID(lit string) ItemID { return ItemID{text: lit, number: true} }

func (id ItemID) String() string { return id.text }

func (id ItemID) IsNumber() bool { return id.number }

// Same reports whether both ids have the same text form, whatever their kind.
func (id ItemID) Same(other ItemID) bool { return id.text == other.text }

func (id *ItemID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = StringID(s)
		return nil
	}
	if string(b) == "null" {
		*id = ItemID{}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = NumberID(n.String())
	return nil
}

// MarshalJSON writes the id back in the form it was decoded from.
func (id ItemID) MarshalJSON() ([]byte, error) {
	if id.number {
		return []byte(id.text), nil
	}
	return json.Marshal(id.text)
}

type MenuItem struct {
	ID          ItemID          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image,omitempty"`
	Available   bool            `json:"available"`
}

// CartEntry is a quantity of one menu item pending order. Quantity is always >= 1.
type CartEntry struct {
	Item     MenuItem
	Quantity int
}

// LineTotal is price × quantity.
func (e CartEntry) LineTotal() decimal.Decimal {
	return e.Item.Price.Mul(decimal.NewFromInt(int64(e.Quantity)))
}
