package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

const OrderStatusPending = "pending"

type Customer struct {
	Name    string
	Phone   string
	Address string
}

type OrderLine struct {
	ItemID   ItemID `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// Pricing is derived from the cart on every read, never stored.
type Pricing struct {
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Total       decimal.Decimal
}

// OrderRequest is the body of POST /orders.
type OrderRequest struct {
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	Items           []OrderLine
	Subtotal        decimal.Decimal
	DeliveryFee     decimal.Decimal
	Total           decimal.Decimal
	Status          string
}

// orderRequestJSON carries money as bare JSON numbers with two decimals.
type orderRequestJSON struct {
	CustomerName    string      `json:"customer_name"`
	CustomerPhone   string      `json:"customer_phone"`
	CustomerAddress string      `json:"customer_address"`
	Items           []OrderLine `json:"items"`
	Subtotal        json.Number `json:"subtotal"`
	DeliveryFee     json.Number `json:"delivery_fee"`
	Total           json.Number `json:"total"`
	Status          string      `json:"status"`
}

func (r OrderRequest) MarshalJSON() ([]byte, error) {
	items := r.Items
	if items == nil {
		items = []OrderLine{}
	}
	return json.Marshal(orderRequestJSON{
		CustomerName:    r.CustomerName,
		CustomerPhone:   r.CustomerPhone,
		CustomerAddress: r.CustomerAddress,
		Items:           items,
		Subtotal:        json.Number(r.Subtotal.StringFixed(2)),
		DeliveryFee:     json.Number(r.DeliveryFee.StringFixed(2)),
		Total:           json.Number(r.Total.StringFixed(2)),
		Status:          r.Status,
	})
}

// OrderReceipt is what the backend returns for an accepted order.
type OrderReceipt struct {
	ID string
}
