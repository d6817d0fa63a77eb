package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// FulfillmentState is derived from an order's independent paid and delivered
// flags. Delivery before payment is allowed.
type FulfillmentState string

const (
	StateCreated       FulfillmentState = "created"
	StatePaid          FulfillmentState = "paid"
	StateDelivered     FulfillmentState = "delivered"
	StatePaidDelivered FulfillmentState = "paid_delivered"
)

// Order is a purchase. It owns its shipping address and line items.
type Order struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	PaymentMethod   string           `json:"payment_method"`
	TaxPrice        decimal.Decimal  `json:"tax_price"`
	ShippingPrice   decimal.Decimal  `json:"shipping_price"`
	TotalPrice      decimal.Decimal  `json:"total_price"`
	IsPaid          bool             `json:"is_paid"`
	PaidAt          *time.Time       `json:"paid_at"`
	IsDelivered     bool             `json:"is_delivered"`
	DeliveredAt     *time.Time       `json:"delivered_at"`
	CreatedAt       time.Time        `json:"created_at"`
	ShippingAddress *ShippingAddress `json:"shipping_address,omitempty"`
	Items           []OrderItem      `json:"order_items"`
}

// State derives the fulfillment state from the two flags.
func (o *Order) State() FulfillmentState {
	switch {
	case o.IsPaid && o.IsDelivered:
		return StatePaidDelivered
	case o.IsPaid:
		return StatePaid
	case o.IsDelivered:
		return StateDelivered
	default:
		return StateCreated
	}
}

// OwnedBy reports whether userID placed the order.
func (o *Order) OwnedBy(userID string) bool {
	return userID != "" && o.UserID == userID
}

// QuantitiesByBook sums item quantities per book. Items whose book has been
// deleted are skipped.
func (o *Order) QuantitiesByBook() map[string]int {
	out := make(map[string]int, len(o.Items))
	for _, it := range o.Items {
		if it.BookID == nil {
			continue
		}
		out[*it.BookID] += it.Qty
	}
	return out
}

type ShippingAddress struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// OrderItem snapshots the book's name, price and image when the order is
// placed. BookID is nil once the book has been deleted.
type OrderItem struct {
	ID      string          `json:"id"`
	OrderID string          `json:"order_id"`
	BookID  *string         `json:"book_id"`
	Name    string          `json:"name"`
	Qty     int             `json:"qty"`
	Price   decimal.Decimal `json:"price"`
	Image   string          `json:"image"`
}

// LineRequest is one requested line of a new order.
type LineRequest struct {
	BookID string
	Qty    int
}

// NewOrder is everything needed to place an order.
type NewOrder struct {
	UserID          string
	PaymentMethod   string
	TaxPrice        decimal.Decimal
	ShippingPrice   decimal.Decimal
	TotalPrice      decimal.Decimal
	ShippingAddress ShippingAddress
	Items           []LineRequest
}
