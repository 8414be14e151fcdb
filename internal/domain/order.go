package domain

import "time"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCanceled  OrderStatus = "canceled"
)

// IsValid reports whether s is a known status.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusFailed, OrderStatusPaid, OrderStatusDelivered, OrderStatusCanceled:
		return true
	}
	return false
}

// OrderItem is a snapshot of a product at the time it was ordered.
type OrderItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Image     string `json:"image"`
	Amount    int    `json:"amount"`
}

// LineTotal returns price times amount.
func (i OrderItem) LineTotal() int64 {
	return i.Price * int64(i.Amount)
}

// Order is a customer order. All money is in minor units.
type Order struct {
	ID              string      `json:"id"`
	UserID          string      `json:"user_id"`
	Items           []OrderItem `json:"items"`
	Tax             int64       `json:"tax"`
	ShippingFee     int64       `json:"shipping_fee"`
	Subtotal        int64       `json:"subtotal"`
	Total           int64       `json:"total"`
	Status          OrderStatus `json:"status"`
	ClientSecret    string      `json:"client_secret"`
	PaymentIntentID string      `json:"payment_intent_id,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// CalculateTotals sets Subtotal to the sum of line totals and Total to
// Subtotal plus tax and shipping.
func (o *Order) CalculateTotals() {
	var subtotal int64
	for _, item := range o.Items {
		subtotal += item.LineTotal()
	}
	o.Subtotal = subtotal
	o.Total = o.Tax + o.ShippingFee + subtotal
}
