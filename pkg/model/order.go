package model

import "time"

const (
	OrderPaymentPending   = "pending"
	OrderPaymentCompleted = "completed"
	OrderPaymentFailed    = "failed"

	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// OrderCustomer differs from the booking Customer block: orders ship, so the
// address replaces the phone.
type OrderCustomer struct {
	Name    string `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Email   string `json:"email" bson:"email" validate:"required,email"`
	Address string `json:"address" bson:"address" validate:"required,min=5,max=300"`
}

// LineItem references a product by ID. UnitPrice is in minor units.
type LineItem struct {
	ProductID string `json:"product_id" bson:"product_id" validate:"required,mongodb"`
	Name      string `json:"name" bson:"name" validate:"required"`
	UnitPrice int64  `json:"unit_price" bson:"unit_price" validate:"required,min=0"`
	Size      string `json:"size,omitempty" bson:"size,omitempty" validate:"omitempty,oneof=XS S M L XL XXL"`
	Quantity  int    `json:"quantity" bson:"quantity" validate:"required,min=1"`
}

type Order struct {
	ID             string        `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Reference      string        `json:"reference" bson:"reference"`
	Customer       OrderCustomer `json:"customer" bson:"customer" validate:"required"`
	PaymentMethod  string        `json:"payment_method" bson:"payment_method" validate:"required,oneof=credit-card paypal bank-transfer"`
	Items          []LineItem    `json:"items" bson:"items" validate:"required,min=1,dive"`
	TotalPrice     int64         `json:"total_price" bson:"total_price" validate:"required,min=1"`
	CommodityPrice int64         `json:"commodity_price" bson:"commodity_price" validate:"required,min=0"`
	PaymentStatus  string        `json:"payment_status" bson:"payment_status" validate:"omitempty,oneof=pending completed failed"`
	OrderStatus    string        `json:"order_status" bson:"order_status" validate:"omitempty,oneof=processing shipped delivered cancelled"`
	PaymentIntent  string        `json:"payment_intent,omitempty" bson:"payment_intent,omitempty"`
	CreatedAt      time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" bson:"updated_at"`
}

// ItemsTotal sums price×quantity over the line items.
func (o *Order) ItemsTotal() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.UnitPrice * int64(item.Quantity)
	}
	return total
}

// OrderStatistics is the aggregation result for the statistics endpoint.
// Revenue only counts orders whose payment completed.
type OrderStatistics struct {
	TotalOrders   int64 `json:"total_orders" bson:"total_orders"`
	TotalRevenue  int64 `json:"total_revenue" bson:"total_revenue"`
	AvgOrderValue int64 `json:"avg_order_value" bson:"avg_order_value"`
}
