package domain

import "time"

// OrderStatus is a WooCommerce order status.
type OrderStatus string

// Order statuses as reported by WooCommerce.
const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusOnHold     OrderStatus = "on-hold"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
	OrderStatusFailed     OrderStatus = "failed"
)

// Order is a storefront order as received from WooCommerce.
type Order struct {
	ID            string
	Number        string
	Status        OrderStatus
	Currency      string
	Total         float64
	CustomerName  string
	CustomerEmail string
	CreatedAt     time.Time
	Items         []LineItem
}

// LineItem is a single product line of an order.
type LineItem struct {
	ProductName string
	Quantity    int
	Price       float64
}
