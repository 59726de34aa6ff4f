package notifications

import (
	"time"

	"github.com/bissquit/sellerdesk/internal/domain"
)

// MessageType defines the kind of order notification.
type MessageType string

// Message types.
const (
	MessageTypeOrderCreated MessageType = "created" // New order placed
	MessageTypeOrderUpdated MessageType = "updated" // Order status changed
)

// OrderPayload contains data for rendering an order notification.
type OrderPayload struct {
	OrderID       string     `json:"order_id"`
	OrderNumber   string     `json:"order_number,omitempty"`
	CustomerName  string     `json:"customer_name"`
	CustomerEmail string     `json:"customer_email,omitempty"`
	TotalAmount   float64    `json:"total_amount"`
	Currency      string     `json:"currency,omitempty"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	Items         []LineItem `json:"items,omitempty"`
	IsUpdate      bool       `json:"is_update"`
}

// LineItem contains product data for notification context.
type LineItem struct {
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

// MessageType returns the message type the payload renders as.
func (p OrderPayload) MessageType() MessageType {
	if p.IsUpdate {
		return MessageTypeOrderUpdated
	}
	return MessageTypeOrderCreated
}

// NewOrderPayload creates a payload from a storefront order.
func NewOrderPayload(order domain.Order, isUpdate bool) OrderPayload {
	items := make([]LineItem, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, LineItem{
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price,
		})
	}

	return OrderPayload{
		OrderID:       order.ID,
		OrderNumber:   order.Number,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		TotalAmount:   order.Total,
		Currency:      order.Currency,
		Status:        string(order.Status),
		CreatedAt:     order.CreatedAt,
		Items:         items,
		IsUpdate:      isUpdate,
	}
}

func (p OrderPayload) clone() OrderPayload {
	if p.Items != nil {
		items := make([]LineItem, len(p.Items))
		copy(items, p.Items)
		p.Items = items
	}
	return p
}
