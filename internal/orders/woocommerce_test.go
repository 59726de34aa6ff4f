package orders

import (
	"testing"
	"time"

	"github.com/bissquit/sellerdesk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOrder = `{
	"id": 727,
	"number": "727",
	"status": "processing",
	"currency": "usd",
	"total": "29.35",
	"date_created_gmt": "2024-03-05T14:07:21",
	"billing": {"first_name": "John", "last_name": "Doe", "email": "john.doe@example.com"},
	"line_items": [
		{"name": "Woo Single #1", "quantity": 2, "price": 3},
		{"name": "Ship Your Idea", "quantity": 1, "price": 20}
	]
}`

func TestDecodeOrder(t *testing.T) {
	order, err := DecodeOrder([]byte(sampleOrder))
	require.NoError(t, err)

	assert.Equal(t, "727", order.ID)
	assert.Equal(t, "727", order.Number)
	assert.Equal(t, domain.OrderStatusProcessing, order.Status)
	assert.Equal(t, "USD", order.Currency)
	assert.InDelta(t, 29.35, order.Total, 0.0001)
	assert.Equal(t, "John Doe", order.CustomerName)
	assert.Equal(t, "john.doe@example.com", order.CustomerEmail)
	assert.Equal(t, time.Date(2024, 3, 5, 14, 7, 21, 0, time.UTC), order.CreatedAt)
	require.Len(t, order.Items, 2)
	assert.Equal(t, domain.LineItem{ProductName: "Woo Single #1", Quantity: 2, Price: 3}, order.Items[0])
}

func TestDecodeOrder_Defaults(t *testing.T) {
	order, err := DecodeOrder([]byte(`{"id": 1, "status": "pending"}`))
	require.NoError(t, err)

	assert.Equal(t, "Guest", order.CustomerName)
	assert.Zero(t, order.Total)
	assert.True(t, order.CreatedAt.IsZero())
	assert.Empty(t, order.Items)
}

func TestDecodeOrder_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `order`},
		{"missing id", `{"status": "pending"}`},
		{"missing status", `{"id": 1}`},
		{"non numeric total", `{"id": 1, "status": "pending", "total": "ten"}`},
		{"bad email", `{"id": 1, "status": "pending", "billing": {"email": "nope"}}`},
		{"bad date", `{"id": 1, "status": "pending", "date_created_gmt": "yesterday"}`},
		{"negative quantity", `{"id": 1, "status": "pending", "line_items": [{"name": "x", "quantity": -1}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeOrder([]byte(tt.body))
			assert.ErrorIs(t, err, ErrInvalidOrder)
		})
	}
}
