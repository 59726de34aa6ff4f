// Package orders turns storefront order events into notification jobs.
package orders

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bissquit/sellerdesk/internal/domain"
	"github.com/go-playground/validator/v10"
)

// WooCommerce webhook topics.
const (
	TopicOrderCreated = "order.created"
	TopicOrderUpdated = "order.updated"
)

const (
	wooTimeLayout = "2006-01-02T15:04:05"
	guestCustomer = "Guest"
)

// ErrInvalidOrder is returned when an order body cannot be decoded.
var ErrInvalidOrder = errors.New("invalid order payload")

var validate = validator.New()

// WooCommerceOrder is the subset of the WooCommerce order resource used for notifications.
type WooCommerceOrder struct {
	ID             int64  `json:"id" validate:"required,gt=0"`
	Number         string `json:"number"`
	Status         string `json:"status" validate:"required,max=64"`
	Currency       string `json:"currency" validate:"omitempty,len=3"`
	Total          string `json:"total" validate:"omitempty,numeric"`
	DateCreatedGMT string `json:"date_created_gmt"`
	Billing        struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email" validate:"omitempty,email"`
	} `json:"billing"`
	LineItems []WooCommerceLineItem `json:"line_items" validate:"dive"`
}

// WooCommerceLineItem is a product line of a WooCommerce order.
type WooCommerceLineItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity" validate:"gte=0"`
	Price    float64 `json:"price"`
}

// DecodeOrder parses and validates a WooCommerce order body.
func DecodeOrder(data []byte) (domain.Order, error) {
	var wc WooCommerceOrder
	if err := json.Unmarshal(data, &wc); err != nil {
		return domain.Order{}, fmt.Errorf("%w: %w", ErrInvalidOrder, err)
	}
	if err := validate.Struct(wc); err != nil {
		return domain.Order{}, fmt.Errorf("%w: %w", ErrInvalidOrder, err)
	}
	return wc.ToOrder()
}

// ToOrder converts the WooCommerce representation to a domain order.
func (o WooCommerceOrder) ToOrder() (domain.Order, error) {
	var total float64
	if o.Total != "" {
		v, err := strconv.ParseFloat(o.Total, 64)
		if err != nil {
			return domain.Order{}, fmt.Errorf("%w: total %q: %w", ErrInvalidOrder, o.Total, err)
		}
		total = v
	}

	var createdAt time.Time
	if o.DateCreatedGMT != "" {
		t, err := time.ParseInLocation(wooTimeLayout, o.DateCreatedGMT, time.UTC)
		if err != nil {
			return domain.Order{}, fmt.Errorf("%w: date_created_gmt %q: %w", ErrInvalidOrder, o.DateCreatedGMT, err)
		}
		createdAt = t
	}

	name := strings.TrimSpace(o.Billing.FirstName + " " + o.Billing.LastName)
	if name == "" {
		name = guestCustomer
	}

	items := make([]domain.LineItem, 0, len(o.LineItems))
	for _, it := range o.LineItems {
		items = append(items, domain.LineItem{
			ProductName: it.Name,
			Quantity:    it.Quantity,
			Price:       it.Price,
		})
	}

	return domain.Order{
		ID:            strconv.FormatInt(o.ID, 10),
		Number:        o.Number,
		Status:        domain.OrderStatus(o.Status),
		Currency:      strings.ToUpper(o.Currency),
		Total:         total,
		CustomerName:  name,
		CustomerEmail: o.Billing.Email,
		CreatedAt:     createdAt,
		Items:         items,
	}, nil
}
