package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending     = "Pending"
	TimelineStatusPlaced   = "Order Placed"
	EstimatedDeliveryDelay = 7 * 24 * time.Hour
)

// Address is a write-once snapshot attached to an order.
type Address struct {
	FirstName  string `json:"firstName" validate:"required"`
	LastName   string `json:"lastName" validate:"required"`
	Address    string `json:"address" validate:"required"`
	City       string `json:"city" validate:"required"`
	PostalCode string `json:"postalCode" validate:"required"`
	Phone      string `json:"phone" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
}

// LineItem is the purchase-time snapshot of one cart entry.
type LineItem struct {
	ProductID    int64           `json:"productId" validate:"required,gt=0"`
	VariantID    string          `json:"variantId" validate:"required"`
	Title        string          `json:"title" validate:"required"`
	VariantTitle string          `json:"variantTitle"`
	Image        string          `json:"image"`
	Price        decimal.Decimal `json:"price" validate:"gt=0"`
	Quantity     int             `json:"quantity" validate:"required,gte=1"`
	FreeShipping bool            `json:"freeShipping"`
}

// LineItems keeps the payload's `products` object as an ordered list.
// Keys are dropped; insertion order is preserved.
type LineItems []LineItem

// UnmarshalJSON decodes a JSON object of line items in key order.
func (li *LineItems) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*li = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("products must be an object keyed by cart entry")
	}
	items := LineItems{}
	for dec.More() {
		if _, err := dec.Token(); err != nil { // key
			return err
		}
		var item LineItem
		if err := dec.Decode(&item); err != nil {
			return err
		}
		items = append(items, item)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*li = items
	return nil
}

// PlaceOrderPayload is the checkout body.
type PlaceOrderPayload struct {
	Region                string    `json:"region" validate:"required"`
	BillingSameAsShipping bool      `json:"billingSameAsShipping"`
	ShippingAddress       *Address  `json:"shippingAddress" validate:"required"`
	BillingAddress        *Address  `json:"billingAddress" validate:"required_if=BillingSameAsShipping false"`
	Products              LineItems `json:"products" validate:"required,min=1,dive"`
}

// PlacedOrder identifies a freshly committed order.
type PlacedOrder struct {
	OrderID    int64 `json:"orderId"`
	TrackingID int64 `json:"trackingId"`
}

// Order is the stored order header.
type Order struct {
	ID                    int64     `json:"id"`
	UserID                *int64    `json:"userId,omitempty"`
	TrackingID            int64     `json:"trackingId"`
	Region                string    `json:"region"`
	ShippingAddressID     int64     `json:"shippingAddressId"`
	BillingAddressID      int64     `json:"billingAddressId"`
	BillingSameAsShipping bool      `json:"billingSameAsShipping"`
	Status                string    `json:"status"`
	CreatedAt             time.Time `json:"createdAt"`
}

// TimelineEntry is one step of an order's status history.
type TimelineEntry struct {
	Date   string `json:"date"`
	Status string `json:"status"`
}

// OrderView is the public tracking view of an order.
type OrderView struct {
	TrackingID            int64           `json:"trackingId"`
	Status                string          `json:"status"`
	EstimatedDelivery     string          `json:"estimatedDelivery"`
	BillingSameAsShipping bool            `json:"billingSameAsShipping"`
	ShippingAddress       Address         `json:"shippingAddress"`
	BillingAddress        Address         `json:"billingAddress"`
	Products              []LineItem      `json:"products"`
	Timeline              []TimelineEntry `json:"timeline"`
}

// OrderSummary is a row of the admin order listing.
type OrderSummary struct {
	ID         int64           `json:"id"`
	TrackingID int64           `json:"trackingId"`
	UserID     *int64          `json:"userId,omitempty"`
	Region     string          `json:"region"`
	Status     string          `json:"status"`
	ItemCount  int             `json:"itemCount"`
	Total      decimal.Decimal `json:"total"`
	CreatedAt  time.Time       `json:"createdAt"`
}
