package models

import "time"

// Product represents a catalog item. Prices are stored in centavos.
type Product struct {
	ID          int64     `db:"id" json:"id"`
	SKU         string    `db:"sku" json:"sku"`
	Name        string    `db:"name" json:"name"`
	Brand       string    `db:"brand" json:"brand"`
	Category    string    `db:"category" json:"category"`
	Description string    `db:"description" json:"description,omitempty"`
	Price       int64     `db:"price" json:"price"`
	WeightGrams int       `db:"weight_grams" json:"weight_grams"`
	Stock       int       `db:"stock" json:"stock"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Customer represents a storefront account
type Customer struct {
	ID               int64     `db:"id" json:"id"`
	Email            string    `db:"email" json:"email"`
	Name             string    `db:"name" json:"name"`
	TaxID            string    `db:"tax_id" json:"tax_id,omitempty"`
	Phone            string    `db:"phone" json:"phone,omitempty"`
	MarketingConsent bool      `db:"marketing_consent" json:"marketing_consent"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// Address represents a customer shipping address
type Address struct {
	ID         int64     `db:"id" json:"id"`
	CustomerID int64     `db:"customer_id" json:"customer_id"`
	Label      string    `db:"label" json:"label,omitempty"`
	Street     string    `db:"street" json:"street"`
	Number     string    `db:"number" json:"number"`
	Complement string    `db:"complement" json:"complement,omitempty"`
	City       string    `db:"city" json:"city"`
	State      string    `db:"state" json:"state"`
	Zip        string    `db:"zip" json:"zip"`
	IsDefault  bool      `db:"is_default" json:"is_default"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Coupon represents a discount code. Exactly one of PercentOff or AmountOff is set.
type Coupon struct {
	ID         int64      `db:"id" json:"id"`
	Code       string     `db:"code" json:"code"`
	PercentOff int        `db:"percent_off" json:"percent_off,omitempty"`
	AmountOff  int64      `db:"amount_off" json:"amount_off,omitempty"`
	MinOrder   int64      `db:"min_order" json:"min_order"`
	ExpiresAt  *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	Active     bool       `db:"active" json:"active"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// CartItem is a cart line stored in Redis; UnitPrice snapshots the catalog price.
type CartItem struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Name      string `json:"name,omitempty"`
}

// Order represents a customer order. IDs are opaque UUID strings so the
// gateway correlation token and the primary identifier share one shape.
type Order struct {
	ID                string        `db:"id" json:"id"`
	CustomerID        int64         `db:"customer_id" json:"customer_id"`
	AddressID         int64         `db:"address_id" json:"address_id"`
	TotalAmount       int64         `db:"total_amount" json:"total_amount"`
	DiscountAmount    int64         `db:"discount_amount" json:"discount_amount"`
	ShippingAmount    int64         `db:"shipping_amount" json:"shipping_amount"`
	CouponCode        string        `db:"coupon_code" json:"coupon_code,omitempty"`
	Status            OrderStatus   `db:"status" json:"status"`
	PaymentStatus     PaymentStatus `db:"payment_status" json:"payment_status"`
	PaymentExternalID string        `db:"payment_external_id" json:"payment_external_id,omitempty"`
	PaymentMethod     string        `db:"payment_method" json:"payment_method,omitempty"`
	PreferenceID      string        `db:"preference_id" json:"preference_id,omitempty"`
	IdempotencyKey    string        `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updated_at"`
}

// OrderItem represents items in an order
type OrderItem struct {
	ID        int64  `db:"id" json:"id"`
	OrderID   string `db:"order_id" json:"order_id"`
	ProductID int64  `db:"product_id" json:"product_id"`
	Quantity  int    `db:"quantity" json:"quantity"`
	UnitPrice int64  `db:"unit_price" json:"unit_price"`
}

// StatusProjection is the read-only view served by GET /orders/:id/status.
type StatusProjection struct {
	OrderID           string        `db:"id" json:"order_id"`
	Status            OrderStatus   `db:"status" json:"status"`
	PaymentStatus     PaymentStatus `db:"payment_status" json:"payment_status"`
	PaymentExternalID string        `db:"payment_external_id" json:"payment_external_id,omitempty"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updated_at"`
	IsPaid            bool          `db:"-" json:"is_paid"`
	IsConfirmed       bool          `db:"-" json:"is_confirmed"`
}

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
