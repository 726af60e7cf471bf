package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OrderItem is the persisted copy of a cart line at finalize time.
type OrderItem struct {
	ItemID          string     `json:"item_id"`
	Name            string     `json:"name"`
	Quantity        int        `json:"quantity"`
	UnitPriceCents  int64      `json:"unit_price_cents"`
	Modifiers       []Modifier `json:"modifiers,omitempty"`
	SpecialRequests string     `json:"special_requests,omitempty"`
	LineTotalCents  int64      `json:"line_total_cents"`
}

// Order payment status constants
const (
	OrderPaymentPending = "pending"
	OrderPaymentPaid    = "paid"
	OrderPaymentUnpaid  = "unpaid" // payment sub-flow exhausted, pay at pickup
)

// Order is a confirmed, persisted order. SessionRef back-references the
// conversation session so finalize stays idempotent: the second call for
// the same session finds this row instead of creating a duplicate.
type Order struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	RestaurantID uuid.UUID `gorm:"type:uuid;not null;index" json:"restaurant_id"`
	OrderNumber  string    `gorm:"type:text;unique;not null" json:"order_number"`
	SessionRef   string    `gorm:"type:text;uniqueIndex;not null" json:"session_ref"`

	CustomerName  string `gorm:"type:text;not null" json:"customer_name"`
	CustomerPhone string `gorm:"type:text" json:"customer_phone"`
	PickupTime    string `gorm:"type:text" json:"pickup_time"`

	Items         datatypes.JSON `gorm:"type:jsonb;not null" json:"items"`
	SubtotalCents int64          `gorm:"not null" json:"subtotal_cents"`
	TaxCents      int64          `gorm:"not null" json:"tax_cents"`
	TotalCents    int64          `gorm:"not null" json:"total_cents"`

	PaymentStatus string `gorm:"type:text;default:'pending'" json:"payment_status"`
	PaymentRef    string `gorm:"type:text" json:"payment_ref"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
