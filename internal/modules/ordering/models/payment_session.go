package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Payment session status constants
const (
	PaymentPending        = "pending"
	PaymentCollectingCard = "collecting_card"
	PaymentCollectingExp  = "collecting_expiry"
	PaymentCollectingCVV  = "collecting_cvv"
	PaymentAuthorizing    = "authorizing"
	PaymentAuthorized     = "authorized"
	PaymentFailed         = "failed"
	PaymentCancelled      = "cancelled"
)

// PaymentSession is the keypad card-collection sub-flow for one call.
// Card number and expiry are stored AES-GCM encrypted. The CVV is never
// persisted: only a transient digest exists between collecting_cvv and
// authorizing, and it is cleared on every exit from authorizing.
type PaymentSession struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	CallSID      string    `gorm:"type:text;not null;index" json:"call_sid"`
	RestaurantID uuid.UUID `gorm:"type:uuid;not null;index" json:"restaurant_id"`
	SessionKey   string    `gorm:"type:text;not null" json:"session_key"`
	OrderRef     string    `gorm:"type:text" json:"order_ref"`

	Status      string `gorm:"type:text;not null;default:'pending';index" json:"status"`
	AmountCents int64  `gorm:"not null" json:"amount_cents"`

	CardCiphertext   string `gorm:"type:text" json:"-"`
	ExpiryCiphertext string `gorm:"type:text" json:"-"`
	CVVDigest        string `gorm:"type:text" json:"-"`

	RetryCount   int    `gorm:"not null;default:0" json:"retry_count"`
	ProcessorRef string `gorm:"type:text" json:"processor_ref"`
	ErrorMessage string `gorm:"type:text" json:"error_message"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
}

func (PaymentSession) TableName() string {
	return "payment_sessions"
}

func (p *PaymentSession) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// IsTerminal reports whether the session can no longer advance.
func (p *PaymentSession) IsTerminal() bool {
	switch p.Status {
	case PaymentAuthorized, PaymentFailed, PaymentCancelled:
		return true
	}
	return false
}

// IsExpired checks the fixed TTL. Authorized sessions never expire.
func (p *PaymentSession) IsExpired(now time.Time) bool {
	if p.Status == PaymentAuthorized {
		return false
	}
	return now.After(p.ExpiresAt)
}

// ClearSensitive wipes every cardholder field from the struct.
func (p *PaymentSession) ClearSensitive() {
	p.CardCiphertext = ""
	p.ExpiryCiphertext = ""
	p.CVVDigest = ""
}
