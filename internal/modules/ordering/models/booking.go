package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Booking status constants
const (
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)

// Booking is a confirmed table reservation. Like Order, SessionRef keeps
// finalize idempotent per conversation session.
type Booking struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	RestaurantID uuid.UUID `gorm:"type:uuid;not null;index" json:"restaurant_id"`
	BookingRef   string    `gorm:"type:text;unique;not null" json:"booking_ref"`
	SessionRef   string    `gorm:"type:text;uniqueIndex;not null" json:"session_ref"`

	CustomerName  string `gorm:"type:text;not null" json:"customer_name"`
	CustomerPhone string `gorm:"type:text" json:"customer_phone"`
	Date          string `gorm:"type:text;not null;index" json:"date"` // "2026-09-01"
	Time          string `gorm:"type:text;not null" json:"time"`       // "19:00"
	PartySize     int    `gorm:"not null" json:"party_size"`

	Status string `gorm:"type:text;default:'confirmed'" json:"status"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Booking) TableName() string {
	return "bookings"
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
