package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConversationLog is a per-turn audit row. Writes are best effort; the
// live transcript lives in the in-memory session.
type ConversationLog struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	RestaurantID   uuid.UUID `gorm:"type:uuid;not null;index" json:"restaurant_id"`
	SessionKey     string    `gorm:"type:text;not null;index" json:"session_key"`
	Channel        string    `gorm:"type:text;not null" json:"channel"`
	CustomerNumber string    `gorm:"type:text;not null" json:"customer_number"`
	Utterance      string    `gorm:"type:text" json:"utterance"`
	Reply          string    `gorm:"type:text" json:"reply"`
	State          string    `gorm:"type:text" json:"state"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (ConversationLog) TableName() string {
	return "conversation_logs"
}

func (c *ConversationLog) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
