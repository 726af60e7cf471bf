package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Restaurant is the tenant record. One restaurant owns one inbound phone line.
type Restaurant struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name           string    `gorm:"type:text;not null" json:"name"`
	PhoneNumber    string    `gorm:"type:text;uniqueIndex;not null" json:"phone_number"`
	Active         bool      `gorm:"default:true" json:"active"`
	TaxRateBps     int       `gorm:"not null;default:0" json:"tax_rate_bps"`
	MaxAdvanceDays int       `gorm:"not null;default:7" json:"max_advance_days"`
	TableCapacity  int       `gorm:"not null;default:0" json:"table_capacity"`
	OperatingDays  string    `gorm:"type:text" json:"operating_days"` // e.g. "Mon,Tue,Wed,Thu,Fri,Sat"
	OpensAt        string    `gorm:"type:text" json:"opens_at"`       // "11:00"
	ClosesAt       string    `gorm:"type:text" json:"closes_at"`      // "22:00"

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Restaurant) TableName() string {
	return "restaurants"
}

// BeforeCreate sets UUID before creating
func (r *Restaurant) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Modifier is one option on a menu item (e.g. "extra cheese", +150 cents).
type Modifier struct {
	Name            string `json:"name"`
	PriceDeltaCents int64  `json:"price_delta_cents"`
	Available       bool   `json:"available"`
}

// Modifiers is a custom type for a JSONB array of modifiers
type Modifiers []Modifier

// Scan implements sql.Scanner interface
func (m *Modifiers) Scan(value interface{}) error {
	if value == nil {
		*m = []Modifier{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, m)
}

// Value implements driver.Valuer interface
func (m Modifiers) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal([]Modifier{})
	}
	return json.Marshal(m)
}

// StringList is a JSONB array of strings (dietary tags)
type StringList []string

func (s *StringList) Scan(value interface{}) error {
	if value == nil {
		*s = []string{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, s)
}

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(s)
}

// MenuItem is a persisted menu row. Administration of these rows happens
// outside this service; the ordering core only reads them.
type MenuItem struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	RestaurantID uuid.UUID  `gorm:"type:uuid;not null;index" json:"restaurant_id"`
	Category     string     `gorm:"type:text;not null" json:"category"`
	Name         string     `gorm:"type:text;not null" json:"name"`
	Description  string     `gorm:"type:text" json:"description"`
	PriceCents   int64      `gorm:"not null" json:"price_cents"`
	Available    bool       `gorm:"default:true;index" json:"available"`
	DietaryTags  StringList `gorm:"type:jsonb" json:"dietary_tags"`
	Modifiers    Modifiers  `gorm:"type:jsonb" json:"modifiers"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (MenuItem) TableName() string {
	return "menu_items"
}

func (m *MenuItem) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// --- Per-turn snapshot types (no gorm tags, never written back) ---

// SnapshotItem is one orderable item in a RestaurantContext. Unavailable
// items and modifiers are omitted at load, never flagged.
type SnapshotItem struct {
	ID          uuid.UUID
	Category    string
	Name        string
	Description string
	PriceCents  int64
	DietaryTags []string
	Modifiers   []Modifier
}

// RestaurantContext is the immutable snapshot a single turn operates on.
// It is rebuilt from the database at the start of every turn, so a menu
// edit mid-call produces a new snapshot for the next turn and never
// mutates one in use.
type RestaurantContext struct {
	ID             uuid.UUID
	Name           string
	PhoneNumber    string
	TaxRateBps     int
	MaxAdvanceDays int
	TableCapacity  int
	OperatingDays  string
	OpensAt        string
	ClosesAt       string
	Items          []SnapshotItem
	LoadedAt       time.Time
}

// FindItem returns the snapshot item with the given id, or nil.
func (rc *RestaurantContext) FindItem(id uuid.UUID) *SnapshotItem {
	for i := range rc.Items {
		if rc.Items[i].ID == id {
			return &rc.Items[i]
		}
	}
	return nil
}
