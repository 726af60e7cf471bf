package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// CartLine is a single ordered line: item, quantity, chosen modifiers.
type CartLine struct {
	ItemID          uuid.UUID  `json:"item_id"`
	Name            string     `json:"name"`
	Quantity        int        `json:"quantity"`
	UnitPriceCents  int64      `json:"unit_price_cents"`
	Modifiers       []Modifier `json:"modifiers,omitempty"`
	SpecialRequests string     `json:"special_requests,omitempty"`
}

// LineTotalCents returns (unit price + modifier deltas) × quantity.
func (l CartLine) LineTotalCents() int64 {
	unit := l.UnitPriceCents
	for _, m := range l.Modifiers {
		unit += m.PriceDeltaCents
	}
	return unit * int64(l.Quantity)
}

// Cart holds the ordered lines of one conversation session. It lives in
// memory inside the session and is never persisted on its own; the
// finalizer copies it into an Order. Every operation either fully applies
// or leaves the cart untouched.
type Cart struct {
	Lines []CartLine `json:"lines"`
}

// AddLine appends a line. Quantity must be at least 1. If an identical
// line already exists (same item, same modifiers, same requests) the
// quantities are merged instead.
func (c *Cart) AddLine(line CartLine) error {
	if line.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}
	for i, existing := range c.Lines {
		if existing.ItemID == line.ItemID &&
			sameModifiers(existing.Modifiers, line.Modifiers) &&
			existing.SpecialRequests == line.SpecialRequests {
			c.Lines[i].Quantity += line.Quantity
			return nil
		}
	}
	c.Lines = append(c.Lines, line)
	return nil
}

// UpdateQuantity sets the quantity of the line at index. Zero removes the
// line. Negative quantities are rejected.
func (c *Cart) UpdateQuantity(index, quantity int) error {
	if index < 0 || index >= len(c.Lines) {
		return fmt.Errorf("%w: no such cart line", ErrValidation)
	}
	if quantity < 0 {
		return fmt.Errorf("%w: quantity cannot be negative", ErrValidation)
	}
	if quantity == 0 {
		c.Lines = append(c.Lines[:index], c.Lines[index+1:]...)
		return nil
	}
	c.Lines[index].Quantity = quantity
	return nil
}

// RemoveLine removes the line at index.
func (c *Cart) RemoveLine(index int) error {
	return c.UpdateQuantity(index, 0)
}

// Clear empties the cart. Pending session fields are the caller's to reset.
func (c *Cart) Clear() {
	c.Lines = nil
}

// IsEmpty checks whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// SubtotalCents is the pre-tax sum over all lines.
func (c *Cart) SubtotalCents() int64 {
	var total int64
	for _, l := range c.Lines {
		total += l.LineTotalCents()
	}
	return total
}

// TaxCents computes tax on the subtotal at the given rate in basis
// points, rounded half-up to the cent.
func (c *Cart) TaxCents(taxRateBps int) int64 {
	return (c.SubtotalCents()*int64(taxRateBps) + 5000) / 10000
}

// TotalCents is subtotal plus tax.
func (c *Cart) TotalCents(taxRateBps int) int64 {
	return c.SubtotalCents() + c.TaxCents(taxRateBps)
}

// FindLine returns the index of the first line whose name equals the
// given name case-insensitively, or -1.
func (c *Cart) FindLine(name string) int {
	for i, l := range c.Lines {
		if strings.EqualFold(l.Name, name) {
			return i
		}
	}
	return -1
}

func sameModifiers(a, b []Modifier) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].PriceDeltaCents != b[i].PriceDeltaCents {
			return false
		}
	}
	return true
}
