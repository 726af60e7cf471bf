package models

import (
	"testing"

	"github.com/google/uuid"
)

func line(name string, qty int, priceCents int64) CartLine {
	return CartLine{
		ItemID:         uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)),
		Name:           name,
		Quantity:       qty,
		UnitPriceCents: priceCents,
	}
}

func TestCartTotalsWithTax(t *testing.T) {
	var cart Cart
	if err := cart.AddLine(line("Margherita Pizza", 2, 1595)); err != nil {
		t.Fatalf("AddLine failed: %v", err)
	}

	if got := cart.SubtotalCents(); got != 3190 {
		t.Fatalf("Expected subtotal 3190, got %d", got)
	}
	// 8% of 31.90 is 2.552, rounded half-up to 2.55
	if got := cart.TaxCents(800); got != 255 {
		t.Fatalf("Expected tax 255, got %d", got)
	}
	if got := cart.TotalCents(800); got != 3445 {
		t.Fatalf("Expected total 3445, got %d", got)
	}
}

func TestCartTaxRoundsHalfUp(t *testing.T) {
	var cart Cart
	cart.AddLine(line("Soda", 1, 125))

	// 8% of 1.25 is 0.10 exactly
	if got := cart.TaxCents(800); got != 10 {
		t.Fatalf("Expected tax 10, got %d", got)
	}

	var c2 Cart
	c2.AddLine(line("Item", 1, 119))
	// 8% of 1.19 is 9.52 cents, rounds up to 10
	if got := c2.TaxCents(800); got != 10 {
		t.Fatalf("Expected tax 10, got %d", got)
	}

	var c3 Cart
	c3.AddLine(line("Item", 1, 100))
	// 6.25% of 1.00 is 6.25 cents, rounds to 6
	if got := c3.TaxCents(625); got != 6 {
		t.Fatalf("Expected tax 6, got %d", got)
	}
}

func TestCartTotalIndependentOfLineOrder(t *testing.T) {
	lines := []CartLine{
		line("Burger", 1, 1250),
		line("Fries", 3, 450),
		line("Shake", 2, 675),
	}

	var forward, backward Cart
	for _, l := range lines {
		forward.AddLine(l)
	}
	for i := len(lines) - 1; i >= 0; i-- {
		backward.AddLine(lines[i])
	}

	if forward.TotalCents(825) != backward.TotalCents(825) {
		t.Fatalf("Total depends on line order: %d vs %d",
			forward.TotalCents(825), backward.TotalCents(825))
	}
}

func TestCartMergesIdenticalLines(t *testing.T) {
	var cart Cart
	cart.AddLine(line("Burger", 1, 1250))
	cart.AddLine(line("Burger", 2, 1250))

	if len(cart.Lines) != 1 {
		t.Fatalf("Expected merged line, got %d lines", len(cart.Lines))
	}
	if cart.Lines[0].Quantity != 3 {
		t.Fatalf("Expected quantity 3, got %d", cart.Lines[0].Quantity)
	}
}

func TestCartDoesNotMergeDifferentModifiers(t *testing.T) {
	plain := line("Burger", 1, 1250)
	withCheese := line("Burger", 1, 1250)
	withCheese.Modifiers = []Modifier{{Name: "extra cheese", PriceDeltaCents: 150}}

	var cart Cart
	cart.AddLine(plain)
	cart.AddLine(withCheese)

	if len(cart.Lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(cart.Lines))
	}
	if got := cart.Lines[1].LineTotalCents(); got != 1400 {
		t.Fatalf("Expected modifier line total 1400, got %d", got)
	}
}

func TestCartQuantityRules(t *testing.T) {
	var cart Cart
	if err := cart.AddLine(line("Burger", 0, 1250)); err == nil {
		t.Fatal("Expected error for zero quantity")
	}

	cart.AddLine(line("Burger", 2, 1250))
	if err := cart.UpdateQuantity(0, -1); err == nil {
		t.Fatal("Expected error for negative quantity")
	}

	if err := cart.UpdateQuantity(0, 0); err != nil {
		t.Fatalf("UpdateQuantity(0) failed: %v", err)
	}
	if !cart.IsEmpty() {
		t.Fatal("Expected empty cart after zeroing the only line")
	}
}

func TestCartFindLineCaseInsensitive(t *testing.T) {
	var cart Cart
	cart.AddLine(line("Margherita Pizza", 1, 1595))

	if idx := cart.FindLine("margherita pizza"); idx != 0 {
		t.Fatalf("Expected index 0, got %d", idx)
	}
	if idx := cart.FindLine("calzone"); idx != -1 {
		t.Fatalf("Expected -1 for missing item, got %d", idx)
	}
}
