package models

import (
	"fmt"
	"testing"
	"time"
)

func TestSessionKeys(t *testing.T) {
	if got := VoiceSessionKey("CA123"); got != "call:CA123" {
		t.Fatalf("Expected call:CA123, got %s", got)
	}

	key1 := TextSessionKey("+15550001111", "+15559990000")
	key2 := TextSessionKey("+15550001111", "+15559990000")
	if key1 != key2 {
		t.Fatalf("Same thread produced different keys: %s vs %s", key1, key2)
	}

	other := TextSessionKey("+15550002222", "+15559990000")
	if key1 == other {
		t.Fatal("Different customers share a session key")
	}
}

func TestHistoryCapDropsOldest(t *testing.T) {
	session := &ConversationSession{}
	base := time.Now()

	for i := 0; i < MaxHistoryTurns+10; i++ {
		session.AppendTurn(SpeakerCaller, fmt.Sprintf("turn %d", i), base.Add(time.Duration(i)*time.Second))
	}

	if len(session.History) != MaxHistoryTurns {
		t.Fatalf("Expected %d turns, got %d", MaxHistoryTurns, len(session.History))
	}
	if session.History[0].Text != "turn 10" {
		t.Fatalf("Expected oldest surviving turn to be 'turn 10', got %q", session.History[0].Text)
	}
}

func TestClarifyingReturnsToOrigin(t *testing.T) {
	session := &ConversationSession{State: StateConfirming}

	session.EnterClarifying([]string{"Margherita Pizza", "Margherita Calzone"})
	if session.State != StateClarifying {
		t.Fatalf("Expected clarifying, got %s", session.State)
	}
	if len(session.Candidates) != 2 {
		t.Fatalf("Expected 2 candidates, got %d", len(session.Candidates))
	}

	session.LeaveClarifying()
	if session.State != StateConfirming {
		t.Fatalf("Expected return to confirming, got %s", session.State)
	}
	if session.Candidates != nil {
		t.Fatal("Candidates not cleared after leaving clarifying")
	}

	// Re-entering clarifying from clarifying must not overwrite the
	// remembered return state.
	session.State = StateGathering
	session.EnterClarifying([]string{"a", "b"})
	session.EnterClarifying([]string{"c", "d"})
	session.LeaveClarifying()
	if session.State != StateGathering {
		t.Fatalf("Expected return to gathering, got %s", session.State)
	}
}

func TestPendingFieldsReadiness(t *testing.T) {
	name := "Dana"
	contact := "+15550001111"
	pickup := "18:30"
	date := "2026-09-01"
	slot := "19:00"
	party := 4

	var p PendingFields
	if p.OrderReady() {
		t.Fatal("Empty fields reported order-ready")
	}

	p.Name = &name
	if p.OrderReady() {
		t.Fatal("Name alone reported order-ready")
	}

	p.Contact = &contact
	if !p.OrderReady() {
		t.Fatal("Name+contact should be order-ready")
	}

	p.Contact = nil
	p.PickupTime = &pickup
	if !p.OrderReady() {
		t.Fatal("Name+pickup should be order-ready")
	}

	if p.BookingReady() {
		t.Fatal("Order fields reported booking-ready")
	}
	p.Date = &date
	p.Time = &slot
	p.PartySize = &party
	if !p.BookingReady() {
		t.Fatal("Full booking fields not reported ready")
	}
}

func TestPaymentSessionExpiry(t *testing.T) {
	now := time.Now()
	session := &PaymentSession{
		Status:    PaymentCollectingCard,
		ExpiresAt: now.Add(-time.Minute),
	}

	if !session.IsExpired(now) {
		t.Fatal("Past-deadline session not reported expired")
	}

	session.Status = PaymentAuthorized
	if session.IsExpired(now) {
		t.Fatal("Authorized session must never expire")
	}
}

func TestClearSensitiveWipesEverything(t *testing.T) {
	session := &PaymentSession{
		CardCiphertext:   "abc",
		ExpiryCiphertext: "def",
		CVVDigest:        "ghi",
	}
	session.ClearSensitive()

	if session.CardCiphertext != "" || session.ExpiryCiphertext != "" || session.CVVDigest != "" {
		t.Fatal("ClearSensitive left cardholder data behind")
	}
}
