package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tablevox/phone-agent-be/internal/core/llm"
	"github.com/tablevox/phone-agent-be/internal/core/tenant"
	"github.com/tablevox/phone-agent-be/internal/modules/ordering/models"
)

const testRestaurantNumber = "+15559990000"

type turnFixture struct {
	turns       *TurnService
	provider    *scriptedProvider
	restaurants *fakeRestaurantRepo
	orders      *fakeOrderRepo
	bookings    *fakeBookingRepo
	queue       *fakeEnqueuer
}

func newTurnFixture(t *testing.T, provider *scriptedProvider) *turnFixture {
	t.Helper()

	restaurant := &models.Restaurant{
		ID:             uuid.New(),
		Name:           "Testaurant",
		PhoneNumber:    testRestaurantNumber,
		Active:         true,
		TaxRateBps:     800,
		MaxAdvanceDays: 7,
		TableCapacity:  2,
		OperatingDays:  "Mon,Tue,Wed,Thu,Fri,Sat,Sun",
		OpensAt:        "17:00",
		ClosesAt:       "22:00",
	}

	restaurants := &fakeRestaurantRepo{restaurant: restaurant}
	for _, spec := range []struct {
		name  string
		price int64
	}{
		{"Margherita Pizza", 1595},
		{"Margherita Calzone", 1395},
		{"Caesar Salad", 1095},
	} {
		restaurants.items = append(restaurants.items, models.MenuItem{
			ID:           uuid.NewSHA1(uuid.NameSpaceOID, []byte(spec.name)),
			RestaurantID: restaurant.ID,
			Category:     "Mains",
			Name:         spec.name,
			PriceCents:   spec.price,
			Available:    true,
		})
	}

	orders := newFakeOrderRepo()
	bookings := newFakeBookingRepo()
	queue := &fakeEnqueuer{}

	availability := NewAvailabilityService(bookings)
	availability.now = fixedNow

	loader := tenant.NewLoader(restaurants)
	finalize := NewFinalizeService(orders, bookings, availability, queue)
	sessions := NewSessionStore(24 * time.Hour)
	matcher := NewMatcher(0.72)

	turns := NewTurnService(
		llm.NewServiceWithProvider(provider),
		sessions,
		matcher,
		availability,
		finalize,
		loader,
		&fakeConversationRepo{},
		5*time.Second,
	)

	return &turnFixture{
		turns:       turns,
		provider:    provider,
		restaurants: restaurants,
		orders:      orders,
		bookings:    bookings,
		queue:       queue,
	}
}

func intentJSON(fields map[string]interface{}) string {
	parts := []string{}
	for k, v := range fields {
		switch val := v.(type) {
		case string:
			parts = append(parts, fmt.Sprintf("%q:%q", k, val))
		case bool:
			parts = append(parts, fmt.Sprintf("%q:%v", k, val))
		case int:
			parts = append(parts, fmt.Sprintf("%q:%d", k, val))
		}
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func TestBeginVoiceCallUnknownNumber(t *testing.T) {
	fx := newTurnFixture(t, &scriptedProvider{})

	_, err := fx.turns.BeginVoiceCall("CA1", "+15550001111", "+15551234567")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestBeginVoiceCallGreetsWithRestaurantName(t *testing.T) {
	fx := newTurnFixture(t, &scriptedProvider{})

	greeting, err := fx.turns.BeginVoiceCall("CA1", "+15550001111", testRestaurantNumber)
	if err != nil {
		t.Fatalf("BeginVoiceCall failed: %v", err)
	}
	if !strings.Contains(greeting, "Testaurant") {
		t.Fatalf("Greeting does not name the restaurant: %q", greeting)
	}
}

func TestAddItemTurn(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		intentJSON(map[string]interface{}{
			"intent": "add_item", "reply": "Sure thing.",
			"item": "margherita pizza", "quantity": 2,
		}),
	}}
	fx := newTurnFixture(t, provider)
	fx.turns.BeginVoiceCall("CA1", "+15550001111", testRestaurantNumber)

	result, err := fx.turns.HandleUtterance(context.Background(), "CA1", "two margherita pizzas please")
	if err != nil {
		t.Fatalf("HandleUtterance failed: %v", err)
	}

	if !strings.Contains(result.Say, "Margherita Pizza") {
		t.Fatalf("Reply does not confirm the item: %q", result.Say)
	}
	if !strings.Contains(result.Say, "$31.90") {
		t.Fatalf("Reply does not speak the line total: %q", result.Say)
	}
	if result.EndCall {
		t.Fatal("Adding an item must not end the call")
	}
}

func TestAmbiguousItemEntersClarifying(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		intentJSON(map[string]interface{}{
			"intent": "add_item", "reply": "Sure.", "item": "margherita",
		}),
	}}
	fx := newTurnFixture(t, provider)
	fx.turns.BeginVoiceCall("CA1", "+15550001111", testRestaurantNumber)

	result, err := fx.turns.HandleUtterance(context.Background(), "CA1", "a margherita please")
	if err != nil {
		t.Fatalf("HandleUtterance failed: %v", err)
	}

	if !strings.Contains(result.Say, "Did you mean") {
		t.Fatalf("Expected disambiguation question, got %q", result.Say)
	}
	if !strings.Contains(result.Say, "Margherita Pizza") || !strings.Contains(result.Say, "Margherita Calzone") {
		t.Fatalf("Candidates missing from question: %q", result.Say)
	}
}

func TestUnknownItemIsRefusedNotInvented(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		intentJSON(map[string]interface{}{
			"intent": "add_item", "reply": "Sure.", "item": "sushi platter",
		}),
	}}
	fx := newTurnFixture(t, provider)
	fx.turns.BeginVoiceCall("CA1", "+15550001111", testRestaurantNumber)

	result, err := fx.turns.HandleUtterance(context.Background(), "CA1", "a sushi platter")
	if err != nil {
		t.Fatalf("HandleUtterance failed: %v", err)
	}
	if !strings.Contains(result.Say, "couldn't find") {
		t.Fatalf("Expected a not-on-menu reply, got %q", result.Say)
	}
}

func TestReasoningRetryUsesSimplifiedPrompt(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		"this is not json at all",
		intentJSON(map[string]interface{}{
			"intent": "menu_question", "reply": "We have pizza, calzone and salad.",
		}),
	}}
	fx := newTurnFixture(t, provider)
	fx.turns.BeginVoiceCall("CA1", "+15550001111", testRestaurantNumber)

	result, err := fx.turns.HandleUtterance(context.Background(), "CA1", "what do you have")
	if err != nil {
		t.Fatalf("HandleUtterance failed: %v", err)
	}
	if provider.calls != 2 {
		t.Fatalf("Expected 2 reasoning calls, got %d", provider.calls)
	}
	if !strings.Contains(result.Say, "pizza") {
		t.Fatalf("Retry reply lost: %q", result.Say)
	}
}

func TestReasoningDoubleFailureApologizes(t *testing.T) {
	provider := &scriptedProvider{
		errs: []error{errors.New("timeout"), errors.New("timeout")},
	}
	fx := newTurnFixture(t, provider)
	fx.turns.BeginVoiceCall("CA1", "+15550001111", testRestaurantNumber)

	result, err := fx.turns.HandleUtterance(context.Background(), "CA1", "two pizzas")
	if err != nil {
		t.Fatalf("HandleUtterance failed: %v", err)
	}
	if result.EndCall {
		t.Fatal("Double failure must not hang up on the caller")
	}
	if !strings.Contains(result.Say, "sorry") && !strings.Contains(result.Say, "Sorry") {
		t.Fatalf("Expected apology, got %q", result.Say)
	}
	if provider.calls != 2 {
		t.Fatalf("Expected exactly 2 reasoning attempts, got %d", provider.calls)
	}
}

func TestBookingOffersOnlySlotsFromAvailability(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		intentJSON(map[string]interface{}{
			"intent": "book_table", "reply": "Checking.",
			"name": "Dana", "date": "2026-08-30", "time": "19:00", "party_size": 4,
		}),
	}}
	fx := newTurnFixture(t, provider)
	fx.bookings.setCount("2026-08-30", "19:00", 2)
	fx.bookings.setCount("2026-08-30", "17:00", 2)

	fx.turns.BeginVoiceCall("CA1", "+15550001111", testRestaurantNumber)
	result, err := fx.turns.HandleUtterance(context.Background(), "CA1", "table for four tomorrow at seven")
	if err != nil {
		t.Fatalf("HandleUtterance failed: %v", err)
	}

	for _, slot := range []string{"18:00", "20:00", "21:00"} {
		if !strings.Contains(result.Say, slot) {
			t.Fatalf("Offered slots missing %s: %q", slot, result.Say)
		}
	}
	if strings.Contains(result.Say, "17:00") {
		t.Fatalf("Offered a full slot: %q", result.Say)
	}
}

func TestOrderConfirmationFlow(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		intentJSON(map[string]interface{}{
			"intent": "add_item", "reply": "Sure.", "item": "Margherita Pizza", "quantity": 2,
		}),
		intentJSON(map[string]interface{}{
			"intent": "provide_details", "reply": "Got it.",
			"name": "Dana", "pickup_time": "18:30",
		}),
		intentJSON(map[string]interface{}{
			"intent": "confirm", "reply": "Great.", "confirmed": true,
		}),
	}}
	fx := newTurnFixture(t, provider)
	ctx := context.Background()

	fx.turns.BeginVoiceCall("CA1", "+15550001111", testRestaurantNumber)
	fx.turns.HandleUtterance(ctx, "CA1", "two margherita pizzas")

	readBack, err := fx.turns.HandleUtterance(ctx, "CA1", "for Dana, pickup at six thirty")
	if err != nil {
		t.Fatalf("Details turn failed: %v", err)
	}
	if !strings.Contains(readBack.Say, "read that back") {
		t.Fatalf("Expected read-back, got %q", readBack.Say)
	}
	if !strings.Contains(readBack.Say, "$34.45") {
		t.Fatalf("Read-back missing tax-inclusive total: %q", readBack.Say)
	}

	confirmed, err := fx.turns.HandleUtterance(ctx, "CA1", "yes that's right")
	if err != nil {
		t.Fatalf("Confirm turn failed: %v", err)
	}
	if confirmed.Order == nil {
		t.Fatal("Confirm did not produce an order")
	}
	if !confirmed.EndCall {
		t.Fatal("Voice order should wrap up the call after confirmation")
	}

	stored, err := fx.orders.GetBySessionRef(models.VoiceSessionKey("CA1"))
	if err != nil {
		t.Fatalf("Order not persisted: %v", err)
	}
	if stored.TotalCents != 3445 {
		t.Fatalf("Expected total 3445, got %d", stored.TotalCents)
	}
	if len(fx.queue.payloads) != 0 {
		t.Fatalf("No contact number given, yet %d texts enqueued", len(fx.queue.payloads))
	}
}

func TestConflictAtFinalizeReturnsToConfirming(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		intentJSON(map[string]interface{}{
			"intent": "add_item", "reply": "Sure.", "item": "Margherita Pizza",
		}),
		intentJSON(map[string]interface{}{
			"intent": "add_item", "reply": "Sure.", "item": "Caesar Salad",
		}),
		intentJSON(map[string]interface{}{
			"intent": "provide_details", "reply": "Got it.",
			"name": "Dana", "pickup_time": "18:30",
		}),
		intentJSON(map[string]interface{}{
			"intent": "confirm", "reply": "Great.", "confirmed": true,
		}),
	}}
	fx := newTurnFixture(t, provider)
	ctx := context.Background()

	fx.turns.BeginVoiceCall("CA1", "+15550001111", testRestaurantNumber)
	fx.turns.HandleUtterance(ctx, "CA1", "a margherita pizza")
	fx.turns.HandleUtterance(ctx, "CA1", "and a caesar salad")
	fx.turns.HandleUtterance(ctx, "CA1", "for Dana, pickup at six thirty")

	// The pizza sells out between read-back and confirmation.
	pizzaID := uuid.NewSHA1(uuid.NameSpaceOID, []byte("Margherita Pizza"))
	fx.restaurants.SetMenuItemAvailability(pizzaID.String(), false)

	result, err := fx.turns.HandleUtterance(ctx, "CA1", "yes")
	if err != nil {
		t.Fatalf("Confirm turn failed: %v", err)
	}

	if result.Order != nil {
		t.Fatal("Conflicting confirm still produced an order")
	}
	if !strings.Contains(result.Say, "sold out") {
		t.Fatalf("Expected sold-out apology, got %q", result.Say)
	}
	if !strings.Contains(result.Say, "Caesar Salad") {
		t.Fatalf("Corrected read-back missing surviving item: %q", result.Say)
	}
	if strings.Contains(result.Say, "$15.95") {
		t.Fatalf("Corrected read-back still prices the vanished item: %q", result.Say)
	}
}

func TestPayByPhoneStartsKeypadFlow(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		intentJSON(map[string]interface{}{
			"intent": "add_item", "reply": "Sure.", "item": "Margherita Pizza", "quantity": 2,
		}),
		intentJSON(map[string]interface{}{
			"intent": "provide_details", "reply": "Got it.",
			"name": "Dana", "pickup_time": "18:30", "pay_by_phone": true,
		}),
		intentJSON(map[string]interface{}{
			"intent": "confirm", "reply": "Great.", "confirmed": true,
		}),
	}}
	fx := newTurnFixture(t, provider)
	ctx := context.Background()

	fx.turns.BeginVoiceCall("CA1", "+15550001111", testRestaurantNumber)
	fx.turns.HandleUtterance(ctx, "CA1", "two margherita pizzas")
	fx.turns.HandleUtterance(ctx, "CA1", "Dana, six thirty, and I'll pay by card now")

	result, err := fx.turns.HandleUtterance(ctx, "CA1", "yes")
	if err != nil {
		t.Fatalf("Confirm turn failed: %v", err)
	}

	if !result.StartPayment {
		t.Fatal("Expected keypad payment to start")
	}
	if result.Order == nil {
		t.Fatal("Payment start without a persisted order")
	}
	if result.EndCall {
		t.Fatal("Call must stay open for the keypad flow")
	}
}

func TestEndCallDiscardsUnfinalizedCart(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		intentJSON(map[string]interface{}{
			"intent": "add_item", "reply": "Sure.", "item": "Margherita Pizza",
		}),
	}}
	fx := newTurnFixture(t, provider)
	ctx := context.Background()

	fx.turns.BeginVoiceCall("CA1", "+15550001111", testRestaurantNumber)
	fx.turns.HandleUtterance(ctx, "CA1", "a margherita pizza")

	fx.turns.EndCall("CA1")

	if _, err := fx.turns.HandleUtterance(ctx, "CA1", "hello?"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after call end, got %v", err)
	}
	if _, err := fx.orders.GetBySessionRef(models.VoiceSessionKey("CA1")); !errors.Is(err, models.ErrNotFound) {
		t.Fatal("An order appeared for a hung-up call")
	}
}

func TestTextThreadSurvivesAcrossMessages(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		intentJSON(map[string]interface{}{
			"intent": "add_item", "reply": "Sure.", "item": "Margherita Pizza",
		}),
		intentJSON(map[string]interface{}{
			"intent": "add_item", "reply": "Sure.", "item": "Caesar Salad",
		}),
	}}
	fx := newTurnFixture(t, provider)
	ctx := context.Background()

	if _, err := fx.turns.HandleTextMessage(ctx, "+15550001111", testRestaurantNumber, "a margherita pizza"); err != nil {
		t.Fatalf("First text failed: %v", err)
	}

	result, err := fx.turns.HandleTextMessage(ctx, "+15550001111", testRestaurantNumber, "and a caesar salad")
	if err != nil {
		t.Fatalf("Second text failed: %v", err)
	}
	// Both items priced means the cart carried across messages.
	if !strings.Contains(result.Say, "$10.95") {
		t.Fatalf("Second message reply unexpected: %q", result.Say)
	}
}
