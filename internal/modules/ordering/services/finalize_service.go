package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/tablevox/phone-agent-be/internal/core/jobs"
	"github.com/tablevox/phone-agent-be/internal/modules/ordering/models"
	"github.com/tablevox/phone-agent-be/internal/modules/ordering/repositories"
)

// ConflictError reports what changed under the caller's feet between
// confirmation and finalize. Unwraps to ErrConflict.
type ConflictError struct {
	RemovedItems []string
	Alternatives []string
	Message      string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) Unwrap() error {
	return models.ErrConflict
}

// Enqueuer is the slice of the job queue finalize needs: a fire-and-forget
// confirmation text.
type Enqueuer interface {
	Enqueue(ctx context.Context, restaurantID uuid.UUID, jobType string, payload interface{}) (*jobs.Job, error)
}

// FinalizeService persists confirmed orders and bookings. Both paths are
// idempotent on the session key: a second finalize for the same session
// returns the already-persisted record instead of creating a duplicate.
type FinalizeService struct {
	orderRepo    repositories.OrderRepo
	bookingRepo  repositories.BookingRepo
	availability *AvailabilityService
	queue        Enqueuer
}

func NewFinalizeService(
	orderRepo repositories.OrderRepo,
	bookingRepo repositories.BookingRepo,
	availability *AvailabilityService,
	queue Enqueuer,
) *FinalizeService {
	return &FinalizeService{
		orderRepo:    orderRepo,
		bookingRepo:  bookingRepo,
		availability: availability,
		queue:        queue,
	}
}

// FinalizeOrder turns the session's cart into a persisted order. Items
// that went unavailable since confirmation surface as a ConflictError
// listing them; nothing is persisted in that case.
func (s *FinalizeService) FinalizeOrder(ctx context.Context, session *models.ConversationSession, snapshot *models.RestaurantContext) (*models.Order, error) {
	if existing, err := s.orderRepo.GetBySessionRef(session.Key); err == nil {
		log.Printf("ℹ️  Order already finalized for session %s: %s", session.Key, existing.OrderNumber)
		return existing, nil
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	if session.Cart.IsEmpty() {
		return nil, fmt.Errorf("%w: cart is empty", models.ErrValidation)
	}
	if !session.Pending.OrderReady() {
		return nil, fmt.Errorf("%w: missing customer details", models.ErrValidation)
	}

	// Re-check every line against the freshest menu before committing.
	var removed []string
	for _, line := range session.Cart.Lines {
		if snapshot.FindItem(line.ItemID) == nil {
			removed = append(removed, line.Name)
		}
	}
	if len(removed) > 0 {
		return nil, &ConflictError{
			RemovedItems: removed,
			Message:      fmt.Sprintf("no longer available: %s", strings.Join(removed, ", ")),
		}
	}

	items := make([]models.OrderItem, 0, len(session.Cart.Lines))
	for _, line := range session.Cart.Lines {
		items = append(items, models.OrderItem{
			ItemID:          line.ItemID.String(),
			Name:            line.Name,
			Quantity:        line.Quantity,
			UnitPriceCents:  line.UnitPriceCents,
			Modifiers:       line.Modifiers,
			SpecialRequests: line.SpecialRequests,
			LineTotalCents:  line.LineTotalCents(),
		})
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		RestaurantID:  snapshot.ID,
		OrderNumber:   generateRef("ORD"),
		SessionRef:    session.Key,
		CustomerName:  deref(session.Pending.Name),
		CustomerPhone: deref(session.Pending.Contact),
		PickupTime:    deref(session.Pending.PickupTime),
		Items:         itemsJSON,
		SubtotalCents: session.Cart.SubtotalCents(),
		TaxCents:      session.Cart.TaxCents(snapshot.TaxRateBps),
		TotalCents:    session.Cart.TotalCents(snapshot.TaxRateBps),
		PaymentStatus: models.OrderPaymentPending,
	}

	if err := s.orderRepo.Create(order); err != nil {
		// A concurrent finalize for the same session lost the race; the
		// unique index on session_ref makes the winner's row the answer.
		if existing, lookupErr := s.orderRepo.GetBySessionRef(session.Key); lookupErr == nil {
			return existing, nil
		}
		return nil, err
	}

	log.Printf("✅ Order %s finalized for %s (total %s)", order.OrderNumber, order.CustomerName, FormatCentsAmount(order.TotalCents))

	s.enqueueConfirmation(ctx, snapshot, order.CustomerPhone, s.orderConfirmationText(snapshot, order))

	return order, nil
}

// FinalizeBooking persists a confirmed table booking, re-checking the slot
// first. A slot that filled up since confirmation returns a ConflictError
// carrying fresh alternatives.
func (s *FinalizeService) FinalizeBooking(ctx context.Context, session *models.ConversationSession, snapshot *models.RestaurantContext) (*models.Booking, error) {
	if existing, err := s.bookingRepo.GetBySessionRef(session.Key); err == nil {
		log.Printf("ℹ️  Booking already finalized for session %s: %s", session.Key, existing.BookingRef)
		return existing, nil
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	if !session.Pending.BookingReady() {
		return nil, fmt.Errorf("%w: missing booking details", models.ErrValidation)
	}

	date := deref(session.Pending.Date)
	timeSlot := deref(session.Pending.Time)
	partySize := *session.Pending.PartySize

	free, err := s.availability.CheckSlot(snapshot, date, timeSlot, partySize)
	if err != nil {
		return nil, err
	}
	if !free {
		alternatives, altErr := s.availability.AlternativeSlots(snapshot, date, partySize, 3)
		if altErr != nil {
			alternatives = nil
		}
		return nil, &ConflictError{
			Alternatives: alternatives,
			Message:      fmt.Sprintf("slot %s on %s is no longer available", timeSlot, date),
		}
	}

	booking := &models.Booking{
		RestaurantID: snapshot.ID,
		BookingRef:   generateRef("BKG"),
		SessionRef:   session.Key,
		CustomerName: deref(session.Pending.Name),
		CustomerPhone: func() string {
			if session.Pending.Contact != nil {
				return *session.Pending.Contact
			}
			return session.CustomerNumber
		}(),
		Date:      date,
		Time:      timeSlot,
		PartySize: partySize,
		Status:    models.BookingConfirmed,
	}

	if err := s.bookingRepo.Create(booking); err != nil {
		if existing, lookupErr := s.bookingRepo.GetBySessionRef(session.Key); lookupErr == nil {
			return existing, nil
		}
		return nil, err
	}

	log.Printf("✅ Booking %s finalized: %s, party of %d on %s at %s", booking.BookingRef, booking.CustomerName, partySize, date, timeSlot)

	s.enqueueConfirmation(ctx, snapshot, booking.CustomerPhone, s.bookingConfirmationText(snapshot, booking))

	return booking, nil
}

func (s *FinalizeService) enqueueConfirmation(ctx context.Context, snapshot *models.RestaurantContext, to, body string) {
	if to == "" {
		return
	}
	if _, err := s.queue.Enqueue(ctx, snapshot.ID, jobs.TypeSendSMS, jobs.SMSPayload{To: to, Body: body}); err != nil {
		log.Printf("⚠️  Failed to enqueue confirmation SMS: %v", err)
	}
}

func (s *FinalizeService) orderConfirmationText(snapshot *models.RestaurantContext, order *models.Order) string {
	text := fmt.Sprintf("%s — order %s confirmed. Total %s.", snapshot.Name, order.OrderNumber, FormatCentsAmount(order.TotalCents))
	if order.PickupTime != "" {
		text += fmt.Sprintf(" Pickup at %s.", order.PickupTime)
	}
	return text
}

func (s *FinalizeService) bookingConfirmationText(snapshot *models.RestaurantContext, booking *models.Booking) string {
	return fmt.Sprintf("%s — table for %d booked on %s at %s. Reference %s.",
		snapshot.Name, booking.PartySize, booking.Date, booking.Time, booking.BookingRef)
}

// generateRef produces a short human-readable reference like ORD-7F3A21
func generateRef(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, strings.ToUpper(uuid.New().String()[:6]))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
