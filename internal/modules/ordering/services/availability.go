package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/tablevox/phone-agent-be/internal/modules/ordering/models"
	"github.com/tablevox/phone-agent-be/internal/modules/ordering/repositories"
)

// AvailabilityService answers whether a table slot can be booked. Every
// alternative slot the assistant offers comes out of CheckSlot; nothing is
// suggested on a hunch.
type AvailabilityService struct {
	bookingRepo repositories.BookingRepo
	now         func() time.Time
}

func NewAvailabilityService(bookingRepo repositories.BookingRepo) *AvailabilityService {
	return &AvailabilityService{
		bookingRepo: bookingRepo,
		now:         time.Now,
	}
}

// CheckSlot reports whether the restaurant can seat a party at the given
// date ("2006-01-02") and time ("15:04"). Structural problems with the
// request (bad date, outside opening hours, too far ahead) return
// ErrValidation; a full slot returns false with no error.
func (s *AvailabilityService) CheckSlot(snapshot *models.RestaurantContext, date, timeSlot string, partySize int) (bool, error) {
	if partySize < 1 {
		return false, fmt.Errorf("%w: party size must be at least 1", models.ErrValidation)
	}

	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return false, fmt.Errorf("%w: invalid date %q", models.ErrValidation, date)
	}

	slot, err := time.Parse("15:04", timeSlot)
	if err != nil {
		return false, fmt.Errorf("%w: invalid time %q", models.ErrValidation, timeSlot)
	}

	today := s.now().Truncate(24 * time.Hour)
	if day.Before(today) {
		return false, fmt.Errorf("%w: date is in the past", models.ErrValidation)
	}
	if snapshot.MaxAdvanceDays > 0 && day.After(today.AddDate(0, 0, snapshot.MaxAdvanceDays)) {
		return false, fmt.Errorf("%w: bookings open %d days ahead at most", models.ErrValidation, snapshot.MaxAdvanceDays)
	}

	if !s.openOn(snapshot, day) {
		return false, fmt.Errorf("%w: closed on %s", models.ErrValidation, day.Weekday().String())
	}
	if !s.withinHours(snapshot, slot) {
		return false, fmt.Errorf("%w: outside opening hours", models.ErrValidation)
	}

	count, err := s.bookingRepo.CountAtSlot(snapshot.ID.String(), date, timeSlot)
	if err != nil {
		return false, err
	}

	return count < int64(snapshot.TableCapacity), nil
}

// AlternativeSlots returns up to limit bookable times on the same date,
// checked slot by slot on the hour.
func (s *AvailabilityService) AlternativeSlots(snapshot *models.RestaurantContext, date string, partySize, limit int) ([]string, error) {
	opens, err := time.Parse("15:04", snapshot.OpensAt)
	if err != nil {
		return nil, fmt.Errorf("%w: restaurant has no opening hours", models.ErrValidation)
	}
	closes, err := time.Parse("15:04", snapshot.ClosesAt)
	if err != nil {
		return nil, fmt.Errorf("%w: restaurant has no closing hours", models.ErrValidation)
	}

	var alternatives []string
	for t := opens; t.Before(closes); t = t.Add(time.Hour) {
		slot := t.Format("15:04")
		free, err := s.CheckSlot(snapshot, date, slot, partySize)
		if err != nil {
			continue
		}
		if free {
			alternatives = append(alternatives, slot)
			if limit > 0 && len(alternatives) >= limit {
				break
			}
		}
	}

	return alternatives, nil
}

func (s *AvailabilityService) openOn(snapshot *models.RestaurantContext, day time.Time) bool {
	if snapshot.OperatingDays == "" {
		return true
	}
	short := day.Weekday().String()[:3] // "Mon"
	for _, d := range strings.Split(snapshot.OperatingDays, ",") {
		if strings.EqualFold(strings.TrimSpace(d), short) {
			return true
		}
	}
	return false
}

func (s *AvailabilityService) withinHours(snapshot *models.RestaurantContext, slot time.Time) bool {
	if snapshot.OpensAt == "" || snapshot.ClosesAt == "" {
		return true
	}
	opens, err1 := time.Parse("15:04", snapshot.OpensAt)
	closes, err2 := time.Parse("15:04", snapshot.ClosesAt)
	if err1 != nil || err2 != nil {
		return true
	}
	return !slot.Before(opens) && slot.Before(closes)
}
