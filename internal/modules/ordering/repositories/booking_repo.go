package repositories

import (
	"errors"

	"github.com/tablevox/phone-agent-be/internal/modules/ordering/models"
	"gorm.io/gorm"
)

type BookingRepo interface {
	Create(booking *models.Booking) error
	GetByBookingRef(bookingRef string) (*models.Booking, error)
	GetBySessionRef(sessionRef string) (*models.Booking, error)
	CountAtSlot(restaurantID, date, timeSlot string) (int64, error)
	GetByRestaurantAndDate(restaurantID, date string) ([]models.Booking, error)
	UpdateStatus(bookingID, status string) error
}

type bookingRepo struct {
	db *gorm.DB
}

func NewBookingRepo(db *gorm.DB) BookingRepo {
	return &bookingRepo{db: db}
}

func (r *bookingRepo) Create(booking *models.Booking) error {
	return r.db.Create(booking).Error
}

func (r *bookingRepo) GetByBookingRef(bookingRef string) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.Where("booking_ref = ?", bookingRef).First(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	return &booking, err
}

func (r *bookingRepo) GetBySessionRef(sessionRef string) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.Where("session_ref = ?", sessionRef).First(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	return &booking, err
}

// CountAtSlot counts confirmed bookings holding tables at a given slot.
func (r *bookingRepo) CountAtSlot(restaurantID, date, timeSlot string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Booking{}).
		Where("restaurant_id = ? AND date = ? AND time = ? AND status = ?",
			restaurantID, date, timeSlot, models.BookingConfirmed).
		Count(&count).Error
	return count, err
}

func (r *bookingRepo) GetByRestaurantAndDate(restaurantID, date string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.Where("restaurant_id = ? AND date = ?", restaurantID, date).
		Order("time ASC").
		Find(&bookings).Error
	return bookings, err
}

func (r *bookingRepo) UpdateStatus(bookingID, status string) error {
	return r.db.Model(&models.Booking{}).
		Where("id = ?", bookingID).
		Update("status", status).Error
}
