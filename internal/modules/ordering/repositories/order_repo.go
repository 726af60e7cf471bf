package repositories

import (
	"errors"

	"github.com/tablevox/phone-agent-be/internal/modules/ordering/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderRepo interface {
	Create(order *models.Order) error
	GetByID(id string) (*models.Order, error)
	GetByOrderNumber(orderNumber string) (*models.Order, error)
	GetBySessionRef(sessionRef string) (*models.Order, error)
	GetByRestaurantID(restaurantID string, limit int) ([]models.Order, error)
	UpdatePaymentStatus(orderID, status string) error
	Update(order *models.Order) error
}

type orderRepo struct {
	db *gorm.DB
}

func NewOrderRepo(db *gorm.DB) OrderRepo {
	return &orderRepo{db: db}
}

func (r *orderRepo) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

func (r *orderRepo) GetByID(id string) (*models.Order, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}

	var order models.Order
	err = r.db.First(&order, "id = ?", uid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	return &order, err
}

func (r *orderRepo) GetByOrderNumber(orderNumber string) (*models.Order, error) {
	var order models.Order
	err := r.db.Where("order_number = ?", orderNumber).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	return &order, err
}

func (r *orderRepo) GetBySessionRef(sessionRef string) (*models.Order, error) {
	var order models.Order
	err := r.db.Where("session_ref = ?", sessionRef).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	return &order, err
}

func (r *orderRepo) GetByRestaurantID(restaurantID string, limit int) ([]models.Order, error) {
	var orders []models.Order
	query := r.db.Where("restaurant_id = ?", restaurantID).
		Order("created_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Find(&orders).Error
	return orders, err
}

func (r *orderRepo) UpdatePaymentStatus(orderID, status string) error {
	return r.db.Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("payment_status", status).Error
}

func (r *orderRepo) Update(order *models.Order) error {
	return r.db.Save(order).Error
}
