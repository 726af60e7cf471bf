package repositories

import (
	"errors"

	"github.com/tablevox/phone-agent-be/internal/modules/ordering/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RestaurantRepo interface {
	Create(restaurant *models.Restaurant) error
	GetByID(id string) (*models.Restaurant, error)
	GetByPhoneNumber(phoneNumber string) (*models.Restaurant, error)
	GetMenuItems(restaurantID string, onlyAvailable bool) ([]models.MenuItem, error)
	Update(restaurant *models.Restaurant) error
	CreateMenuItem(item *models.MenuItem) error
	UpdateMenuItem(item *models.MenuItem) error
	SetMenuItemAvailability(itemID string, available bool) error
}

type restaurantRepo struct {
	db *gorm.DB
}

func NewRestaurantRepo(db *gorm.DB) RestaurantRepo {
	return &restaurantRepo{db: db}
}

func (r *restaurantRepo) Create(restaurant *models.Restaurant) error {
	return r.db.Create(restaurant).Error
}

func (r *restaurantRepo) GetByID(id string) (*models.Restaurant, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}

	var restaurant models.Restaurant
	err = r.db.First(&restaurant, "id = ?", uid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	return &restaurant, err
}

func (r *restaurantRepo) GetByPhoneNumber(phoneNumber string) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	err := r.db.Where("phone_number = ?", phoneNumber).First(&restaurant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	return &restaurant, err
}

func (r *restaurantRepo) GetMenuItems(restaurantID string, onlyAvailable bool) ([]models.MenuItem, error) {
	var items []models.MenuItem
	query := r.db.Where("restaurant_id = ?", restaurantID).
		Order("category ASC, name ASC")

	if onlyAvailable {
		query = query.Where("available = ?", true)
	}

	err := query.Find(&items).Error
	return items, err
}

func (r *restaurantRepo) Update(restaurant *models.Restaurant) error {
	return r.db.Save(restaurant).Error
}

func (r *restaurantRepo) CreateMenuItem(item *models.MenuItem) error {
	return r.db.Create(item).Error
}

func (r *restaurantRepo) UpdateMenuItem(item *models.MenuItem) error {
	return r.db.Save(item).Error
}

func (r *restaurantRepo) SetMenuItemAvailability(itemID string, available bool) error {
	return r.db.Model(&models.MenuItem{}).
		Where("id = ?", itemID).
		Update("available", available).Error
}
