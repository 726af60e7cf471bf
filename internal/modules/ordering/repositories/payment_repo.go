package repositories

import (
	"errors"
	"time"

	"github.com/tablevox/phone-agent-be/internal/modules/ordering/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentRepo interface {
	Create(session *models.PaymentSession) error
	GetByID(id string) (*models.PaymentSession, error)
	GetActiveByCallSID(callSID string) (*models.PaymentSession, error)
	Update(session *models.PaymentSession) error
	PurgeExpired(now time.Time) (int64, error)
}

type paymentRepo struct {
	db *gorm.DB
}

func NewPaymentRepo(db *gorm.DB) PaymentRepo {
	return &paymentRepo{db: db}
}

func (r *paymentRepo) Create(session *models.PaymentSession) error {
	return r.db.Create(session).Error
}

func (r *paymentRepo) GetByID(id string) (*models.PaymentSession, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}

	var session models.PaymentSession
	err = r.db.First(&session, "id = ?", uid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	return &session, err
}

// GetActiveByCallSID returns the newest non-terminal payment session for a call.
func (r *paymentRepo) GetActiveByCallSID(callSID string) (*models.PaymentSession, error) {
	var session models.PaymentSession
	err := r.db.Where("call_sid = ? AND status NOT IN ?", callSID, []string{
		models.PaymentAuthorized, models.PaymentFailed, models.PaymentCancelled,
	}).Order("created_at DESC").First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	return &session, err
}

func (r *paymentRepo) Update(session *models.PaymentSession) error {
	return r.db.Save(session).Error
}

// PurgeExpired deletes sessions past their deadline that never authorized.
func (r *paymentRepo) PurgeExpired(now time.Time) (int64, error) {
	result := r.db.Where("expires_at < ? AND status <> ?", now, models.PaymentAuthorized).
		Delete(&models.PaymentSession{})
	return result.RowsAffected, result.Error
}
