package repositories

import (
	"github.com/tablevox/phone-agent-be/internal/modules/ordering/models"
	"gorm.io/gorm"
)

type ConversationRepo interface {
	Create(log *models.ConversationLog) error
	GetBySessionKey(sessionKey string, limit int) ([]models.ConversationLog, error)
}

type conversationRepo struct {
	db *gorm.DB
}

func NewConversationRepo(db *gorm.DB) ConversationRepo {
	return &conversationRepo{db: db}
}

func (r *conversationRepo) Create(log *models.ConversationLog) error {
	return r.db.Create(log).Error
}

func (r *conversationRepo) GetBySessionKey(sessionKey string, limit int) ([]models.ConversationLog, error) {
	var logs []models.ConversationLog
	query := r.db.Where("session_key = ?", sessionKey).
		Order("created_at ASC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Find(&logs).Error
	return logs, err
}
