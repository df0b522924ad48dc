package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/taskguru/taskguru-api/internal/models"
)

// PaymentRepository stores the audit trail of created payment intents.
type PaymentRepository interface {
	Create(ctx context.Context, record *models.PaymentIntentRecord) error
	ListByUser(ctx context.Context, userUID string, limit, offset int) ([]models.PaymentIntentRecord, error)
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository constructs a payment repository backed by GORM.
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, record *models.PaymentIntentRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *paymentRepository) ListByUser(ctx context.Context, userUID string, limit, offset int) ([]models.PaymentIntentRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var records []models.PaymentIntentRecord
	if err := r.db.WithContext(ctx).
		Where("user_uid = ?", userUID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}
