package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/taskguru/taskguru-api/internal/models"
)

// UploadRepository persists metadata about uploaded images.
type UploadRepository interface {
	Create(ctx context.Context, record *models.Upload) error
	ListByUser(ctx context.Context, userUID string, limit int) ([]models.Upload, error)
}

type uploadRepository struct {
	db *gorm.DB
}

// NewUploadRepository constructs a repository for upload records.
func NewUploadRepository(db *gorm.DB) UploadRepository {
	return &uploadRepository{db: db}
}

func (r *uploadRepository) Create(ctx context.Context, record *models.Upload) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *uploadRepository) ListByUser(ctx context.Context, userUID string, limit int) ([]models.Upload, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var records []models.Upload
	if err := r.db.WithContext(ctx).
		Where("user_uid = ?", userUID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}
