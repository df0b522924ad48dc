package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/taskguru/taskguru-api/internal/models"
)

// ReviewRepository handles persistence for tasker reviews.
type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	ListByTasker(ctx context.Context, taskerUID string, limit, offset int) ([]models.Review, int64, error)
	AverageRating(ctx context.Context, taskerUID string) (float64, int64, error)
	ExistsForTask(ctx context.Context, taskID uint, clientUID string) (bool, error)
}

type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository constructs a review repository backed by GORM.
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *reviewRepository) ListByTasker(ctx context.Context, taskerUID string, limit, offset int) ([]models.Review, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := r.db.WithContext(ctx).Model(&models.Review{}).Where("tasker_uid = ?", taskerUID)

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reviews []models.Review
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&reviews).Error; err != nil {
		return nil, 0, err
	}

	return reviews, total, nil
}

func (r *reviewRepository) AverageRating(ctx context.Context, taskerUID string) (float64, int64, error) {
	var result struct {
		Average float64
		Total   int64
	}

	err := r.db.WithContext(ctx).Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS total").
		Where("tasker_uid = ?", taskerUID).
		Scan(&result).Error
	if err != nil {
		return 0, 0, err
	}

	return result.Average, result.Total, nil
}

func (r *reviewRepository) ExistsForTask(ctx context.Context, taskID uint, clientUID string) (bool, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Review{}).
		Where("task_id = ? AND client_uid = ?", taskID, clientUID).
		Count(&total).Error
	if err != nil {
		return false, err
	}
	return total > 0, nil
}
