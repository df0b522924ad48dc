package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/taskguru/taskguru-api/internal/models"
)

// ApplicationRepository handles persistence for task applications.
type ApplicationRepository interface {
	Create(ctx context.Context, application *models.Application) error
	FindByID(ctx context.Context, id uint) (models.Application, error)
	ExistsForTasker(ctx context.Context, taskID uint, taskerUID string) (bool, error)
	ListByTask(ctx context.Context, taskID uint) ([]models.Application, error)
	ListByTasker(ctx context.Context, taskerUID string) ([]models.Application, error)
	Delete(ctx context.Context, id uint) error
	MarkSeen(ctx context.Context, id uint, taskerUID string) error
	Update(ctx context.Context, id uint, updates map[string]interface{}) error
	ListPendingForClient(ctx context.Context, clientUID string) ([]models.Application, error)
	ListAcceptedUnseen(ctx context.Context, taskerUID string) ([]models.Application, error)
	CountByTask(ctx context.Context, taskID uint) (int64, error)
}

type applicationRepository struct {
	db *gorm.DB
}

// NewApplicationRepository constructs an application repository backed by GORM.
func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) Create(ctx context.Context, application *models.Application) error {
	return r.db.WithContext(ctx).Create(application).Error
}

func (r *applicationRepository) FindByID(ctx context.Context, id uint) (models.Application, error) {
	var application models.Application
	if err := r.db.WithContext(ctx).First(&application, id).Error; err != nil {
		return models.Application{}, err
	}
	return application, nil
}

func (r *applicationRepository) ExistsForTasker(ctx context.Context, taskID uint, taskerUID string) (bool, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Application{}).
		Where("task_id = ? AND tasker_uid = ?", taskID, taskerUID).
		Count(&total).Error
	if err != nil {
		return false, err
	}
	return total > 0, nil
}

func (r *applicationRepository) ListByTask(ctx context.Context, taskID uint) ([]models.Application, error) {
	var applications []models.Application
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at DESC").
		Find(&applications).Error
	if err != nil {
		return nil, err
	}
	return applications, nil
}

func (r *applicationRepository) ListByTasker(ctx context.Context, taskerUID string) ([]models.Application, error) {
	var applications []models.Application
	err := r.db.WithContext(ctx).
		Where("tasker_uid = ?", taskerUID).
		Order("created_at DESC").
		Find(&applications).Error
	if err != nil {
		return nil, err
	}
	return applications, nil
}

func (r *applicationRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Application{}, id).Error
}

func (r *applicationRepository) MarkSeen(ctx context.Context, id uint, taskerUID string) error {
	result := r.db.WithContext(ctx).Model(&models.Application{}).
		Where("id = ? AND tasker_uid = ?", id, taskerUID).
		Update("seen", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *applicationRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.Application{}).Where("id = ?", id).Updates(updates).Error
}

// ListPendingForClient returns pending applications on the client's open
// tasks, newest first.
func (r *applicationRepository) ListPendingForClient(ctx context.Context, clientUID string) ([]models.Application, error) {
	var applications []models.Application
	err := r.db.WithContext(ctx).
		Joins("JOIN tasks ON tasks.id = applications.task_id").
		Where("tasks.client_uid = ? AND tasks.status = ? AND applications.status = ?",
			clientUID, models.TaskStatusOpen, models.ApplicationStatusPending).
		Order("applications.created_at DESC").
		Find(&applications).Error
	if err != nil {
		return nil, err
	}
	return applications, nil
}

// ListAcceptedUnseen returns the tasker's accepted applications they have not
// acknowledged yet.
func (r *applicationRepository) ListAcceptedUnseen(ctx context.Context, taskerUID string) ([]models.Application, error) {
	var applications []models.Application
	err := r.db.WithContext(ctx).
		Where("tasker_uid = ? AND status = ? AND seen = ?", taskerUID, models.ApplicationStatusAccepted, false).
		Order("created_at DESC").
		Find(&applications).Error
	if err != nil {
		return nil, err
	}
	return applications, nil
}

func (r *applicationRepository) CountByTask(ctx context.Context, taskID uint) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Application{}).Where("task_id = ?", taskID).Count(&total).Error
	return total, err
}
