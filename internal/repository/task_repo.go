package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/taskguru/taskguru-api/internal/models"
)

// TaskFilter narrows task listings.
type TaskFilter struct {
	Status    string
	Category  string
	Search    string
	MinBudget *float64
	MaxBudget *float64
	Page      int
	PageSize  int
}

// TaskRepository handles persistence for tasks, including the transactional
// operations that span tasks and applications.
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, id uint) (models.Task, error)
	Update(ctx context.Context, id uint, updates map[string]interface{}) (models.Task, error)
	ListByClient(ctx context.Context, clientUID string) ([]models.Task, error)
	ListByTasker(ctx context.Context, taskerUID string) ([]models.Task, error)
	Browse(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)
	DeleteWithApplications(ctx context.Context, taskID uint) error
	AcceptApplication(ctx context.Context, taskID, applicationID uint, tasker models.User) (models.Application, error)
	CountByStatus(ctx context.Context, status string) (int64, error)
	Count(ctx context.Context) (int64, error)
	ListRecent(ctx context.Context, limit int) ([]models.Task, error)
}

type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository constructs a task repository backed by GORM.
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *taskRepository) FindByID(ctx context.Context, id uint) (models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return models.Task{}, err
	}
	return task, nil
}

func (r *taskRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) (models.Task, error) {
	if len(updates) > 0 {
		if err := r.db.WithContext(ctx).Model(&models.Task{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return models.Task{}, err
		}
	}
	return r.FindByID(ctx, id)
}

func (r *taskRepository) ListByClient(ctx context.Context, clientUID string) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.WithContext(ctx).
		Where("client_uid = ?", clientUID).
		Order("created_at DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) ListByTasker(ctx context.Context, taskerUID string) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.WithContext(ctx).
		Where("tasker_uid = ?", taskerUID).
		Order("created_at DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) Browse(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Task{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if filter.MinBudget != nil {
		query = query.Where("budget >= ?", *filter.MinBudget)
	}
	if filter.MaxBudget != nil {
		query = query.Where("budget <= ?", *filter.MaxBudget)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}

	var tasks []models.Task
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// DeleteWithApplications removes a task and exactly its own applications in
// one transaction.
func (r *taskRepository) DeleteWithApplications(ctx context.Context, taskID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", taskID).Delete(&models.Application{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Task{}, taskID).Error
	})
}

// AcceptApplication assigns the task to the applicant, accepts the
// application, and rejects every sibling pending application with a single
// set-based update. Everything happens in one transaction so no reader
// observes an assigned task with pending siblings.
func (r *taskRepository) AcceptApplication(ctx context.Context, taskID, applicationID uint, tasker models.User) (models.Application, error) {
	var accepted models.Application

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND task_id = ?", applicationID, taskID).First(&accepted).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Task{}).Where("id = ?", taskID).Updates(map[string]interface{}{
			"status":       models.TaskStatusAssigned,
			"tasker_uid":   tasker.UID,
			"tasker_name":  tasker.DisplayName,
			"tasker_email": tasker.Email,
		}).Error; err != nil {
			return err
		}

		if err := tx.Model(&accepted).Updates(map[string]interface{}{
			"status": models.ApplicationStatusAccepted,
			"seen":   false,
		}).Error; err != nil {
			return err
		}

		return tx.Model(&models.Application{}).
			Where("task_id = ? AND id <> ? AND status = ?", taskID, applicationID, models.ApplicationStatusPending).
			Update("status", models.ApplicationStatusRejected).Error
	})
	if err != nil {
		return models.Application{}, err
	}

	return accepted, nil
}

func (r *taskRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Task{}).Where("status = ?", status).Count(&total).Error
	return total, err
}

func (r *taskRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Task{}).Count(&total).Error
	return total, err
}

func (r *taskRepository) ListRecent(ctx context.Context, limit int) ([]models.Task, error) {
	if limit <= 0 || limit > 100 {
		limit = 5
	}

	var tasks []models.Task
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}
