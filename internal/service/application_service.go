package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/taskguru/taskguru-api/internal/dto"
	"github.com/taskguru/taskguru-api/internal/models"
	"github.com/taskguru/taskguru-api/internal/repository"
)

// Application error conditions surfaced to handlers.
var (
	ErrApplicationNotFound  = errors.New("application not found")
	ErrApplicationForbidden = errors.New("not allowed to modify this application")
	ErrAlreadyApplied       = errors.New("already applied for this task")
	ErrApplicationNotOpen   = errors.New("application can no longer be withdrawn")
)

// ApplicationService exposes the application use cases.
type ApplicationService interface {
	Apply(ctx context.Context, taskID uint, taskerUID string, payload dto.ApplicationCreateRequest) (dto.ApplicationResponse, error)
	Withdraw(ctx context.Context, id uint, taskerUID string) error
	ListByTask(ctx context.Context, taskID uint, clientUID string) ([]dto.ApplicationResponse, error)
	ListMine(ctx context.Context, taskerUID string) ([]dto.ApplicationResponse, error)
	MarkSeen(ctx context.Context, id uint, taskerUID string) error
}

type applicationService struct {
	applications  repository.ApplicationRepository
	tasks         repository.TaskRepository
	users         repository.UserRepository
	notifications NotificationService
	validator     *validator.Validate
	sanitizer     *bluemonday.Policy
	logger        zerolog.Logger
}

// NewApplicationService builds the application service.
func NewApplicationService(applications repository.ApplicationRepository, tasks repository.TaskRepository, users repository.UserRepository, notifications NotificationService, validate *validator.Validate, logger zerolog.Logger) ApplicationService {
	return &applicationService{
		applications:  applications,
		tasks:         tasks,
		users:         users,
		notifications: notifications,
		validator:     validate,
		sanitizer:     bluemonday.StrictPolicy(),
		logger:        logger.With().Str("component", "application_service").Logger(),
	}
}

func (s *applicationService) Apply(ctx context.Context, taskID uint, taskerUID string, payload dto.ApplicationCreateRequest) (dto.ApplicationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ApplicationResponse{}, err
	}

	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ApplicationResponse{}, ErrTaskNotFound
		}
		return dto.ApplicationResponse{}, err
	}
	if task.Status != models.TaskStatusOpen {
		return dto.ApplicationResponse{}, ErrTaskNotOpen
	}
	if task.ClientUID == taskerUID {
		return dto.ApplicationResponse{}, ErrApplicationForbidden
	}

	exists, err := s.applications.ExistsForTasker(ctx, taskID, taskerUID)
	if err != nil {
		return dto.ApplicationResponse{}, err
	}
	if exists {
		return dto.ApplicationResponse{}, ErrAlreadyApplied
	}

	tasker, err := s.users.FindByUID(ctx, taskerUID)
	if err != nil {
		return dto.ApplicationResponse{}, ErrUserNotFound
	}

	application := models.Application{
		TaskID:      taskID,
		TaskTitle:   task.Title,
		TaskerUID:   tasker.UID,
		TaskerName:  ResolveDisplayName(tasker),
		TaskerEmail: tasker.Email,
		Message:     strings.TrimSpace(s.sanitizer.Sanitize(payload.Message)),
		BidAmount:   payload.BidAmount,
		Status:      models.ApplicationStatusPending,
	}

	if err := s.applications.Create(ctx, &application); err != nil {
		return dto.ApplicationResponse{}, err
	}

	if s.notifications != nil {
		_, err := s.notifications.Publish(ctx, NotificationInput{
			UserUID: task.ClientUID,
			Type:    models.NotificationTypeApplication,
			Title:   "New application",
			Message: fmt.Sprintf("%s applied for %s", application.TaskerName, task.Title),
			Data:    map[string]interface{}{"task_id": task.ID, "application_id": application.ID},
		})
		if err != nil {
			s.logger.Debug().Err(err).Uint("task_id", task.ID).Msg("application notification skipped")
		}
	}

	return dto.NewApplicationResponse(application), nil
}

func (s *applicationService) Withdraw(ctx context.Context, id uint, taskerUID string) error {
	application, err := s.ownApplication(ctx, id, taskerUID)
	if err != nil {
		return err
	}

	if application.Status != models.ApplicationStatusPending {
		return ErrApplicationNotOpen
	}

	return s.applications.Delete(ctx, id)
}

func (s *applicationService) ListByTask(ctx context.Context, taskID uint, clientUID string) ([]dto.ApplicationResponse, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	if task.ClientUID != clientUID {
		return nil, ErrTaskForbidden
	}

	applications, err := s.applications.ListByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	return dto.NewApplicationResponseSlice(applications), nil
}

func (s *applicationService) ListMine(ctx context.Context, taskerUID string) ([]dto.ApplicationResponse, error) {
	applications, err := s.applications.ListByTasker(ctx, taskerUID)
	if err != nil {
		return nil, err
	}
	return dto.NewApplicationResponseSlice(applications), nil
}

func (s *applicationService) MarkSeen(ctx context.Context, id uint, taskerUID string) error {
	if err := s.applications.MarkSeen(ctx, id, taskerUID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrApplicationNotFound
		}
		return err
	}
	return nil
}

func (s *applicationService) ownApplication(ctx context.Context, id uint, taskerUID string) (models.Application, error) {
	application, err := s.applications.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Application{}, ErrApplicationNotFound
		}
		return models.Application{}, err
	}
	if application.TaskerUID != taskerUID {
		return models.Application{}, ErrApplicationForbidden
	}
	return application, nil
}
