package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/taskguru/taskguru-api/internal/dto"
	"github.com/taskguru/taskguru-api/internal/models"
	"github.com/taskguru/taskguru-api/internal/repository"
)

// Task error conditions surfaced to handlers.
var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrTaskForbidden     = errors.New("not allowed to modify this task")
	ErrTaskNotOpen       = errors.New("task is no longer open")
	ErrInvalidTransition = errors.New("invalid task status transition")
)

// TaskService exposes the task lifecycle use cases.
type TaskService interface {
	Create(ctx context.Context, clientUID string, payload dto.TaskCreateRequest) (dto.TaskResponse, error)
	Get(ctx context.Context, id uint) (dto.TaskResponse, error)
	Browse(ctx context.Context, query dto.TaskBrowseQuery) ([]dto.TaskResponse, int64, error)
	ListMine(ctx context.Context, clientUID string) ([]dto.TaskResponse, error)
	ListAssigned(ctx context.Context, taskerUID string) ([]dto.TaskResponse, error)
	Update(ctx context.Context, id uint, clientUID string, payload dto.TaskUpdateRequest) (dto.TaskResponse, error)
	Delete(ctx context.Context, id uint, clientUID string) error
	AcceptApplication(ctx context.Context, taskID, applicationID uint, clientUID string) (dto.ApplicationResponse, error)
	Start(ctx context.Context, id uint, taskerUID string) (dto.TaskResponse, error)
	Complete(ctx context.Context, id uint, clientUID string) (dto.TaskResponse, error)
	Cancel(ctx context.Context, id uint, clientUID string) (dto.TaskResponse, error)
}

type taskService struct {
	tasks         repository.TaskRepository
	applications  repository.ApplicationRepository
	users         repository.UserRepository
	notifications NotificationService
	validator     *validator.Validate
	sanitizer     *bluemonday.Policy
	logger        zerolog.Logger
	tracer        trace.Tracer
	now           func() time.Time
}

// NewTaskService builds the task lifecycle service.
func NewTaskService(tasks repository.TaskRepository, applications repository.ApplicationRepository, users repository.UserRepository, notifications NotificationService, validate *validator.Validate, logger zerolog.Logger) TaskService {
	return &taskService{
		tasks:         tasks,
		applications:  applications,
		users:         users,
		notifications: notifications,
		validator:     validate,
		sanitizer:     bluemonday.StrictPolicy(),
		logger:        logger.With().Str("component", "task_service").Logger(),
		tracer:        otel.Tracer("github.com/taskguru/taskguru-api/internal/service/task"),
		now:           time.Now,
	}
}

func (s *taskService) Create(ctx context.Context, clientUID string, payload dto.TaskCreateRequest) (dto.TaskResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TaskResponse{}, err
	}

	client, err := s.users.FindByUID(ctx, clientUID)
	if err != nil {
		return dto.TaskResponse{}, ErrUserNotFound
	}

	task := models.Task{
		Title:       strings.TrimSpace(s.sanitizer.Sanitize(payload.Title)),
		Description: strings.TrimSpace(s.sanitizer.Sanitize(payload.Description)),
		Category:    strings.TrimSpace(payload.Category),
		Budget:      payload.Budget,
		Location:    strings.TrimSpace(payload.Location),
		Deadline:    payload.Deadline,
		Status:      models.TaskStatusOpen,
		ClientUID:   client.UID,
		ClientName:  ResolveDisplayName(client),
		ClientEmail: client.Email,
	}

	if err := s.tasks.Create(ctx, &task); err != nil {
		return dto.TaskResponse{}, err
	}

	s.logger.Info().Uint("task_id", task.ID).Str("client_uid", clientUID).Msg("task posted")

	return dto.NewTaskResponse(task), nil
}

func (s *taskService) Get(ctx context.Context, id uint) (dto.TaskResponse, error) {
	task, err := s.findTask(ctx, id)
	if err != nil {
		return dto.TaskResponse{}, err
	}
	return dto.NewTaskResponse(task), nil
}

func (s *taskService) Browse(ctx context.Context, query dto.TaskBrowseQuery) ([]dto.TaskResponse, int64, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, 0, err
	}

	tasks, total, err := s.tasks.Browse(ctx, repository.TaskFilter{
		Status:    query.Status,
		Category:  query.Category,
		Search:    query.Search,
		MinBudget: query.MinPrice,
		MaxBudget: query.MaxPrice,
		Page:      query.Page,
		PageSize:  query.PageSize,
	})
	if err != nil {
		return nil, 0, err
	}

	return dto.NewTaskResponseSlice(tasks), total, nil
}

func (s *taskService) ListMine(ctx context.Context, clientUID string) ([]dto.TaskResponse, error) {
	tasks, err := s.tasks.ListByClient(ctx, clientUID)
	if err != nil {
		return nil, err
	}
	return dto.NewTaskResponseSlice(tasks), nil
}

func (s *taskService) ListAssigned(ctx context.Context, taskerUID string) ([]dto.TaskResponse, error) {
	tasks, err := s.tasks.ListByTasker(ctx, taskerUID)
	if err != nil {
		return nil, err
	}
	return dto.NewTaskResponseSlice(tasks), nil
}

func (s *taskService) Update(ctx context.Context, id uint, clientUID string, payload dto.TaskUpdateRequest) (dto.TaskResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TaskResponse{}, err
	}

	task, err := s.ownedTask(ctx, id, clientUID)
	if err != nil {
		return dto.TaskResponse{}, err
	}
	if task.Status != models.TaskStatusOpen {
		return dto.TaskResponse{}, ErrTaskNotOpen
	}

	updates := map[string]interface{}{}
	if payload.Title != nil {
		updates["title"] = strings.TrimSpace(s.sanitizer.Sanitize(*payload.Title))
	}
	if payload.Description != nil {
		updates["description"] = strings.TrimSpace(s.sanitizer.Sanitize(*payload.Description))
	}
	if payload.Category != nil {
		updates["category"] = strings.TrimSpace(*payload.Category)
	}
	if payload.Budget != nil {
		updates["budget"] = *payload.Budget
	}
	if payload.Location != nil {
		updates["location"] = strings.TrimSpace(*payload.Location)
	}
	if payload.Deadline != nil {
		updates["deadline"] = *payload.Deadline
	}

	updated, err := s.tasks.Update(ctx, id, updates)
	if err != nil {
		return dto.TaskResponse{}, err
	}

	return dto.NewTaskResponse(updated), nil
}

// Delete removes an open task and exactly its own applications.
func (s *taskService) Delete(ctx context.Context, id uint, clientUID string) error {
	task, err := s.ownedTask(ctx, id, clientUID)
	if err != nil {
		return err
	}
	if task.Status != models.TaskStatusOpen {
		return ErrTaskNotOpen
	}

	return s.tasks.DeleteWithApplications(ctx, id)
}

// AcceptApplication runs the assignment as a single transaction: the task
// moves open to assigned, the chosen application becomes accepted, and every
// sibling pending application becomes rejected.
func (s *taskService) AcceptApplication(ctx context.Context, taskID, applicationID uint, clientUID string) (dto.ApplicationResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "task.accept_application", trace.WithAttributes(
		attribute.Int64("task.id", int64(taskID)),
		attribute.Int64("application.id", int64(applicationID)),
	))
	defer span.End()

	task, err := s.ownedTask(spanCtx, taskID, clientUID)
	if err != nil {
		return dto.ApplicationResponse{}, err
	}
	if task.Status != models.TaskStatusOpen {
		return dto.ApplicationResponse{}, ErrTaskNotOpen
	}

	application, err := s.applications.FindByID(spanCtx, applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ApplicationResponse{}, ErrApplicationNotFound
		}
		return dto.ApplicationResponse{}, err
	}
	if application.TaskID != taskID || application.Status != models.ApplicationStatusPending {
		return dto.ApplicationResponse{}, ErrApplicationNotFound
	}

	tasker, err := s.users.FindByUID(spanCtx, application.TaskerUID)
	if err != nil {
		return dto.ApplicationResponse{}, ErrUserNotFound
	}
	tasker.DisplayName = ResolveDisplayName(tasker)

	accepted, err := s.tasks.AcceptApplication(spanCtx, taskID, applicationID, tasker)
	if err != nil {
		span.RecordError(err)
		return dto.ApplicationResponse{}, err
	}

	if s.notifications != nil {
		_, err := s.notifications.Publish(spanCtx, NotificationInput{
			UserUID: tasker.UID,
			Type:    models.NotificationTypeAcceptance,
			Title:   "Application accepted",
			Message: fmt.Sprintf("You were accepted for %s", task.Title),
			Data:    map[string]interface{}{"task_id": task.ID},
		})
		if err != nil {
			s.logger.Debug().Err(err).Uint("task_id", task.ID).Msg("acceptance notification skipped")
		}
	}

	return dto.NewApplicationResponse(accepted), nil
}

func (s *taskService) Start(ctx context.Context, id uint, taskerUID string) (dto.TaskResponse, error) {
	task, err := s.findTask(ctx, id)
	if err != nil {
		return dto.TaskResponse{}, err
	}

	if task.TaskerUID != taskerUID {
		return dto.TaskResponse{}, ErrTaskForbidden
	}
	if task.Status != models.TaskStatusAssigned {
		return dto.TaskResponse{}, ErrInvalidTransition
	}

	return s.transition(ctx, id, models.TaskStatusInProgress)
}

func (s *taskService) Complete(ctx context.Context, id uint, clientUID string) (dto.TaskResponse, error) {
	task, err := s.ownedTask(ctx, id, clientUID)
	if err != nil {
		return dto.TaskResponse{}, err
	}

	if task.Status != models.TaskStatusAssigned && task.Status != models.TaskStatusInProgress {
		return dto.TaskResponse{}, ErrInvalidTransition
	}

	response, err := s.transition(ctx, id, models.TaskStatusCompleted)
	if err != nil {
		return dto.TaskResponse{}, err
	}

	if s.notifications != nil && task.TaskerUID != "" {
		_, err := s.notifications.Publish(ctx, NotificationInput{
			UserUID: task.TaskerUID,
			Type:    models.NotificationTypeTaskUpdate,
			Title:   "Task completed",
			Message: fmt.Sprintf("%s was marked completed", task.Title),
			Data:    map[string]interface{}{"task_id": task.ID},
		})
		if err != nil {
			s.logger.Debug().Err(err).Uint("task_id", task.ID).Msg("completion notification skipped")
		}
	}

	return response, nil
}

func (s *taskService) Cancel(ctx context.Context, id uint, clientUID string) (dto.TaskResponse, error) {
	task, err := s.ownedTask(ctx, id, clientUID)
	if err != nil {
		return dto.TaskResponse{}, err
	}

	if task.IsTerminal() {
		return dto.TaskResponse{}, ErrInvalidTransition
	}

	return s.transition(ctx, id, models.TaskStatusCancelled)
}

func (s *taskService) transition(ctx context.Context, id uint, status string) (dto.TaskResponse, error) {
	updated, err := s.tasks.Update(ctx, id, map[string]interface{}{"status": status})
	if err != nil {
		return dto.TaskResponse{}, err
	}
	return dto.NewTaskResponse(updated), nil
}

func (s *taskService) findTask(ctx context.Context, id uint) (models.Task, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Task{}, ErrTaskNotFound
		}
		return models.Task{}, err
	}
	return task, nil
}

func (s *taskService) ownedTask(ctx context.Context, id uint, clientUID string) (models.Task, error) {
	task, err := s.findTask(ctx, id)
	if err != nil {
		return models.Task{}, err
	}
	if task.ClientUID != clientUID {
		return models.Task{}, ErrTaskForbidden
	}
	return task, nil
}
