package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/taskguru/taskguru-api/internal/dto"
	"github.com/taskguru/taskguru-api/internal/models"
	"github.com/taskguru/taskguru-api/internal/repository"
)

// ErrAdminSelfTarget is returned when an administrator targets their own account.
var ErrAdminSelfTarget = errors.New("administrators cannot modify their own account")

// AdminService implements moderation operations reserved for administrators.
type AdminService interface {
	ListUsers(ctx context.Context, search string, limit, offset int) ([]dto.UserResponse, int64, error)
	SetUserActive(ctx context.Context, actorUID, targetUID string, active bool) error
	DeleteUser(ctx context.Context, actorUID, targetUID string) error
	DeleteTask(ctx context.Context, actorUID string, taskID uint) error
	ActivityLogs(ctx context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, int64, error)
}

type adminService struct {
	users         repository.UserRepository
	tasks         repository.TaskRepository
	activity      repository.ActivityLogRepository
	notifications NotificationService
	logger        zerolog.Logger
}

// NewAdminService builds the admin moderation service.
func NewAdminService(users repository.UserRepository, tasks repository.TaskRepository, activity repository.ActivityLogRepository, notifications NotificationService, logger zerolog.Logger) AdminService {
	return &adminService{
		users:         users,
		tasks:         tasks,
		activity:      activity,
		notifications: notifications,
		logger:        logger.With().Str("component", "admin_service").Logger(),
	}
}

func (s *adminService) ListUsers(ctx context.Context, search string, limit, offset int) ([]dto.UserResponse, int64, error) {
	users, total, err := s.users.List(ctx, search, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	return dto.NewUserResponseSlice(users), total, nil
}

func (s *adminService) SetUserActive(ctx context.Context, actorUID, targetUID string, active bool) error {
	if actorUID == targetUID {
		return ErrAdminSelfTarget
	}

	if err := s.users.SetActive(ctx, targetUID, active); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	action := "user.deactivated"
	message := "Your account has been deactivated by an administrator."
	if active {
		action = "user.activated"
		message = "Your account has been reactivated."
	}

	s.recordActivity(ctx, actorUID, action, "user", nil, datatypes.JSONMap{"target_uid": targetUID})

	if active {
		s.notifyTarget(ctx, targetUID, "Account reactivated", message)
	}

	return nil
}

func (s *adminService) DeleteUser(ctx context.Context, actorUID, targetUID string) error {
	if actorUID == targetUID {
		return ErrAdminSelfTarget
	}

	if err := s.users.SoftDelete(ctx, targetUID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	s.recordActivity(ctx, actorUID, "user.deleted", "user", nil, datatypes.JSONMap{"target_uid": targetUID})

	return nil
}

func (s *adminService) DeleteTask(ctx context.Context, actorUID string, taskID uint) error {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return err
	}

	if err := s.tasks.DeleteWithApplications(ctx, task.ID); err != nil {
		return err
	}

	s.recordActivity(ctx, actorUID, "task.deleted", "task", &task.ID, datatypes.JSONMap{"title": task.Title})

	participants := []string{task.ClientUID}
	if task.TaskerUID != "" {
		participants = append(participants, task.TaskerUID)
	}
	s.notifyParticipants(ctx, participants, "Task removed",
		"The task \""+task.Title+"\" was removed by an administrator.")

	return nil
}

func (s *adminService) ActivityLogs(ctx context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	return s.activity.List(ctx, filter)
}

func (s *adminService) recordActivity(ctx context.Context, actorUID, action, entityType string, entityID *uint, metadata datatypes.JSONMap) {
	entry := models.ActivityLog{
		ActorUID:   actorUID,
		ActorRole:  models.RoleAdmin,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   metadata,
	}
	if err := s.activity.Create(ctx, &entry); err != nil {
		s.logger.Error().Err(err).Str("action", action).Msg("failed to record activity log")
	}
}

func (s *adminService) notifyTarget(ctx context.Context, userUID, title, message string) {
	if s.notifications == nil {
		return
	}

	_, err := s.notifications.Publish(ctx, NotificationInput{
		UserUID: userUID,
		Type:    models.NotificationTypeAdminAction,
		Title:   title,
		Message: message,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_uid", userUID).Msg("failed to notify user of admin action")
	}
}

func (s *adminService) notifyParticipants(ctx context.Context, userUIDs []string, title, message string) {
	if s.notifications == nil {
		return
	}

	_, err := s.notifications.Broadcast(ctx, userUIDs, NotificationInput{
		Type:    models.NotificationTypeAdminAction,
		Title:   title,
		Message: message,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to notify participants of admin action")
	}
}
