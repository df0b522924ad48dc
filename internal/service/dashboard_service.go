package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/taskguru/taskguru-api/internal/dto"
	"github.com/taskguru/taskguru-api/internal/models"
	"github.com/taskguru/taskguru-api/internal/repository"
)

// DashboardService produces aggregated dashboard metrics per role.
type DashboardService interface {
	Client(ctx context.Context, clientUID string) (dto.ClientDashboard, error)
	Tasker(ctx context.Context, taskerUID string) (dto.TaskerDashboard, error)
	Admin(ctx context.Context) (dto.AdminDashboard, error)
}

type dashboardService struct {
	tasks        repository.TaskRepository
	applications repository.ApplicationRepository
	chats        repository.ChatRepository
	reviews      repository.ReviewRepository
	users        repository.UserRepository
	cache        *redis.Client
	cacheTTL     time.Duration
	logger       zerolog.Logger
	now          func() time.Time
}

// NewDashboardService builds the dashboard aggregator.
func NewDashboardService(tasks repository.TaskRepository, applications repository.ApplicationRepository, chats repository.ChatRepository, reviews repository.ReviewRepository, users repository.UserRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) DashboardService {
	return &dashboardService{
		tasks:        tasks,
		applications: applications,
		chats:        chats,
		reviews:      reviews,
		users:        users,
		cache:        cache,
		cacheTTL:     ttl,
		logger:       logger.With().Str("component", "dashboard_service").Logger(),
		now:          time.Now,
	}
}

func (s *dashboardService) Client(ctx context.Context, clientUID string) (dto.ClientDashboard, error) {
	cacheKey := fmt.Sprintf("dashboard:client:%s", clientUID)

	var cached dto.ClientDashboard
	if s.readCache(ctx, cacheKey, &cached) {
		return cached, nil
	}

	tasks, err := s.tasks.ListByClient(ctx, clientUID)
	if err != nil {
		return dto.ClientDashboard{}, err
	}

	dashboard := dto.ClientDashboard{Tasks: make([]dto.ClientDashboardTask, 0, len(tasks))}
	for _, task := range tasks {
		switch task.Status {
		case models.TaskStatusOpen:
			dashboard.OpenTasks++
		case models.TaskStatusAssigned:
			dashboard.AssignedTasks++
		case models.TaskStatusInProgress:
			dashboard.InProgressTasks++
		case models.TaskStatusCompleted:
			dashboard.CompletedTasks++
		case models.TaskStatusCancelled:
			dashboard.CancelledTasks++
		}

		count, err := s.applications.CountByTask(ctx, task.ID)
		if err != nil {
			s.logger.Warn().Err(err).Uint("task_id", task.ID).Msg("application count unavailable")
		}
		dashboard.Tasks = append(dashboard.Tasks, dto.ClientDashboardTask{
			Task:         dto.NewTaskResponse(task),
			Applications: count,
		})
	}

	unread, err := s.chats.TotalUnread(ctx, clientUID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("unread total unavailable")
	}
	dashboard.UnreadMessages = unread

	s.writeCache(ctx, cacheKey, dashboard)
	return dashboard, nil
}

func (s *dashboardService) Tasker(ctx context.Context, taskerUID string) (dto.TaskerDashboard, error) {
	cacheKey := fmt.Sprintf("dashboard:tasker:%s", taskerUID)

	var cached dto.TaskerDashboard
	if s.readCache(ctx, cacheKey, &cached) {
		return cached, nil
	}

	tasks, err := s.tasks.ListByTasker(ctx, taskerUID)
	if err != nil {
		return dto.TaskerDashboard{}, err
	}

	dashboard := dto.TaskerDashboard{AssignedTasks: make([]dto.TaskResponse, 0, len(tasks))}
	monthStart := s.monthStart()
	for _, task := range tasks {
		dashboard.AssignedTasks = append(dashboard.AssignedTasks, dto.NewTaskResponse(task))
		if task.Status == models.TaskStatusCompleted {
			dashboard.TotalEarnings += task.Budget
			if task.UpdatedAt.After(monthStart) {
				dashboard.MonthEarnings += task.Budget
			}
		}
	}

	average, count, err := s.reviews.AverageRating(ctx, taskerUID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("average rating unavailable")
	} else {
		dashboard.AverageRating = average
		dashboard.ReviewCount = count
	}

	unread, err := s.chats.TotalUnread(ctx, taskerUID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("unread total unavailable")
	}
	dashboard.UnreadMessages = unread

	s.writeCache(ctx, cacheKey, dashboard)
	return dashboard, nil
}

func (s *dashboardService) Admin(ctx context.Context) (dto.AdminDashboard, error) {
	cacheKey := "dashboard:admin"

	var cached dto.AdminDashboard
	if s.readCache(ctx, cacheKey, &cached) {
		return cached, nil
	}

	dashboard := dto.AdminDashboard{}

	var err error
	if dashboard.TotalUsers, err = s.users.Count(ctx); err != nil {
		return dto.AdminDashboard{}, err
	}
	if dashboard.TotalClients, err = s.users.CountByRole(ctx, models.RoleClient); err != nil {
		return dto.AdminDashboard{}, err
	}
	if dashboard.TotalTaskers, err = s.users.CountByRole(ctx, models.RoleTasker); err != nil {
		return dto.AdminDashboard{}, err
	}
	if dashboard.TotalTasks, err = s.tasks.Count(ctx); err != nil {
		return dto.AdminDashboard{}, err
	}

	for _, status := range []string{models.TaskStatusOpen, models.TaskStatusAssigned, models.TaskStatusInProgress} {
		count, err := s.tasks.CountByStatus(ctx, status)
		if err != nil {
			return dto.AdminDashboard{}, err
		}
		dashboard.ActiveTasks += count
	}

	recentUsers, err := s.users.ListRecent(ctx, 5)
	if err != nil {
		return dto.AdminDashboard{}, err
	}
	dashboard.RecentUsers = dto.NewUserResponseSlice(recentUsers)

	recentTasks, err := s.tasks.ListRecent(ctx, 5)
	if err != nil {
		return dto.AdminDashboard{}, err
	}
	dashboard.RecentTasks = dto.NewTaskResponseSlice(recentTasks)

	s.writeCache(ctx, cacheKey, dashboard)
	return dashboard, nil
}

func (s *dashboardService) monthStart() time.Time {
	now := s.now()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

// Cache failures are log-and-continue: the dashboard always falls back to
// the live aggregation.
func (s *dashboardService) readCache(ctx context.Context, key string, target interface{}) bool {
	if s.cache == nil {
		return false
	}

	cached, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
		}
		return false
	}

	if err := json.Unmarshal([]byte(cached), target); err != nil {
		s.logger.Warn().Err(err).Msg("failed to decode dashboard cache")
		return false
	}

	s.logger.Debug().Str("key", key).Msg("dashboard cache hit")
	return true
}

func (s *dashboardService) writeCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return
	}

	if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
	}
}
