package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/taskguru/taskguru-api/internal/dto"
	"github.com/taskguru/taskguru-api/internal/models"
	"github.com/taskguru/taskguru-api/internal/repository"
)

// Review error conditions surfaced to handlers.
var (
	ErrTaskNotCompleted = errors.New("task is not completed")
	ErrAlreadyReviewed  = errors.New("task already reviewed")
)

// ReviewService exposes tasker review use cases.
type ReviewService interface {
	Create(ctx context.Context, clientUID string, payload dto.ReviewCreateRequest) (dto.ReviewResponse, error)
	ListByTasker(ctx context.Context, taskerUID string, limit, offset int) (dto.ReviewListResponse, error)
}

type reviewService struct {
	reviews   repository.ReviewRepository
	tasks     repository.TaskRepository
	users     repository.UserRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewReviewService builds the review service.
func NewReviewService(reviews repository.ReviewRepository, tasks repository.TaskRepository, users repository.UserRepository, validate *validator.Validate, logger zerolog.Logger) ReviewService {
	return &reviewService{
		reviews:   reviews,
		tasks:     tasks,
		users:     users,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "review_service").Logger(),
	}
}

func (s *reviewService) Create(ctx context.Context, clientUID string, payload dto.ReviewCreateRequest) (dto.ReviewResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ReviewResponse{}, err
	}

	task, err := s.tasks.FindByID(ctx, payload.TaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReviewResponse{}, ErrTaskNotFound
		}
		return dto.ReviewResponse{}, err
	}

	if task.ClientUID != clientUID {
		return dto.ReviewResponse{}, ErrTaskForbidden
	}
	if task.Status != models.TaskStatusCompleted || task.TaskerUID == "" {
		return dto.ReviewResponse{}, ErrTaskNotCompleted
	}

	exists, err := s.reviews.ExistsForTask(ctx, payload.TaskID, clientUID)
	if err != nil {
		return dto.ReviewResponse{}, err
	}
	if exists {
		return dto.ReviewResponse{}, ErrAlreadyReviewed
	}

	reviewerName := placeholderPerson
	if client, err := s.users.FindByUID(ctx, clientUID); err == nil {
		reviewerName = ResolveDisplayName(client)
	}

	review := models.Review{
		TaskID:       payload.TaskID,
		TaskerUID:    task.TaskerUID,
		ClientUID:    clientUID,
		ReviewerName: reviewerName,
		Rating:       payload.Rating,
		Comment:      strings.TrimSpace(s.sanitizer.Sanitize(payload.Comment)),
	}

	if err := s.reviews.Create(ctx, &review); err != nil {
		return dto.ReviewResponse{}, err
	}

	return dto.NewReviewResponse(review), nil
}

func (s *reviewService) ListByTasker(ctx context.Context, taskerUID string, limit, offset int) (dto.ReviewListResponse, error) {
	reviews, total, err := s.reviews.ListByTasker(ctx, taskerUID, limit, offset)
	if err != nil {
		return dto.ReviewListResponse{}, err
	}

	average, _, err := s.reviews.AverageRating(ctx, taskerUID)
	if err != nil {
		return dto.ReviewListResponse{}, err
	}

	return dto.ReviewListResponse{
		Reviews:       dto.NewReviewResponseSlice(reviews),
		AverageRating: average,
		Total:         total,
	}, nil
}
