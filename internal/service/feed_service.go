package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/taskguru/taskguru-api/internal/dto"
	"github.com/taskguru/taskguru-api/internal/models"
	"github.com/taskguru/taskguru-api/internal/repository"
)

// Placeholders used when a referenced row has been deleted. The feed keeps
// rendering instead of failing the whole aggregate.
const (
	placeholderTaskTitle = "a task"
	placeholderPerson    = "Someone"
)

// feedPreviewCap bounds the merged preview; Total carries the full count.
const feedPreviewCap = 3

// FeedService merges application and chat activity into a capped, time-sorted
// notification preview.
type FeedService interface {
	Feed(ctx context.Context, userUID, role string) (dto.FeedResponse, error)
}

type feedService struct {
	applications repository.ApplicationRepository
	chats        repository.ChatRepository
	tasks        repository.TaskRepository
	users        repository.UserRepository
	logger       zerolog.Logger
}

// NewFeedService builds the notification feed aggregator.
func NewFeedService(applications repository.ApplicationRepository, chats repository.ChatRepository, tasks repository.TaskRepository, users repository.UserRepository, logger zerolog.Logger) FeedService {
	return &feedService{
		applications: applications,
		chats:        chats,
		tasks:        tasks,
		users:        users,
		logger:       logger.With().Str("component", "feed_service").Logger(),
	}
}

func (s *feedService) Feed(ctx context.Context, userUID, role string) (dto.FeedResponse, error) {
	var items []dto.FeedItem

	switch role {
	case models.RoleClient:
		applications, err := s.applications.ListPendingForClient(ctx, userUID)
		if err != nil {
			return dto.FeedResponse{}, err
		}
		for _, application := range applications {
			application = s.backfillApplication(ctx, application)
			items = append(items, dto.FeedItem{
				Kind:      "application",
				Title:     fmt.Sprintf("%s applied for %s", application.TaskerName, application.TaskTitle),
				TaskID:    application.TaskID,
				CreatedAt: application.CreatedAt,
			})
		}
	case models.RoleTasker:
		applications, err := s.applications.ListAcceptedUnseen(ctx, userUID)
		if err != nil {
			return dto.FeedResponse{}, err
		}
		for _, application := range applications {
			application = s.backfillApplication(ctx, application)
			items = append(items, dto.FeedItem{
				Kind:      "acceptance",
				Title:     fmt.Sprintf("You were accepted for %s", application.TaskTitle),
				TaskID:    application.TaskID,
				CreatedAt: application.UpdatedAt,
			})
		}
	}

	chats, err := s.chats.ListWithUnread(ctx, userUID)
	if err != nil {
		return dto.FeedResponse{}, err
	}
	for _, chat := range chats {
		item := dto.FeedItem{
			Kind:   "chat",
			Title:  fmt.Sprintf("New messages from %s", s.counterpartName(ctx, chat, userUID)),
			Detail: chat.LastMessageText,
			ChatID: chat.ID,
			Unread: chat.UnreadFor(userUID),
		}
		if chat.LastMessageAt != nil {
			item.CreatedAt = *chat.LastMessageAt
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	total := len(items)
	if total > feedPreviewCap {
		items = items[:feedPreviewCap]
	}
	if items == nil {
		items = []dto.FeedItem{}
	}

	return dto.FeedResponse{Items: items, Total: total}, nil
}

// backfillApplication resolves missing denormalized fields by point lookup
// and writes them back. The write is idempotent; concurrent backfills land on
// the same values, so a race is harmless.
func (s *feedService) backfillApplication(ctx context.Context, application models.Application) models.Application {
	updates := map[string]interface{}{}

	if application.TaskerName == "" {
		if user, err := s.users.FindByUID(ctx, application.TaskerUID); err == nil {
			application.TaskerName = ResolveDisplayName(user)
			application.TaskerEmail = user.Email
			updates["tasker_name"] = application.TaskerName
			updates["tasker_email"] = application.TaskerEmail
		} else {
			application.TaskerName = placeholderPerson
		}
	}

	if application.TaskTitle == "" {
		if task, err := s.tasks.FindByID(ctx, application.TaskID); err == nil {
			application.TaskTitle = task.Title
			updates["task_title"] = task.Title
		} else {
			application.TaskTitle = placeholderTaskTitle
		}
	}

	if len(updates) > 0 {
		if err := s.applications.Update(ctx, application.ID, updates); err != nil {
			s.logger.Debug().Err(err).Uint("application_id", application.ID).Msg("feed backfill write failed")
		}
	}

	return application
}

func (s *feedService) counterpartName(ctx context.Context, chat models.Chat, userUID string) string {
	counterpart := chat.OtherMember(userUID)
	user, err := s.users.FindByUID(ctx, counterpart)
	if err != nil {
		return placeholderPerson
	}
	return ResolveDisplayName(user)
}
