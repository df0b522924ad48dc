package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/taskguru/taskguru-api/internal/models"
	"github.com/taskguru/taskguru-api/internal/repository"
)

type feedFixture struct {
	db     *gorm.DB
	feed   FeedService
	client models.User
	tasker models.User
}

func newFeedFixture(t *testing.T) feedFixture {
	t.Helper()

	db := setupServiceDB(t)
	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	chatRepo := repository.NewChatRepository(db)

	return feedFixture{
		db:     db,
		feed:   NewFeedService(applicationRepo, chatRepo, taskRepo, userRepo, zerolog.Nop()),
		client: seedUser(t, db, "client-1", models.RoleClient, "client@example.com", "Cara", "Client"),
		tasker: seedUser(t, db, "tasker-1", models.RoleTasker, "tasker1@example.com", "Tom", "Tasker"),
	}
}

func (f feedFixture) seedTask(t *testing.T, title string) models.Task {
	t.Helper()

	task := models.Task{
		Title:       title,
		Description: "details",
		Budget:      100,
		Status:      models.TaskStatusOpen,
		ClientUID:   f.client.UID,
		ClientName:  "Cara Client",
	}
	require.NoError(t, f.db.Create(&task).Error)

	return task
}

func TestFeedServiceBackfillsMissingApplicationFields(t *testing.T) {
	f := newFeedFixture(t)
	ctx := context.Background()

	task := f.seedTask(t, "Wash the van fleet")

	// Denormalized fields left empty, as if written by an older client.
	application := models.Application{
		TaskID:    task.ID,
		TaskerUID: f.tasker.UID,
		Status:    models.ApplicationStatusPending,
	}
	require.NoError(t, f.db.Create(&application).Error)

	feed, err := f.feed.Feed(ctx, f.client.UID, models.RoleClient)
	require.NoError(t, err)
	require.Equal(t, 1, feed.Total)
	require.Len(t, feed.Items, 1)
	require.Equal(t, "application", feed.Items[0].Kind)
	require.Equal(t, "Tom Tasker applied for Wash the van fleet", feed.Items[0].Title)

	// The resolved values were written back.
	var stored models.Application
	require.NoError(t, f.db.First(&stored, application.ID).Error)
	require.Equal(t, "Tom Tasker", stored.TaskerName)
	require.Equal(t, "Wash the van fleet", stored.TaskTitle)
}

func TestFeedServiceUsesPlaceholdersForDeletedRows(t *testing.T) {
	f := newFeedFixture(t)
	ctx := context.Background()

	task := f.seedTask(t, "Short-lived errand")

	application := models.Application{
		TaskID:    task.ID,
		TaskerUID: "uid-vanished",
		Status:    models.ApplicationStatusPending,
	}
	require.NoError(t, f.db.Create(&application).Error)

	// The tasker row is gone but the task is still open, so the feed keeps
	// rendering with a placeholder instead of failing.
	require.NoError(t, f.db.Where("id = ?", task.ID).Delete(&models.Task{}).Error)

	task2 := f.seedTask(t, "Replacement errand")
	application.ID = 0
	application.TaskID = task2.ID
	require.NoError(t, f.db.Create(&application).Error)

	feed, err := f.feed.Feed(ctx, f.client.UID, models.RoleClient)
	require.NoError(t, err)
	require.Equal(t, 1, feed.Total)
	require.Equal(t, "Someone applied for Replacement errand", feed.Items[0].Title)
}

func TestFeedServiceCapsPreviewAtThree(t *testing.T) {
	f := newFeedFixture(t)
	ctx := context.Background()

	task := f.seedTask(t, "Stack firewood for winter")

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		tasker := seedUser(t, f.db, "bulk-tasker-"+string(rune('a'+i)), models.RoleTasker,
			"bulk"+string(rune('a'+i))+"@example.com", "Bulk", "Tasker")
		application := models.Application{
			TaskID:     task.ID,
			TaskTitle:  task.Title,
			TaskerUID:  tasker.UID,
			TaskerName: "Bulk Tasker",
			Status:     models.ApplicationStatusPending,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, f.db.Create(&application).Error)
	}

	feed, err := f.feed.Feed(ctx, f.client.UID, models.RoleClient)
	require.NoError(t, err)
	require.Equal(t, 5, feed.Total)
	require.Len(t, feed.Items, 3)

	// Newest first.
	for i := 1; i < len(feed.Items); i++ {
		require.False(t, feed.Items[i].CreatedAt.After(feed.Items[i-1].CreatedAt))
	}
}

func TestFeedServiceMergesChatActivityForTasker(t *testing.T) {
	f := newFeedFixture(t)
	ctx := context.Background()

	task := f.seedTask(t, "Repaint the nursery")
	application := models.Application{
		TaskID:    task.ID,
		TaskTitle: task.Title,
		TaskerUID: f.tasker.UID,
		Status:    models.ApplicationStatusAccepted,
		Seen:      false,
	}
	require.NoError(t, f.db.Create(&application).Error)

	chatRepo := repository.NewChatRepository(f.db)
	memberA, memberB := models.SortMembers(f.client.UID, f.tasker.UID)
	chat, err := chatRepo.EnsureChat(ctx, &models.Chat{
		ChatKey: models.ChatKeyFor(f.client.UID, f.tasker.UID),
		MemberA: memberA,
		MemberB: memberB,
	})
	require.NoError(t, err)
	require.NoError(t, chatRepo.SaveMessage(ctx, chat, &models.Message{
		ChatID:    chat.ID,
		SenderUID: f.client.UID,
		Text:      "Can you start on Monday?",
		CreatedAt: time.Now(),
	}))

	feed, err := f.feed.Feed(ctx, f.tasker.UID, models.RoleTasker)
	require.NoError(t, err)
	require.Equal(t, 2, feed.Total)

	kinds := map[string]bool{}
	for _, item := range feed.Items {
		kinds[item.Kind] = true
		if item.Kind == "chat" {
			require.Equal(t, "New messages from Cara Client", item.Title)
			require.EqualValues(t, 1, item.Unread)
		}
	}
	require.True(t, kinds["acceptance"])
	require.True(t, kinds["chat"])
}
