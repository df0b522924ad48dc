package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/taskguru/taskguru-api/internal/dto"
	"github.com/taskguru/taskguru-api/internal/models"
	"github.com/taskguru/taskguru-api/internal/repository"
)

type taskFixture struct {
	db            *gorm.DB
	tasks         TaskService
	applications  ApplicationService
	notifications NotificationService
	client        models.User
	taskerOne     models.User
	taskerTwo     models.User
}

func newTaskFixture(t *testing.T) taskFixture {
	t.Helper()

	db := setupServiceDB(t)
	validate := testValidator()

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	notifications := NewNotificationService(notificationRepo, userRepo, nil, nil, "", nil, zerolog.Nop())

	return taskFixture{
		db:            db,
		tasks:         NewTaskService(taskRepo, applicationRepo, userRepo, notifications, validate, zerolog.Nop()),
		applications:  NewApplicationService(applicationRepo, taskRepo, userRepo, notifications, validate, zerolog.Nop()),
		notifications: notifications,
		client:        seedUser(t, db, "client-1", models.RoleClient, "client@example.com", "Cara", "Client"),
		taskerOne:     seedUser(t, db, "tasker-1", models.RoleTasker, "tasker1@example.com", "Tom", "Tasker"),
		taskerTwo:     seedUser(t, db, "tasker-2", models.RoleTasker, "tasker2@example.com", "Tina", "Tasker"),
	}
}

func (f taskFixture) postTask(t *testing.T, title string) dto.TaskResponse {
	t.Helper()

	task, err := f.tasks.Create(context.Background(), f.client.UID, dto.TaskCreateRequest{
		Title:       title,
		Description: "Assemble a flat-pack wardrobe and anchor it to the wall.",
		Category:    "assembly",
		Budget:      350,
	})
	require.NoError(t, err)

	return task
}

func TestTaskServiceCreateEchoesPostedFields(t *testing.T) {
	f := newTaskFixture(t)

	deadline := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)
	posted, err := f.tasks.Create(context.Background(), f.client.UID, dto.TaskCreateRequest{
		Title:       "Mount a TV bracket",
		Description: "55 inch TV on a drywall with metal studs, bracket provided.",
		Category:    "handyman",
		Budget:      200,
		Location:    "Gaborone",
		Deadline:    &deadline,
	})
	require.NoError(t, err)

	fetched, err := f.tasks.Get(context.Background(), posted.ID)
	require.NoError(t, err)
	require.Equal(t, "Mount a TV bracket", fetched.Title)
	require.Equal(t, "55 inch TV on a drywall with metal studs, bracket provided.", fetched.Description)
	require.Equal(t, "handyman", fetched.Category)
	require.Equal(t, 200.0, fetched.Budget)
	require.Equal(t, "Gaborone", fetched.Location)
	require.Equal(t, models.TaskStatusOpen, fetched.Status)
	require.Equal(t, f.client.UID, fetched.ClientUID)
	require.Equal(t, "Cara Client", fetched.ClientName)
	require.False(t, fetched.CreatedAt.IsZero())
}

func TestTaskServiceAcceptRejectsSiblingsAndNotifies(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	task := f.postTask(t, "Paint the garden fence")

	first, err := f.applications.Apply(ctx, task.ID, f.taskerOne.UID, dto.ApplicationCreateRequest{Message: "I can start tomorrow"})
	require.NoError(t, err)
	second, err := f.applications.Apply(ctx, task.ID, f.taskerTwo.UID, dto.ApplicationCreateRequest{BidAmount: 300})
	require.NoError(t, err)

	accepted, err := f.tasks.AcceptApplication(ctx, task.ID, first.ID, f.client.UID)
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusAccepted, accepted.Status)
	require.False(t, accepted.Seen)

	assigned, err := f.tasks.Get(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusAssigned, assigned.Status)
	require.Equal(t, f.taskerOne.UID, assigned.TaskerUID)
	require.Equal(t, "Tom Tasker", assigned.TaskerName)

	var sibling models.Application
	require.NoError(t, f.db.First(&sibling, second.ID).Error)
	require.Equal(t, models.ApplicationStatusRejected, sibling.Status)

	notifications, err := f.notifications.List(ctx, f.taskerOne.UID, 10, 0)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	require.Equal(t, models.NotificationTypeAcceptance, notifications[0].Type)
}

func TestTaskServiceAcceptRequiresOpenTaskAndMatchingApplication(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	taskA := f.postTask(t, "Clean the gutters on a bungalow")
	taskB := f.postTask(t, "Move boxes into a storage unit")

	applicationA, err := f.applications.Apply(ctx, taskA.ID, f.taskerOne.UID, dto.ApplicationCreateRequest{})
	require.NoError(t, err)

	// Application belongs to a different task.
	_, err = f.tasks.AcceptApplication(ctx, taskB.ID, applicationA.ID, f.client.UID)
	require.ErrorIs(t, err, ErrApplicationNotFound)

	// Only the owner can accept.
	_, err = f.tasks.AcceptApplication(ctx, taskA.ID, applicationA.ID, f.taskerTwo.UID)
	require.ErrorIs(t, err, ErrTaskForbidden)

	_, err = f.tasks.AcceptApplication(ctx, taskA.ID, applicationA.ID, f.client.UID)
	require.NoError(t, err)

	// The task is no longer open, so a second accept fails.
	_, err = f.tasks.AcceptApplication(ctx, taskA.ID, applicationA.ID, f.client.UID)
	require.ErrorIs(t, err, ErrTaskNotOpen)
}

func TestTaskServiceLifecycleTransitions(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	task := f.postTask(t, "Service a ride-on lawnmower")
	application, err := f.applications.Apply(ctx, task.ID, f.taskerOne.UID, dto.ApplicationCreateRequest{})
	require.NoError(t, err)
	_, err = f.tasks.AcceptApplication(ctx, task.ID, application.ID, f.client.UID)
	require.NoError(t, err)

	// Only the assigned tasker can start.
	_, err = f.tasks.Start(ctx, task.ID, f.taskerTwo.UID)
	require.ErrorIs(t, err, ErrTaskForbidden)

	started, err := f.tasks.Start(ctx, task.ID, f.taskerOne.UID)
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusInProgress, started.Status)

	// Starting twice is an invalid transition.
	_, err = f.tasks.Start(ctx, task.ID, f.taskerOne.UID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	completed, err := f.tasks.Complete(ctx, task.ID, f.client.UID)
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusCompleted, completed.Status)

	_, err = f.tasks.Cancel(ctx, task.ID, f.client.UID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTaskServiceDeleteScopedToOwnApplications(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	doomed := f.postTask(t, "Prune the apple trees")
	survivor := f.postTask(t, "Install shelf brackets in the garage")

	_, err := f.applications.Apply(ctx, doomed.ID, f.taskerOne.UID, dto.ApplicationCreateRequest{})
	require.NoError(t, err)
	kept, err := f.applications.Apply(ctx, survivor.ID, f.taskerOne.UID, dto.ApplicationCreateRequest{})
	require.NoError(t, err)

	require.ErrorIs(t, f.tasks.Delete(ctx, doomed.ID, f.taskerOne.UID), ErrTaskForbidden)
	require.NoError(t, f.tasks.Delete(ctx, doomed.ID, f.client.UID))

	_, err = f.tasks.Get(ctx, doomed.ID)
	require.ErrorIs(t, err, ErrTaskNotFound)

	var remaining []models.Application
	require.NoError(t, f.db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, kept.ID, remaining[0].ID)
}

func TestTaskServiceUpdateOnlyWhileOpen(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	task := f.postTask(t, "Dig a vegetable bed")
	application, err := f.applications.Apply(ctx, task.ID, f.taskerOne.UID, dto.ApplicationCreateRequest{})
	require.NoError(t, err)

	newBudget := 500.0
	updated, err := f.tasks.Update(ctx, task.ID, f.client.UID, dto.TaskUpdateRequest{Budget: &newBudget})
	require.NoError(t, err)
	require.Equal(t, 500.0, updated.Budget)

	_, err = f.tasks.AcceptApplication(ctx, task.ID, application.ID, f.client.UID)
	require.NoError(t, err)

	_, err = f.tasks.Update(ctx, task.ID, f.client.UID, dto.TaskUpdateRequest{Budget: &newBudget})
	require.ErrorIs(t, err, ErrTaskNotOpen)
}
