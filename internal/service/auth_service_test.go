package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/taskguru/taskguru-api/internal/dto"
	"github.com/taskguru/taskguru-api/internal/models"
	"github.com/taskguru/taskguru-api/internal/repository"
)

func newAuthService(t *testing.T) (AuthService, repository.UserRepository) {
	t.Helper()

	db := setupServiceDB(t)
	users := repository.NewUserRepository(db)
	svc := NewAuthService(users, testValidator(), "access-secret", "refresh-secret", zerolog.Nop())

	return svc, users
}

func TestAuthServiceRegisterAndLogin(t *testing.T) {
	svc, users := newAuthService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, dto.RegisterRequest{
		Email:     "Jane@Example.com",
		Password:  "correct-horse",
		Role:      models.RoleClient,
		FirstName: "Jane",
		LastName:  "Doe",
	})
	require.NoError(t, err)
	require.NotEmpty(t, registered.AccessToken)
	require.NotEmpty(t, registered.RefreshToken)
	require.NotEmpty(t, registered.User.UID)
	require.Equal(t, "jane@example.com", registered.User.Email)
	require.Equal(t, "Jane Doe", registered.User.DisplayName)

	stored, err := users.FindByUID(ctx, registered.User.UID)
	require.NoError(t, err)
	require.NotEqual(t, "correct-horse", stored.PasswordHash)

	logged, err := svc.Login(ctx, dto.LoginRequest{Email: "jane@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	require.Equal(t, registered.User.UID, logged.User.UID)
}

func TestAuthServiceRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	payload := dto.RegisterRequest{Email: "dupe@example.com", Password: "password123", Role: models.RoleTasker}

	_, err := svc.Register(ctx, payload)
	require.NoError(t, err)

	_, err = svc.Register(ctx, payload)
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestAuthServiceRejectsBadPassword(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, dto.RegisterRequest{Email: "bob@example.com", Password: "password123", Role: models.RoleClient})
	require.NoError(t, err)

	_, err = svc.Login(ctx, dto.LoginRequest{Email: "bob@example.com", Password: "wrong-password"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, dto.LoginRequest{Email: "nobody@example.com", Password: "password123"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthServiceRejectsDisabledAccount(t *testing.T) {
	svc, users := newAuthService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, dto.RegisterRequest{Email: "off@example.com", Password: "password123", Role: models.RoleClient})
	require.NoError(t, err)

	require.NoError(t, users.SetActive(ctx, registered.User.UID, false))

	_, err = svc.Login(ctx, dto.LoginRequest{Email: "off@example.com", Password: "password123"})
	require.ErrorIs(t, err, ErrAccountDisabled)
}

func TestAuthServiceRefreshRotatesTokens(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, dto.RegisterRequest{Email: "ref@example.com", Password: "password123", Role: models.RoleTasker})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, dto.RefreshRequest{RefreshToken: registered.RefreshToken})
	require.NoError(t, err)
	require.NotEmpty(t, refreshed.AccessToken)
	require.Equal(t, registered.User.UID, refreshed.User.UID)

	_, err = svc.Refresh(ctx, dto.RefreshRequest{RefreshToken: "not-a-token"})
	require.ErrorIs(t, err, ErrInvalidRefresh)
}
