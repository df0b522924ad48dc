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
	"github.com/taskguru/taskguru-api/internal/repository"
)

// ErrUserNotFound indicates the requested user does not exist.
var ErrUserNotFound = errors.New("user not found")

// UserService exposes profile use cases.
type UserService interface {
	Get(ctx context.Context, uid string) (dto.UserResponse, error)
	UpdateProfile(ctx context.Context, uid string, payload dto.ProfileUpdateRequest) (dto.UserResponse, error)
	UpdateCard(ctx context.Context, uid string, payload dto.CardUpdateRequest) (dto.UserResponse, error)
	SetFCMToken(ctx context.Context, uid string, payload dto.FCMTokenRequest) error
}

type userService struct {
	users     repository.UserRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewUserService builds the profile service.
func NewUserService(users repository.UserRepository, validate *validator.Validate, logger zerolog.Logger) UserService {
	return &userService{
		users:     users,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "user_service").Logger(),
	}
}

func (s *userService) Get(ctx context.Context, uid string) (dto.UserResponse, error) {
	user, err := s.users.FindByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}

	return dto.NewUserResponse(user), nil
}

func (s *userService) UpdateProfile(ctx context.Context, uid string, payload dto.ProfileUpdateRequest) (dto.UserResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	updates := map[string]interface{}{}
	if payload.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*payload.FirstName)
	}
	if payload.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*payload.LastName)
	}
	if payload.DisplayName != nil {
		updates["display_name"] = strings.TrimSpace(*payload.DisplayName)
	}
	if payload.PhotoURL != nil {
		updates["photo_url"] = strings.TrimSpace(*payload.PhotoURL)
	}
	if payload.Bio != nil {
		updates["bio"] = strings.TrimSpace(s.sanitizer.Sanitize(*payload.Bio))
	}
	if payload.Address != nil {
		updates["address"] = strings.TrimSpace(*payload.Address)
	}
	if payload.Phone != nil {
		updates["phone"] = strings.TrimSpace(*payload.Phone)
	}

	user, err := s.users.Update(ctx, uid, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}

	// Keep the resolved display name denormalizable for chat members info.
	if user.DisplayName == "" {
		if resolved := ResolveDisplayName(user); resolved != UnknownUserName {
			user, err = s.users.Update(ctx, uid, map[string]interface{}{"display_name": resolved})
			if err != nil {
				return dto.UserResponse{}, err
			}
		}
	}

	return dto.NewUserResponse(user), nil
}

func (s *userService) UpdateCard(ctx context.Context, uid string, payload dto.CardUpdateRequest) (dto.UserResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	user, err := s.users.Update(ctx, uid, map[string]interface{}{
		"card_brand":     payload.Brand,
		"card_last4":     payload.Last4,
		"card_exp_month": payload.ExpMonth,
		"card_exp_year":  payload.ExpYear,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}

	return dto.NewUserResponse(user), nil
}

// SetFCMToken registers a device push token; an empty token unregisters it
// and disables push for the account.
func (s *userService) SetFCMToken(ctx context.Context, uid string, payload dto.FCMTokenRequest) error {
	if err := s.validator.Struct(payload); err != nil {
		return err
	}

	token := strings.TrimSpace(payload.Token)
	_, err := s.users.Update(ctx, uid, map[string]interface{}{
		"fcm_token":             token,
		"notifications_enabled": token != "",
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	return nil
}
