package dto

import (
	"time"

	"github.com/taskguru/taskguru-api/internal/models"
)

// RegisterRequest represents the payload to create a new account.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	Role      string `json:"role" validate:"required,oneof=client tasker"`
	FirstName string `json:"first_name" validate:"omitempty,max=128"`
	LastName  string `json:"last_name" validate:"omitempty,max=128"`
}

// LoginRequest represents the payload to authenticate.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse carries the issued tokens and the authenticated profile.
type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         UserResponse `json:"user"`
}

// RefreshRequest represents the payload to rotate an access token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// UserResponse is the public representation of an account.
type UserResponse struct {
	UID                  string    `json:"uid"`
	Role                 string    `json:"role"`
	Email                string    `json:"email"`
	FirstName            string    `json:"first_name,omitempty"`
	LastName             string    `json:"last_name,omitempty"`
	DisplayName          string    `json:"display_name,omitempty"`
	PhotoURL             string    `json:"photo_url,omitempty"`
	Bio                  string    `json:"bio,omitempty"`
	Address              string    `json:"address,omitempty"`
	Phone                string    `json:"phone,omitempty"`
	NotificationsEnabled bool      `json:"notifications_enabled"`
	IsActive             bool      `json:"is_active"`
	CardBrand            string    `json:"card_brand,omitempty"`
	CardLast4            string    `json:"card_last4,omitempty"`
	CardExpMonth         int       `json:"card_exp_month,omitempty"`
	CardExpYear          int       `json:"card_exp_year,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
}

// NewUserResponse converts a model into a DTO.
func NewUserResponse(user models.User) UserResponse {
	return UserResponse{
		UID:                  user.UID,
		Role:                 user.Role,
		Email:                user.Email,
		FirstName:            user.FirstName,
		LastName:             user.LastName,
		DisplayName:          user.DisplayName,
		PhotoURL:             user.PhotoURL,
		Bio:                  user.Bio,
		Address:              user.Address,
		Phone:                user.Phone,
		NotificationsEnabled: user.NotificationsEnabled,
		IsActive:             user.IsActive,
		CardBrand:            user.CardBrand,
		CardLast4:            user.CardLast4,
		CardExpMonth:         user.CardExpMonth,
		CardExpYear:          user.CardExpYear,
		CreatedAt:            user.CreatedAt,
	}
}

// NewUserResponseSlice converts a slice of models into DTOs.
func NewUserResponseSlice(users []models.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, user := range users {
		out = append(out, NewUserResponse(user))
	}
	return out
}
