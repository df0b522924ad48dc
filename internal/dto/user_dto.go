package dto

// ProfileUpdateRequest is the payload to update profile fields. Omitted
// fields stay unchanged.
type ProfileUpdateRequest struct {
	FirstName   *string `json:"first_name" validate:"omitempty,max=128"`
	LastName    *string `json:"last_name" validate:"omitempty,max=128"`
	DisplayName *string `json:"display_name" validate:"omitempty,max=255"`
	PhotoURL    *string `json:"photo_url" validate:"omitempty,url,max=512"`
	Bio         *string `json:"bio" validate:"omitempty,max=2000"`
	Address     *string `json:"address" validate:"omitempty,max=255"`
	Phone       *string `json:"phone" validate:"omitempty,max=64"`
}

// CardUpdateRequest stores a display-only card summary. Full card numbers
// never reach this API.
type CardUpdateRequest struct {
	Brand    string `json:"brand" validate:"required,max=32"`
	Last4    string `json:"last4" validate:"required,len=4,numeric"`
	ExpMonth int    `json:"exp_month" validate:"required,min=1,max=12"`
	ExpYear  int    `json:"exp_year" validate:"required,min=2024,max=2100"`
}

// FCMTokenRequest registers or clears a device push token.
type FCMTokenRequest struct {
	Token string `json:"token" validate:"omitempty,max=512"`
}
