package service

import (
	"strings"

	"github.com/taskguru/taskguru-api/internal/models"
)

// UnknownUserName is shown when no profile field can identify the user.
const UnknownUserName = "Unknown User"

// ResolveDisplayName picks the best available human-readable name:
// first name (plus last, when set), then display name, then email, then a
// placeholder. A last name alone is not a usable name, so it falls through
// to the display name tier.
func ResolveDisplayName(user models.User) string {
	first := strings.TrimSpace(user.FirstName)
	last := strings.TrimSpace(user.LastName)
	if first != "" {
		return strings.TrimSpace(first + " " + last)
	}

	if name := strings.TrimSpace(user.DisplayName); name != "" {
		return name
	}

	if email := strings.TrimSpace(user.Email); email != "" {
		return email
	}

	return UnknownUserName
}
