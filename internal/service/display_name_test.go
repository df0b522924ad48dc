package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taskguru/taskguru-api/internal/models"
)

func TestResolveDisplayNameFallbackTiers(t *testing.T) {
	cases := []struct {
		name string
		user models.User
		want string
	}{
		{"first and last", models.User{FirstName: "Jane", LastName: "Doe", DisplayName: "jd", Email: "jane@example.com"}, "Jane Doe"},
		{"first only", models.User{FirstName: "Jane", Email: "jane@example.com"}, "Jane"},
		{"last name alone defers to display name", models.User{LastName: "Doe", DisplayName: "jd"}, "jd"},
		{"last name alone defers to email", models.User{LastName: "Doe", Email: "doe@example.com"}, "doe@example.com"},
		{"display name", models.User{DisplayName: "Handy Nick", Email: "nick@example.com"}, "Handy Nick"},
		{"email", models.User{Email: "nick@example.com"}, "nick@example.com"},
		{"whitespace collapses to placeholder", models.User{FirstName: "  ", DisplayName: " ", Email: "\t"}, UnknownUserName},
		{"empty profile", models.User{}, UnknownUserName},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ResolveDisplayName(tc.user))
		})
	}
}
