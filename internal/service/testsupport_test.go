package service

import (
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/taskguru/taskguru-api/internal/models"
)

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Task{},
		&models.Application{},
		&models.Chat{},
		&models.Message{},
		&models.Review{},
		&models.Notification{},
		&models.PaymentIntentRecord{},
		&models.ActivityLog{},
		&models.Upload{},
	))

	return db
}

func testValidator() *validator.Validate {
	return validator.New()
}

func seedUser(t *testing.T, db *gorm.DB, uid, role, email, firstName, lastName string) models.User {
	t.Helper()

	user := models.User{
		UID:                  uid,
		Role:                 role,
		Email:                email,
		PasswordHash:         "x",
		FirstName:            firstName,
		LastName:             lastName,
		NotificationsEnabled: true,
		IsActive:             true,
	}
	if firstName != "" || lastName != "" {
		user.DisplayName = ResolveDisplayName(user)
	}
	require.NoError(t, db.Create(&user).Error)

	return user
}
