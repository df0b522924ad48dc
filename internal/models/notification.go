package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification types produced by the domain services.
const (
	NotificationTypeApplication  = "application"
	NotificationTypeAcceptance   = "acceptance"
	NotificationTypeMessage      = "message"
	NotificationTypeTaskUpdate   = "task_update"
	NotificationTypeAdminAction  = "admin_action"
	NotificationTypePaymentSetup = "payment"
)

// Notification represents a persistent notification targeted at a user.
type Notification struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	UserUID   string            `gorm:"size:64;index;not null" json:"user_uid"`
	Type      string            `gorm:"size:64" json:"type"`
	Title     string            `gorm:"size:255" json:"title"`
	Message   string            `gorm:"type:text" json:"message"`
	Data      datatypes.JSONMap `gorm:"type:json" json:"data"`
	Read      bool              `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
