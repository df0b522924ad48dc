package models

import "time"

// User roles recognised by the API.
const (
	RoleClient = "client"
	RoleTasker = "tasker"
	RoleAdmin  = "admin"
)

// User represents a registered account, either a client posting tasks or a
// tasker offering services.
type User struct {
	ID                   uint      `gorm:"primaryKey" json:"-"`
	UID                  string    `gorm:"size:64;uniqueIndex;not null" json:"uid"`
	Role                 string    `gorm:"size:32;not null;default:client" json:"role"`
	Email                string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash         string    `gorm:"size:255;not null" json:"-"`
	FirstName            string    `gorm:"size:128" json:"first_name"`
	LastName             string    `gorm:"size:128" json:"last_name"`
	DisplayName          string    `gorm:"size:255" json:"display_name"`
	PhotoURL             string    `gorm:"size:512" json:"photo_url"`
	Bio                  string    `gorm:"type:text" json:"bio"`
	Address              string    `gorm:"size:255" json:"address"`
	Phone                string    `gorm:"size:64" json:"phone"`
	FCMToken             string    `gorm:"size:512" json:"-"`
	NotificationsEnabled bool      `gorm:"not null;default:false" json:"notifications_enabled"`
	IsActive             bool      `gorm:"not null;default:true" json:"is_active"`
	IsDeleted            bool      `gorm:"not null;default:false" json:"-"`
	CardBrand            string    `gorm:"size:32" json:"card_brand"`
	CardLast4            string    `gorm:"size:8" json:"card_last4"`
	CardExpMonth         int       `json:"card_exp_month"`
	CardExpYear          int       `json:"card_exp_year"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}
