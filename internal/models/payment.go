package models

import "time"

// PaymentIntentRecord captures a Stripe payment intent created through the
// API. Amount is stored in minor units, matching what Stripe receives.
type PaymentIntentRecord struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	TaskID           uint      `gorm:"index;not null" json:"task_id"`
	UserUID          string    `gorm:"size:64;index;not null" json:"user_uid"`
	Amount           int64     `gorm:"not null" json:"amount"`
	Currency         string    `gorm:"size:8;not null" json:"currency"`
	ProviderIntentID string    `gorm:"size:255;index" json:"provider_intent_id"`
	Status           string    `gorm:"size:64" json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}
