package models

import "time"

// Application statuses.
const (
	ApplicationStatusPending  = "pending"
	ApplicationStatusAccepted = "accepted"
	ApplicationStatusRejected = "rejected"
)

// Application represents a tasker applying for an open task. Tasker and task
// fields are denormalized; the aggregators backfill them when missing.
type Application struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TaskID      uint      `gorm:"index;not null" json:"task_id"`
	TaskTitle   string    `gorm:"size:255" json:"task_title"`
	TaskerUID   string    `gorm:"size:64;index;not null" json:"tasker_uid"`
	TaskerName  string    `gorm:"size:255" json:"tasker_name"`
	TaskerEmail string    `gorm:"size:255" json:"tasker_email"`
	Message     string    `gorm:"type:text" json:"message"`
	BidAmount   float64   `json:"bid_amount"`
	Status      string    `gorm:"size:32;not null;default:pending;index" json:"status"`
	Seen        bool      `gorm:"not null;default:false" json:"seen"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
