package models

import "time"

// Review represents a client's rating of a tasker after a completed task.
type Review struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TaskID       uint      `gorm:"index;not null" json:"task_id"`
	TaskerUID    string    `gorm:"size:64;index;not null" json:"tasker_uid"`
	ClientUID    string    `gorm:"size:64;not null" json:"client_uid"`
	ReviewerName string    `gorm:"size:255" json:"reviewer_name"`
	Rating       int       `gorm:"not null" json:"rating"`
	Comment      string    `gorm:"type:text" json:"comment"`
	CreatedAt    time.Time `json:"created_at"`
}
