package models

import "time"

// Task statuses follow a single forward flow; completed and cancelled are
// terminal.
const (
	TaskStatusOpen       = "open"
	TaskStatusAssigned   = "assigned"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
	TaskStatusCancelled  = "cancelled"
)

// Task represents a job posted by a client. Client and tasker contact fields
// are denormalized so listings render without joins.
type Task struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Category    string     `gorm:"size:64;index" json:"category"`
	Budget      float64    `gorm:"not null" json:"budget"`
	Location    string     `gorm:"size:255" json:"location"`
	Deadline    *time.Time `json:"deadline"`
	Status      string     `gorm:"size:32;not null;default:open;index" json:"status"`
	ClientUID   string     `gorm:"size:64;index;not null" json:"client_uid"`
	ClientName  string     `gorm:"size:255" json:"client_name"`
	ClientEmail string     `gorm:"size:255" json:"client_email"`
	TaskerUID   string     `gorm:"size:64;index" json:"tasker_uid,omitempty"`
	TaskerName  string     `gorm:"size:255" json:"tasker_name,omitempty"`
	TaskerEmail string     `gorm:"size:255" json:"tasker_email,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsTerminal reports whether the task can no longer change state.
func (t Task) IsTerminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusCancelled
}
