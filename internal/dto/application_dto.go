package dto

import (
	"time"

	"github.com/taskguru/taskguru-api/internal/models"
)

// ApplicationCreateRequest represents a tasker applying for a task.
type ApplicationCreateRequest struct {
	Message   string  `json:"message" validate:"omitempty,max=2000"`
	BidAmount float64 `json:"bid_amount" validate:"omitempty,gt=0"`
}

// ApplicationResponse is the serialized representation of an application.
type ApplicationResponse struct {
	ID         uint      `json:"id"`
	TaskID     uint      `json:"task_id"`
	TaskTitle  string    `json:"task_title,omitempty"`
	TaskerUID  string    `json:"tasker_uid"`
	TaskerName string    `json:"tasker_name,omitempty"`
	Message    string    `json:"message,omitempty"`
	BidAmount  float64   `json:"bid_amount,omitempty"`
	Status     string    `json:"status"`
	Seen       bool      `json:"seen"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewApplicationResponse converts a model into a DTO.
func NewApplicationResponse(application models.Application) ApplicationResponse {
	return ApplicationResponse{
		ID:         application.ID,
		TaskID:     application.TaskID,
		TaskTitle:  application.TaskTitle,
		TaskerUID:  application.TaskerUID,
		TaskerName: application.TaskerName,
		Message:    application.Message,
		BidAmount:  application.BidAmount,
		Status:     application.Status,
		Seen:       application.Seen,
		CreatedAt:  application.CreatedAt,
	}
}

// NewApplicationResponseSlice converts a slice of models into DTOs.
func NewApplicationResponseSlice(applications []models.Application) []ApplicationResponse {
	out := make([]ApplicationResponse, 0, len(applications))
	for _, application := range applications {
		out = append(out, NewApplicationResponse(application))
	}
	return out
}
