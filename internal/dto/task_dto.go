package dto

import (
	"time"

	"github.com/taskguru/taskguru-api/internal/models"
)

// TaskCreateRequest represents the payload to post a new task.
type TaskCreateRequest struct {
	Title       string     `json:"title" validate:"required,min=3,max=255"`
	Description string     `json:"description" validate:"required,min=10,max=5000"`
	Category    string     `json:"category" validate:"required,max=64"`
	Budget      float64    `json:"budget" validate:"required,gt=0"`
	Location    string     `json:"location" validate:"omitempty,max=255"`
	Deadline    *time.Time `json:"deadline"`
}

// TaskUpdateRequest updates an open task. Omitted fields stay unchanged.
type TaskUpdateRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=3,max=255"`
	Description *string    `json:"description" validate:"omitempty,min=10,max=5000"`
	Category    *string    `json:"category" validate:"omitempty,max=64"`
	Budget      *float64   `json:"budget" validate:"omitempty,gt=0"`
	Location    *string    `json:"location" validate:"omitempty,max=255"`
	Deadline    *time.Time `json:"deadline"`
}

// TaskBrowseQuery represents query filters for browsing tasks.
type TaskBrowseQuery struct {
	Status   string   `query:"status" validate:"omitempty,oneof=open assigned in_progress completed cancelled"`
	Category string   `query:"category" validate:"omitempty,max=64"`
	Search   string   `query:"search" validate:"omitempty,max=255"`
	MinPrice *float64 `query:"min_price" validate:"omitempty,gte=0"`
	MaxPrice *float64 `query:"max_price" validate:"omitempty,gte=0"`
	Page     int      `query:"page" validate:"omitempty,min=1"`
	PageSize int      `query:"page_size" validate:"omitempty,min=1,max=100"`
}

// TaskResponse is the serialized representation of a task.
type TaskResponse struct {
	ID          uint       `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Budget      float64    `json:"budget"`
	Location    string     `json:"location,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Status      string     `json:"status"`
	ClientUID   string     `json:"client_uid"`
	ClientName  string     `json:"client_name,omitempty"`
	TaskerUID   string     `json:"tasker_uid,omitempty"`
	TaskerName  string     `json:"tasker_name,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewTaskResponse converts a model into a DTO.
func NewTaskResponse(task models.Task) TaskResponse {
	return TaskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Category:    task.Category,
		Budget:      task.Budget,
		Location:    task.Location,
		Deadline:    task.Deadline,
		Status:      task.Status,
		ClientUID:   task.ClientUID,
		ClientName:  task.ClientName,
		TaskerUID:   task.TaskerUID,
		TaskerName:  task.TaskerName,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

// NewTaskResponseSlice converts a slice of models into DTOs.
func NewTaskResponseSlice(tasks []models.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, NewTaskResponse(task))
	}
	return out
}
