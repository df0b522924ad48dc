package dto

import (
	"time"

	"github.com/taskguru/taskguru-api/internal/models"
)

// NotificationResponse is the serialized representation of a notification.
type NotificationResponse struct {
	ID        uint                   `json:"id"`
	Type      string                 `json:"type"`
	Title     string                 `json:"title,omitempty"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Read      bool                   `json:"read"`
	CreatedAt time.Time              `json:"created_at"`
}

// NewNotificationResponse converts a model into a DTO.
func NewNotificationResponse(notification models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        notification.ID,
		Type:      notification.Type,
		Title:     notification.Title,
		Message:   notification.Message,
		Data:      notification.Data,
		Read:      notification.Read,
		CreatedAt: notification.CreatedAt,
	}
}

// NewNotificationResponseSlice converts a slice of models into DTOs.
func NewNotificationResponseSlice(notifications []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(notifications))
	for _, notification := range notifications {
		out = append(out, NewNotificationResponse(notification))
	}
	return out
}

// FeedItem is one row of the merged notification preview.
type FeedItem struct {
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Detail    string    `json:"detail,omitempty"`
	ChatID    uint      `json:"chat_id,omitempty"`
	TaskID    uint      `json:"task_id,omitempty"`
	Unread    int64     `json:"unread,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedResponse is the capped preview plus the full total for "view all".
type FeedResponse struct {
	Items []FeedItem `json:"items"`
	Total int        `json:"total"`
}
