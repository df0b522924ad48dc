package dto

import (
	"time"

	"github.com/taskguru/taskguru-api/internal/models"
)

// ReviewCreateRequest represents a client reviewing a completed task.
type ReviewCreateRequest struct {
	TaskID  uint   `json:"task_id" validate:"required"`
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"omitempty,max=2000"`
}

// ReviewResponse is the serialized representation of a review.
type ReviewResponse struct {
	ID           uint      `json:"id"`
	TaskID       uint      `json:"task_id"`
	TaskerUID    string    `json:"tasker_uid"`
	ReviewerName string    `json:"reviewer_name,omitempty"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewReviewResponse converts a model into a DTO.
func NewReviewResponse(review models.Review) ReviewResponse {
	return ReviewResponse{
		ID:           review.ID,
		TaskID:       review.TaskID,
		TaskerUID:    review.TaskerUID,
		ReviewerName: review.ReviewerName,
		Rating:       review.Rating,
		Comment:      review.Comment,
		CreatedAt:    review.CreatedAt,
	}
}

// ReviewListResponse carries a tasker's reviews with their aggregate rating.
type ReviewListResponse struct {
	Reviews       []ReviewResponse `json:"reviews"`
	AverageRating float64          `json:"average_rating"`
	Total         int64            `json:"total"`
}

// NewReviewResponseSlice converts a slice of models into DTOs.
func NewReviewResponseSlice(reviews []models.Review) []ReviewResponse {
	out := make([]ReviewResponse, 0, len(reviews))
	for _, review := range reviews {
		out = append(out, NewReviewResponse(review))
	}
	return out
}
