package dto

import (
	"time"

	"github.com/taskguru/taskguru-api/internal/models"
)

// UploadResponse is returned after a successful image upload.
type UploadResponse struct {
	URL       string    `json:"url"`
	PublicID  string    `json:"public_id"`
	Format    string    `json:"format,omitempty"`
	Bytes     int64     `json:"bytes"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUploadResponse converts a model into a DTO.
func NewUploadResponse(record models.Upload) UploadResponse {
	return UploadResponse{
		URL:       record.URL,
		PublicID:  record.PublicID,
		Format:    record.Format,
		Bytes:     record.Bytes,
		Kind:      record.Kind,
		CreatedAt: record.CreatedAt,
	}
}
