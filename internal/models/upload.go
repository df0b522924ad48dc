package models

import "time"

// Upload kinds accepted by the upload endpoint.
const (
	UploadKindProfile = "profile"
	UploadKindChat    = "chat"
)

// Upload records an image stored in Cloudinary.
type Upload struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserUID   string    `gorm:"size:64;index;not null" json:"user_uid"`
	Kind      string    `gorm:"size:32;not null" json:"kind"`
	PublicID  string    `gorm:"size:255" json:"public_id"`
	URL       string    `gorm:"size:512" json:"url"`
	Format    string    `gorm:"size:32" json:"format"`
	Bytes     int64     `json:"bytes"`
	CreatedAt time.Time `json:"created_at"`
}
