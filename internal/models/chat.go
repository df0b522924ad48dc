package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Chat represents a two-party conversation. MemberA always sorts before
// MemberB so a pair of users maps to exactly one ChatKey.
type Chat struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	ChatKey           string            `gorm:"size:160;uniqueIndex;not null" json:"chat_key"`
	MemberA           string            `gorm:"size:64;index;not null" json:"member_a"`
	MemberB           string            `gorm:"size:64;index;not null" json:"member_b"`
	MembersInfo       datatypes.JSONMap `gorm:"type:json" json:"members_info"`
	LastMessageText   string            `gorm:"size:512" json:"last_message_text"`
	LastMessageSender string            `gorm:"size:64" json:"last_message_sender"`
	LastMessageAt     *time.Time        `json:"last_message_at"`
	UnreadA           int64             `gorm:"not null;default:0" json:"unread_a"`
	UnreadB           int64             `gorm:"not null;default:0" json:"unread_b"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// ChatKeyFor derives the canonical key for a pair of member uids.
func ChatKeyFor(a, b string) string {
	first, second := SortMembers(a, b)
	return fmt.Sprintf("%s_%s", first, second)
}

// SortMembers orders two member uids lexicographically.
func SortMembers(a, b string) (string, string) {
	if strings.Compare(a, b) <= 0 {
		return a, b
	}
	return b, a
}

// HasMember reports whether uid participates in the chat.
func (c Chat) HasMember(uid string) bool {
	return c.MemberA == uid || c.MemberB == uid
}

// OtherMember returns the counterpart uid for the given member.
func (c Chat) OtherMember(uid string) string {
	if c.MemberA == uid {
		return c.MemberB
	}
	return c.MemberA
}

// UnreadFor returns the denormalized unread counter for the given member.
func (c Chat) UnreadFor(uid string) int64 {
	if c.MemberA == uid {
		return c.UnreadA
	}
	return c.UnreadB
}

// Message represents a single chat message. Either Text or ImageURL is set.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ChatID    uint      `gorm:"index;not null" json:"chat_id"`
	SenderUID string    `gorm:"size:64;index;not null" json:"sender_uid"`
	Text      string    `gorm:"type:text" json:"text"`
	ImageURL  string    `gorm:"size:512" json:"image_url,omitempty"`
	Read      bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
