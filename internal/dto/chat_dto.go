package dto

import (
	"time"

	"github.com/taskguru/taskguru-api/internal/models"
)

// ChatStartRequest opens (or returns) the conversation with another user.
type ChatStartRequest struct {
	MemberUID string `json:"member_uid" validate:"required,max=64"`
}

// MessageSendRequest represents the payload to send a chat message.
type MessageSendRequest struct {
	Text     string `json:"text" validate:"omitempty,max=4000"`
	ImageURL string `json:"image_url" validate:"omitempty,url,max=512"`
}

// ChatHistoryQuery represents query filters for retrieving chat history.
type ChatHistoryQuery struct {
	Before *time.Time `query:"before"`
	Limit  int        `query:"limit" validate:"omitempty,min=1,max=100"`
}

// ConversationResponse is one row of the caller's conversation list.
type ConversationResponse struct {
	ChatID          uint       `json:"chat_id"`
	CounterpartUID  string     `json:"counterpart_uid"`
	CounterpartName string     `json:"counterpart_name"`
	LastMessage     string     `json:"last_message"`
	LastMessageAt   *time.Time `json:"last_message_at"`
	UnreadCount     int64      `json:"unread_count"`
}

// ChatResponse is the serialized representation of a chat.
type ChatResponse struct {
	ID            uint       `json:"id"`
	MemberA       string     `json:"member_a"`
	MemberB       string     `json:"member_b"`
	LastMessage   string     `json:"last_message,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// NewChatResponse converts a model into a DTO.
func NewChatResponse(chat models.Chat) ChatResponse {
	return ChatResponse{
		ID:            chat.ID,
		MemberA:       chat.MemberA,
		MemberB:       chat.MemberB,
		LastMessage:   chat.LastMessageText,
		LastMessageAt: chat.LastMessageAt,
		CreatedAt:     chat.CreatedAt,
	}
}

// MessageResponse is the serialized representation of a chat message.
type MessageResponse struct {
	ID        uint      `json:"id"`
	ChatID    uint      `json:"chat_id"`
	SenderUID string    `json:"sender_uid"`
	Text      string    `json:"text,omitempty"`
	ImageURL  string    `json:"image_url,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMessageResponse converts a model into a DTO.
func NewMessageResponse(message models.Message) MessageResponse {
	return MessageResponse{
		ID:        message.ID,
		ChatID:    message.ChatID,
		SenderUID: message.SenderUID,
		Text:      message.Text,
		ImageURL:  message.ImageURL,
		Read:      message.Read,
		CreatedAt: message.CreatedAt,
	}
}

// NewMessageResponseSlice converts a slice of models into DTOs.
func NewMessageResponseSlice(messages []models.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for _, message := range messages {
		out = append(out, NewMessageResponse(message))
	}
	return out
}
