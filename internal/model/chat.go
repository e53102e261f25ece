package model

import (
	"time"

	"github.com/google/uuid"
)

// Chat roles stored in chat_messages
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatSession groups the mentor conversation of one user
type ChatSession struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatMessage is one turn of a mentor conversation
type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
