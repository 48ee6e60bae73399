package dto

import (
	"time"

	"github.com/google/uuid"
)

// --- Sessions ---

type CreateSessionRequest struct {
	Title string `json:"title" validate:"omitempty,max=200"`
}

type SessionDTO struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type ListSessionsRequest struct {
	Limit  int    `query:"limit"`
	Cursor string `query:"cursor"`
}

type ListSessionsResponse struct {
	Sessions   []SessionDTO `json:"sessions"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

type RenameSessionRequest struct {
	Id    uuid.UUID `json:"-"`
	Title string    `json:"title" validate:"required,max=200"`
}

type DeleteSessionResponse struct {
	Ok bool `json:"ok"`
}

// --- Messages ---

type MessageDTO struct {
	Id            uuid.UUID `json:"id"`
	ChatSessionId uuid.UUID `json:"chat_session_id"`
	SenderId      uuid.UUID `json:"sender_id"`
	Role          string    `json:"role"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
}

type ListMessagesRequest struct {
	ChatSessionId uuid.UUID `query:"session_id" validate:"required"`
	Limit         int       `query:"limit"`
	Cursor        string    `query:"cursor"`
}

type ListMessagesResponse struct {
	Messages   []MessageDTO `json:"messages"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

type SendMessageRequest struct {
	ChatSessionId uuid.UUID `json:"session_id" validate:"required"`
	Content       string    `json:"content" validate:"required"`
}

type AssistantReplyDTO struct {
	Id      uuid.UUID `json:"id"`
	Content string    `json:"content"`
}

// SendMessageResponse pairs the persisted user message id with the
// assistant's reply.
type SendMessageResponse struct {
	UserId    uuid.UUID         `json:"user_id"`
	Assistant AssistantReplyDTO `json:"assistant"`
}

// StreamEvent is one SSE frame of a streamed exchange.
// Type is "delta" while tokens arrive, then a single "done" carrying
// the persisted assistant message id, or "error" on failure.
type StreamEvent struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Id      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}
