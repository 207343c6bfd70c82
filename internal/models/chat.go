package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageRole is the closed set of speakers in a tutor conversation.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

func (r MessageRole) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ChatSession is one tutor conversation. The id is assigned server-side and
// never changes after creation.
type ChatSession struct {
	ID           uuid.UUID  `json:"id"`
	UserID       *uuid.UUID `json:"-"`
	Title        string     `json:"title"`
	MessageCount int        `json:"messageCount"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Source is a web citation attached to a search-grounded assistant reply.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Message is a single turn in a session. Messages are append-only and their
// display order is their insertion order.
type Message struct {
	Role          MessageRole `json:"role"`
	Content       string      `json:"content"`
	Timestamp     time.Time   `json:"timestamp"`
	WebSearchUsed bool        `json:"webSearchUsed,omitempty"`
	Sources       []Source    `json:"sources,omitempty"`
}

// ChatTurn is the compact {role, content} shape used for conversation history
// in tutor requests.
type ChatTurn struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

type TutorRequest struct {
	Message             string     `json:"message"`
	ConversationHistory []ChatTurn `json:"conversation_history"`
	UserID              *uuid.UUID `json:"user_id"`
	ChatID              *uuid.UUID `json:"chat_id"`
	ChatTitle           *string    `json:"chat_title,omitempty"`
}

type TutorResponse struct {
	Response    string     `json:"response"`
	ContextUsed bool       `json:"context_used"`
	Sources     []Source   `json:"sources,omitempty"`
	ChatID      *uuid.UUID `json:"chat_id,omitempty"`
}

type CreateChatRequest struct {
	UserID uuid.UUID `json:"user_id"`
	Title  string    `json:"title"`
}

type RenameChatRequest struct {
	ChatID uuid.UUID `json:"chat_id"`
	Title  string    `json:"title"`
}

type ChatListResponse struct {
	Status string        `json:"status"`
	Chats  []ChatSession `json:"chats"`
}

type ChatMessagesResponse struct {
	Status   string    `json:"status"`
	Messages []Message `json:"messages"`
}

type ChatCreateResponse struct {
	Status string    `json:"status"`
	ChatID uuid.UUID `json:"chat_id"`
	Title  string    `json:"title"`
}
