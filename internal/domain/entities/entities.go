// Package entities contains core business entities.
// These are the enterprise business rules - pure domain objects with no external dependencies.
package entities

import (
	"time"

	"github.com/google/uuid"
)

// Query is a caller-supplied question, immutable for the lifetime of a request.
// ConversationID is optional; when empty a new conversation is created.
type Query struct {
	Prompt         string
	ConversationID string
}

// RetrievedMatch is one ranked result from the vector index.
// Only metadata is carried - the raw embedding is never echoed back.
type RetrievedMatch struct {
	Text      string
	SourceURL string
	Score     float64
}

// Message senders. A conversation turn is one user message followed by one AI message.
const (
	SenderUser = "user"
	SenderAI   = "ai"
)

// Conversation is a durable, caller-owned chat thread.
type Conversation struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	CreatedAt     time.Time `json:"created_at"`
	LastMessageAt time.Time `json:"last_message_at"`
	MessageCount  int       `json:"message_count"`
}

// Message is one turn in a conversation's append-only log.
type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"-"`
	Sender         string    `json:"sender"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// QueryResponse is the payload returned to the caller for a successful query.
// Sources is omitted entirely (not an empty list) when no sources were found.
type QueryResponse struct {
	Response       string   `json:"response"`
	Sources        []string `json:"sources,omitempty"`
	ConversationID string   `json:"conversationId"`
}
