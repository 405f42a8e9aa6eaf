// Package ports defines interfaces for external dependencies.
// Clean Architecture: These are the boundaries - usecases depend on these abstractions,
// not concrete implementations. Adapters implement these interfaces.
package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/edgarchat/edgarchat/internal/domain/entities"
)

// EmbeddingService turns free text into a fixed-length vector.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorSearcher runs nearest-neighbor queries against a pre-populated index.
// Implementations request match metadata only; the query vector is never
// echoed back to callers. An empty result set is a valid, successful outcome.
type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, topK int) ([]entities.RetrievedMatch, error)
}

// CompletionService generates an answer from a language model conditioned on
// grounding context. Implementations return a deterministic fallback string
// when the upstream call succeeds but carries no usable content.
type CompletionService interface {
	Complete(ctx context.Context, groundingContext, prompt string) (string, error)
}

// ConversationStore persists conversations and their append-only message log.
type ConversationStore interface {
	// CreateConversation creates a conversation owned by userID and returns its id.
	CreateConversation(ctx context.Context, userID uuid.UUID, title string) (uuid.UUID, error)

	// AppendMessage appends one message to a conversation's log.
	AppendMessage(ctx context.Context, conversationID, sender, content string) error

	// ListConversations returns the caller's conversations, most recent first.
	ListConversations(ctx context.Context, userID uuid.UUID) ([]entities.Conversation, error)

	// Messages returns a conversation's messages in creation order.
	// Returns entities.ErrNotFound if the conversation is not owned by userID.
	Messages(ctx context.Context, userID, conversationID uuid.UUID) ([]entities.Message, error)

	// RenameConversation updates a conversation's title.
	RenameConversation(ctx context.Context, userID, conversationID uuid.UUID, title string) error
}

// IdentityVerifier resolves a bearer token to a caller identity.
// Verification failures map to entities.ErrUnauthorized.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (uuid.UUID, error)
}
