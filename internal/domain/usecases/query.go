// Package usecases - query.go orchestrates the RAG query pipeline.
package usecases

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/edgarchat/edgarchat/internal/domain/entities"
	"github.com/edgarchat/edgarchat/internal/domain/ports"
)

// DefaultTitle is the placeholder title for conversations created lazily on
// first query.
const DefaultTitle = "untitled conversation"

// QueryUseCase sequences embed -> retrieve -> assemble -> complete -> persist
// and owns the end-to-end request lifecycle.
//
// Failure policy: embedding, retrieval, completion and conversation creation
// abort the request with a typed error. Message appends are best-effort - the
// answer already computed is returned to the caller even if history logging
// degrades, with the failure logged.
type QueryUseCase struct {
	embedder      ports.EmbeddingService
	retriever     ports.VectorSearcher
	completer     ports.CompletionService
	conversations ports.ConversationStore
	logger        *slog.Logger
	topK          int
}

// NewQueryUseCase creates a QueryUseCase with injected dependencies.
func NewQueryUseCase(
	embedder ports.EmbeddingService,
	retriever ports.VectorSearcher,
	completer ports.CompletionService,
	conversations ports.ConversationStore,
	logger *slog.Logger,
	topK int,
) *QueryUseCase {
	if topK <= 0 {
		topK = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryUseCase{
		embedder:      embedder,
		retriever:     retriever,
		completer:     completer,
		conversations: conversations,
		logger:        logger,
		topK:          topK,
	}
}

// Query answers a prompt with retrieved grounding and records the turn.
func (uc *QueryUseCase) Query(ctx context.Context, userID uuid.UUID, q *entities.Query) (*entities.QueryResponse, error) {
	if q == nil || q.Prompt == "" {
		return nil, fmt.Errorf("prompt is required: %w", entities.ErrInvalidInput)
	}

	// 1. Embed the prompt. The vector lives only for this request.
	vector, err := uc.embedder.Embed(ctx, q.Prompt)
	if err != nil {
		return nil, fmt.Errorf("embedding prompt: %w", err)
	}

	// 2. Nearest-neighbor search. An empty result set is fine.
	matches, err := uc.retriever.Search(ctx, vector, uc.topK)
	if err != nil {
		return nil, fmt.Errorf("searching vector index: %w", err)
	}

	// 3. Assemble grounding context and deduplicated sources.
	grounding, sources := AssembleContext(matches)

	// 4. Generate the answer conditioned on the grounding.
	answer, err := uc.completer.Complete(ctx, grounding, q.Prompt)
	if err != nil {
		return nil, fmt.Errorf("generating response: %w", err)
	}

	// 5. Resolve the conversation, then record the turn best-effort.
	conversationID, err := uc.ensureConversation(ctx, userID, q.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("resolving conversation: %w", err)
	}

	if err := uc.conversations.AppendMessage(ctx, conversationID, entities.SenderUser, q.Prompt); err != nil {
		uc.logger.Error("failed to persist user message", "conversation_id", conversationID, "error", err)
	}
	if err := uc.conversations.AppendMessage(ctx, conversationID, entities.SenderAI, answer); err != nil {
		uc.logger.Error("failed to persist AI message", "conversation_id", conversationID, "error", err)
	}

	return &entities.QueryResponse{
		Response:       answer,
		Sources:        sources,
		ConversationID: conversationID,
	}, nil
}

// ensureConversation returns the supplied id verbatim when present - ownership
// and existence are the store's concern - and otherwise creates a new
// conversation with the placeholder title.
func (uc *QueryUseCase) ensureConversation(ctx context.Context, userID uuid.UUID, existingID string) (string, error) {
	if existingID != "" {
		return existingID, nil
	}
	id, err := uc.conversations.CreateConversation(ctx, userID, DefaultTitle)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
