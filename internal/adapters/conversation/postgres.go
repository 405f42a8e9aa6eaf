// Package conversation provides the Postgres-backed conversation store.
// Clean Architecture: Adapter implementing ports.ConversationStore.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/edgarchat/edgarchat/internal/domain/entities"
)

// Querier is the subset of pgx operations the store needs.
// Defined by the consumer so tests can substitute a fake; *pgxpool.Pool
// satisfies it in production.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists conversations and their append-only message log.
// Safe for concurrent use; appends to different conversations never conflict
// and same-conversation ordering relies on the database's own guarantees.
type PostgresStore struct {
	db     Querier
	logger *slog.Logger
}

// NewPostgresStore creates a store backed by the given querier.
func NewPostgresStore(db Querier, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{db: db, logger: logger}
}

// CreateConversation creates a conversation owned by userID and returns the
// database-generated identifier.
func (s *PostgresStore) CreateConversation(ctx context.Context, userID uuid.UUID, title string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.db.QueryRow(ctx,
		`INSERT INTO ai_conversations (user_id, title) VALUES ($1, $2) RETURNING id`,
		userID, title,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("creating conversation: %w: %w", entities.ErrPersistence, err)
	}

	s.logger.Debug("created conversation", "id", id, "user_id", userID)
	return id, nil
}

// AppendMessage appends one message and bumps the conversation's
// last_message_at in a single statement.
func (s *PostgresStore) AppendMessage(ctx context.Context, conversationID, sender, content string) error {
	if sender != entities.SenderUser && sender != entities.SenderAI {
		return fmt.Errorf("invalid sender %q: %w", sender, entities.ErrInvalidInput)
	}

	id, err := uuid.Parse(conversationID)
	if err != nil {
		return fmt.Errorf("invalid conversation id %q: %w: %w", conversationID, entities.ErrPersistence, err)
	}

	tag, err := s.db.Exec(ctx,
		`WITH msg AS (
			INSERT INTO ai_messages (conversation_id, sender, content) VALUES ($1, $2, $3)
		)
		UPDATE ai_conversations SET last_message_at = now() WHERE id = $1`,
		id, sender, content,
	)
	if err != nil {
		return fmt.Errorf("appending message: %w: %w", entities.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("conversation %s does not exist: %w", conversationID, entities.ErrPersistence)
	}

	return nil
}

// ListConversations returns the caller's conversations ordered by most recent activity.
func (s *PostgresStore) ListConversations(ctx context.Context, userID uuid.UUID) ([]entities.Conversation, error) {
	rows, err := s.db.Query(ctx,
		`SELECT c.id, c.title, c.created_at, c.last_message_at,
			(SELECT count(*) FROM ai_messages m WHERE m.conversation_id = c.id)
		FROM ai_conversations c
		WHERE c.user_id = $1
		ORDER BY c.last_message_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w: %w", entities.ErrPersistence, err)
	}
	defer rows.Close()

	var conversations []entities.Conversation
	for rows.Next() {
		var c entities.Conversation
		if err := rows.Scan(&c.ID, &c.Title, &c.CreatedAt, &c.LastMessageAt, &c.MessageCount); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w: %w", entities.ErrPersistence, err)
		}
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing conversations: %w: %w", entities.ErrPersistence, err)
	}

	return conversations, nil
}

// Messages returns a conversation's messages in creation order.
// The conversation must be owned by userID.
func (s *PostgresStore) Messages(ctx context.Context, userID, conversationID uuid.UUID) ([]entities.Message, error) {
	if err := s.checkOwnership(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, conversation_id, sender, content, created_at
		FROM ai_messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading messages: %w: %w", entities.ErrPersistence, err)
	}
	defer rows.Close()

	var messages []entities.Message
	for rows.Next() {
		var m entities.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Sender, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w: %w", entities.ErrPersistence, err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading messages: %w: %w", entities.ErrPersistence, err)
	}

	return messages, nil
}

// RenameConversation updates a conversation's title, scoped to the owner.
func (s *PostgresStore) RenameConversation(ctx context.Context, userID, conversationID uuid.UUID, title string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE ai_conversations SET title = $1 WHERE id = $2 AND user_id = $3`,
		title, conversationID, userID,
	)
	if err != nil {
		return fmt.Errorf("renaming conversation: %w: %w", entities.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("conversation %s: %w", conversationID, entities.ErrNotFound)
	}
	return nil
}

// checkOwnership verifies the conversation exists and belongs to userID.
func (s *PostgresStore) checkOwnership(ctx context.Context, userID, conversationID uuid.UUID) error {
	var one int
	err := s.db.QueryRow(ctx,
		`SELECT 1 FROM ai_conversations WHERE id = $1 AND user_id = $2`,
		conversationID, userID,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("conversation %s: %w", conversationID, entities.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("checking conversation ownership: %w: %w", entities.ErrPersistence, err)
	}
	return nil
}
