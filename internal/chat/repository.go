package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"bazaar/infrastructure"
)

type Repository interface {
	// Conversation operations
	GetConversation(ctx context.Context, conversationID string) (*Conversation, error)
	GetOrCreateDirectConversation(ctx context.Context, userA, userB string) (*Conversation, error)
	CreateConversation(ctx context.Context, participants []string, orderID *string) (*Conversation, error)
	GetUserConversations(ctx context.Context, userID string) ([]*Conversation, error)

	// Thread operations
	GetOrCreateThread(ctx context.Context, conversationID string, kind ThreadKind, orderID *string) (*Thread, error)

	// Message operations
	CreateMessage(ctx context.Context, message *Message) error
	GetConversationMessages(ctx context.Context, conversationID string, limit, offset int) ([]*Message, error)
	MarkMessagesRead(ctx context.Context, conversationID, readerID string) (int64, error)
}

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetConversation(ctx context.Context, conversationID string) (*Conversation, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, participants, order_id, last_message_id, last_activity, created_at
		FROM conversations WHERE id = $1
	`, conversationID)
	return scanConversation(row)
}

func (r *PostgresRepository) GetOrCreateDirectConversation(ctx context.Context, userA, userB string) (*Conversation, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, participants, order_id, last_message_id, last_activity, created_at
		FROM conversations
		WHERE order_id IS NULL
		  AND participants @> ARRAY[$1, $2]::text[]
		  AND array_length(participants, 1) = 2
	`, userA, userB)

	conversation, err := scanConversation(row)
	if err == nil {
		return conversation, nil
	}
	if !errors.Is(err, infrastructure.ErrConversationNotFound) {
		return nil, err
	}

	return r.CreateConversation(ctx, []string{userA, userB}, nil)
}

func (r *PostgresRepository) CreateConversation(ctx context.Context, participants []string, orderID *string) (*Conversation, error) {
	conversation := &Conversation{
		ID:             uuid.New().String(),
		Participants:   participants,
		OrderID:        orderID,
		LastActivityAt: time.Now().UTC(),
		CreatedAt:      time.Now().UTC(),
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversations (id, participants, order_id, last_message_id, last_activity, created_at)
		VALUES ($1, $2, $3, NULL, $4, $5)
	`, conversation.ID, pq.Array(conversation.Participants), conversation.OrderID, conversation.LastActivityAt, conversation.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert conversation: %w", err)
	}

	return conversation, nil
}

func (r *PostgresRepository) GetUserConversations(ctx context.Context, userID string) ([]*Conversation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, participants, order_id, last_message_id, last_activity, created_at
		FROM conversations
		WHERE $1 = ANY(participants)
		ORDER BY last_activity DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []*Conversation
	for rows.Next() {
		conversation, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conversation)
	}
	return conversations, rows.Err()
}

func (r *PostgresRepository) getThread(ctx context.Context, conversationID string, kind ThreadKind, orderID *string) (*Thread, error) {
	var thread Thread
	var lastMessageID sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, kind, order_id, last_message_id, last_activity, created_at
		FROM threads
		WHERE conversation_id = $1 AND kind = $2 AND order_id IS NOT DISTINCT FROM $3
	`, conversationID, string(kind), orderID).Scan(
		&thread.ID, &thread.ConversationID, &thread.Kind, &thread.OrderID,
		&lastMessageID, &thread.LastActivityAt, &thread.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, infrastructure.ErrThreadNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastMessageID.Valid {
		thread.LastMessageID = &lastMessageID.String
	}
	return &thread, nil
}

// GetOrCreateThread resolves the single thread of a (conversation, kind,
// order) scope, creating it on first use. The insert is a no-op on conflict:
// two concurrent first messages both land on whichever row committed.
// Uniqueness is index-enforced even for the NULL-order general thread, where
// the composite index alone would treat NULLs as distinct.
func (r *PostgresRepository) GetOrCreateThread(ctx context.Context, conversationID string, kind ThreadKind, orderID *string) (*Thread, error) {
	thread, err := r.getThread(ctx, conversationID, kind, orderID)
	if err == nil {
		return thread, nil
	}
	if !errors.Is(err, infrastructure.ErrThreadNotFound) {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO threads (id, conversation_id, kind, order_id, last_message_id, last_activity, created_at)
		VALUES ($1, $2, $3, $4, NULL, $5, $5)
		ON CONFLICT DO NOTHING
	`, uuid.New().String(), conversationID, string(kind), orderID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to insert thread: %w", err)
	}

	// Re-select instead of RETURNING: a concurrent caller may have won the
	// insert.
	return r.getThread(ctx, conversationID, kind, orderID)
}

// CreateMessage persists a message and bumps the last-message reference and
// activity timestamp on both the conversation and the thread, in one
// transaction. The store is never bypassed for this metadata.
func (r *PostgresRepository) CreateMessage(ctx context.Context, message *Message) error {
	return infrastructure.WithTransaction(r.db, ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO messages (id, conversation_id, thread_id, sender_id, content, attachments, is_read, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, message.ID, message.ConversationID, message.ThreadID, message.SenderID,
			message.Content, pq.Array(message.Attachments), message.IsRead, message.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE conversations SET last_message_id = $1, last_activity = $2 WHERE id = $3
		`, message.ID, message.CreatedAt, message.ConversationID)
		if err != nil {
			return fmt.Errorf("failed to update conversation activity: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE threads SET last_message_id = $1, last_activity = $2 WHERE id = $3
		`, message.ID, message.CreatedAt, message.ThreadID)
		if err != nil {
			return fmt.Errorf("failed to update thread activity: %w", err)
		}

		return nil
	})
}

func (r *PostgresRepository) GetConversationMessages(ctx context.Context, conversationID string, limit, offset int) ([]*Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, conversation_id, thread_id, sender_id, content, attachments, is_read, created_at
		FROM messages WHERE conversation_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, conversationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var msg Message
		var attachments pq.StringArray
		err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.ThreadID, &msg.SenderID,
			&msg.Content, &attachments, &msg.IsRead, &msg.CreatedAt)
		if err != nil {
			return nil, err
		}
		msg.Attachments = attachments
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}

// MarkMessagesRead flags every unread message in a conversation that the
// reader did not author. Idempotent; already-read rows are untouched.
func (r *PostgresRepository) MarkMessagesRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE messages SET is_read = TRUE
		WHERE conversation_id = $1 AND sender_id <> $2 AND is_read = FALSE
	`, conversationID, readerID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*Conversation, error) {
	var conversation Conversation
	var participants pq.StringArray
	var lastMessageID sql.NullString
	err := row.Scan(&conversation.ID, &participants, &conversation.OrderID,
		&lastMessageID, &conversation.LastActivityAt, &conversation.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, infrastructure.ErrConversationNotFound
		}
		return nil, err
	}
	conversation.Participants = participants
	if lastMessageID.Valid {
		conversation.LastMessageID = &lastMessageID.String
	}
	return &conversation, nil
}
