// internal/repository/postgres/conversation_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sells-service/internal/domain/conversation"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

type ConversationRepository struct {
	db *pgxpool.Pool
}

func NewConversationRepository(db *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Append stores one message. CreatedAt defaults to now when zero.
func (r *ConversationRepository) Append(ctx context.Context, m *conversation.Message) error {
	query := `
		INSERT INTO conversation_messages (conversation_id, role, content, metadata, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))
		RETURNING id, created_at
	`

	var metadataJSON []byte
	var err error

	if m.Metadata != nil {
		metadataJSON, err = json.Marshal(m.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	var createdAt *time.Time
	if !m.CreatedAt.IsZero() {
		createdAt = &m.CreatedAt
	}

	err = r.db.QueryRow(ctx, query, m.ConversationID, m.Role, m.Content, metadataJSON, createdAt).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// ListByConversationIDs returns every message stored under any of ids,
// oldest first.
func (r *ConversationRepository) ListByConversationIDs(ctx context.Context, ids []string) ([]conversation.Message, error) {
	query := `
		SELECT id, conversation_id, role, content, metadata, created_at
		FROM conversation_messages
		WHERE conversation_id = ANY($1)
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return collectMessages(rows)
}

// Recent returns the last limit messages of a conversation, oldest first.
func (r *ConversationRepository) Recent(ctx context.Context, conversationID string, limit int) ([]conversation.Message, error) {
	query := `
		SELECT id, conversation_id, role, content, metadata, created_at
		FROM (
			SELECT id, conversation_id, role, content, metadata, created_at
			FROM conversation_messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) latest
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent messages: %w", err)
	}
	return collectMessages(rows)
}

// DeleteOlderThan removes messages created before cutoff
func (r *ConversationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM conversation_messages WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old messages: %w", err)
	}
	return result.RowsAffected(), nil
}

// TrimConversations keeps only the newest keep messages of each conversation
func (r *ConversationRepository) TrimConversations(ctx context.Context, keep int) (int64, error) {
	query := `
		DELETE FROM conversation_messages
		WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY conversation_id ORDER BY created_at DESC, id DESC
				) AS rn
				FROM conversation_messages
			) ranked
			WHERE rn > $1
		)
	`

	result, err := r.db.Exec(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to trim conversations: %w", err)
	}
	return result.RowsAffected(), nil
}

func collectMessages(rows pgx.Rows) ([]conversation.Message, error) {
	defer rows.Close()

	messages := []conversation.Message{}
	for rows.Next() {
		var m conversation.Message
		var metadataJSON []byte

		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &metadataJSON, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &m.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}

		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}
