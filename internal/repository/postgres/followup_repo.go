// internal/repository/postgres/followup_repo.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"sells-service/internal/domain/followup"

	"github.com/jackc/pgx/v5/pgxpool"
)

type FollowupRepository struct {
	db *pgxpool.Pool
}

func NewFollowupRepository(db *pgxpool.Pool) *FollowupRepository {
	return &FollowupRepository{db: db}
}

// Upsert schedules f, replacing any follow-up already pending for the
// same conversation.
func (r *FollowupRepository) Upsert(ctx context.Context, f *followup.Followup) error {
	query := `
		INSERT INTO lead_followups (conversation_id, lead_id, chat_id, session, kind, tier, due_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (conversation_id) DO UPDATE
		SET lead_id = EXCLUDED.lead_id,
		    chat_id = EXCLUDED.chat_id,
		    session = EXCLUDED.session,
		    kind = EXCLUDED.kind,
		    tier = EXCLUDED.tier,
		    due_at = EXCLUDED.due_at
		RETURNING created_at
	`

	err := r.db.QueryRow(ctx, query, f.ConversationID, f.LeadID, f.ChatID, f.Session, f.Kind, f.Tier, f.DueAt).
		Scan(&f.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to schedule followup: %w", err)
	}
	return nil
}

// Delete cancels the pending follow-up of a conversation. Deleting a missing
// follow-up is not an error.
func (r *FollowupRepository) Delete(ctx context.Context, conversationID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM lead_followups WHERE conversation_id = $1`, conversationID); err != nil {
		return fmt.Errorf("failed to cancel followup: %w", err)
	}
	return nil
}

// Due returns up to limit follow-ups whose due time has passed, oldest first
func (r *FollowupRepository) Due(ctx context.Context, now time.Time, limit int) ([]followup.Followup, error) {
	query := `
		SELECT conversation_id, lead_id, chat_id, session, kind, tier, due_at, created_at
		FROM lead_followups
		WHERE due_at <= $1
		ORDER BY due_at ASC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load due followups: %w", err)
	}
	defer rows.Close()

	due := []followup.Followup{}
	for rows.Next() {
		var f followup.Followup
		if err := rows.Scan(&f.ConversationID, &f.LeadID, &f.ChatID, &f.Session, &f.Kind, &f.Tier, &f.DueAt, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan followup: %w", err)
		}
		due = append(due, f)
	}
	return due, rows.Err()
}
