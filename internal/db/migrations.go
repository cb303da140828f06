// internal/db/migrations.go
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// migrations is an ordered list of idempotent SQL statements.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS leads (
		id                   BIGSERIAL PRIMARY KEY,
		name                 TEXT        NOT NULL DEFAULT '',
		phone                TEXT        NOT NULL UNIQUE,
		email                TEXT,
		status               TEXT        NOT NULL DEFAULT 'new'
			CHECK (status IN ('new','qualified','visit_scheduled','negotiating','converted','lost')),
		source               TEXT        NOT NULL DEFAULT 'unknown',
		source_url           TEXT,
		property_type        TEXT        NOT NULL DEFAULT '',
		bedrooms             INTEGER,
		min_price            DOUBLE PRECISION,
		max_price            DOUBLE PRECISION,
		neighborhoods        TEXT[]      NOT NULL DEFAULT '{}',
		additional_notes     TEXT        NOT NULL DEFAULT '',
		property_title       TEXT,
		property_link        TEXT,
		property_area        INTEGER,
		qualification_score  INTEGER,
		qualification_budget TEXT,
		qualification_region TEXT,
		qualification_intent TEXT,
		contacted_at         TIMESTAMPTZ,
		first_message_at     TIMESTAMPTZ,
		last_interaction_at  TIMESTAMPTZ,
		created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads (created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_leads_status ON leads (status)`,

	`CREATE TABLE IF NOT EXISTS brokers (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT        NOT NULL,
		phone      TEXT        NOT NULL UNIQUE,
		email      TEXT,
		creci      TEXT,
		active     BOOLEAN     NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS visits (
		id                  BIGSERIAL PRIMARY KEY,
		visit_uuid          TEXT        NOT NULL UNIQUE,
		lead_id             BIGINT REFERENCES leads(id) ON DELETE SET NULL,
		lead_name           TEXT        NOT NULL DEFAULT '',
		lead_phone          TEXT        NOT NULL,
		broker_id           BIGINT REFERENCES brokers(id),
		property_title      TEXT        NOT NULL DEFAULT '',
		property_address    TEXT        NOT NULL DEFAULT '',
		property_type       TEXT        NOT NULL DEFAULT '',
		scheduled_at        TIMESTAMPTZ NOT NULL,
		status              TEXT        NOT NULL DEFAULT 'pending'
			CHECK (status IN ('pending','confirmed','completed','cancelled')),
		notes               TEXT        NOT NULL DEFAULT '',
		confirmation_sent   BOOLEAN     NOT NULL DEFAULT FALSE,
		lead_confirmed      BOOLEAN     NOT NULL DEFAULT FALSE,
		lead_confirmed_at   TIMESTAMPTZ,
		broker_confirmed    BOOLEAN     NOT NULL DEFAULT FALSE,
		broker_confirmed_at TIMESTAMPTZ,
		broker_confirmation_sent BOOLEAN NOT NULL DEFAULT FALSE,
		feedback_requested  BOOLEAN     NOT NULL DEFAULT FALSE,
		feedback_score      INTEGER,
		feedback_at         TIMESTAMPTZ,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (feedback_score IS NULL OR (feedback_score BETWEEN 1 AND 5 AND status = 'completed'))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_visits_lead_phone ON visits (lead_phone)`,
	`CREATE INDEX IF NOT EXISTS idx_visits_broker_id ON visits (broker_id)`,
	`CREATE INDEX IF NOT EXISTS idx_visits_created_at ON visits (created_at)`,
	`ALTER TABLE visits ADD COLUMN IF NOT EXISTS broker_confirmation_sent BOOLEAN NOT NULL DEFAULT FALSE`,
	`CREATE INDEX IF NOT EXISTS idx_visits_scheduled_at ON visits (scheduled_at)`,

	`CREATE TABLE IF NOT EXISTS conversation_messages (
		id              BIGSERIAL PRIMARY KEY,
		conversation_id TEXT        NOT NULL,
		role            TEXT        NOT NULL CHECK (role IN ('user','assistant')),
		content         TEXT        NOT NULL,
		metadata        JSONB,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_conversation_messages_conv
		ON conversation_messages (conversation_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS lead_followups (
		conversation_id TEXT PRIMARY KEY,
		lead_id         BIGINT REFERENCES leads(id) ON DELETE CASCADE,
		chat_id         TEXT        NOT NULL,
		session         TEXT        NOT NULL,
		kind            TEXT        NOT NULL CHECK (kind IN ('landing','cold')),
		tier            INTEGER     NOT NULL DEFAULT 0,
		due_at          TIMESTAMPTZ NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_lead_followups_due ON lead_followups (due_at)`,
}

// Migrate runs all migrations in order.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, m := range migrations {
		if _, err := pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
