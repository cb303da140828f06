// internal/repository/postgres/visit_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sells-service/internal/domain/broker"
	"sells-service/internal/domain/visit"
	xerrors "sells-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const visitColumns = `
	id, visit_uuid, lead_id, lead_name, lead_phone, broker_id,
	property_title, property_address, property_type, scheduled_at, status, notes,
	confirmation_sent, lead_confirmed, lead_confirmed_at, broker_confirmed, broker_confirmed_at,
	broker_confirmation_sent, feedback_requested, feedback_score, feedback_at, created_at, updated_at`

type VisitRepository struct {
	db *pgxpool.Pool
}

func NewVisitRepository(db *pgxpool.Pool) *VisitRepository {
	return &VisitRepository{db: db}
}

func scanVisit(row pgx.Row) (*visit.Visit, error) {
	var v visit.Visit
	err := row.Scan(
		&v.ID, &v.UUID, &v.LeadID, &v.LeadName, &v.LeadPhone, &v.BrokerID,
		&v.PropertyTitle, &v.PropertyAddress, &v.PropertyType, &v.ScheduledAt, &v.Status, &v.Notes,
		&v.ConfirmationSent, &v.LeadConfirmed, &v.LeadConfirmedAt, &v.BrokerConfirmed, &v.BrokerConfirmedAt,
		&v.BrokerConfirmationSent, &v.FeedbackRequested, &v.FeedbackScore, &v.FeedbackAt, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func collectVisits(rows pgx.Rows) ([]visit.Visit, error) {
	defer rows.Close()

	visits := []visit.Visit{}
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", err)
		}
		visits = append(visits, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate visits: %w", err)
	}
	return visits, nil
}

// Create inserts a visit. UUID must already be set.
func (r *VisitRepository) Create(ctx context.Context, v *visit.Visit) error {
	query := `
		INSERT INTO visits (
			visit_uuid, lead_id, lead_name, lead_phone, broker_id,
			property_title, property_address, property_type, scheduled_at, status, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		v.UUID, v.LeadID, v.LeadName, v.LeadPhone, v.BrokerID,
		v.PropertyTitle, v.PropertyAddress, v.PropertyType, v.ScheduledAt, v.Status, v.Notes,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create visit: %w", err)
	}
	return nil
}

// FindByUUID retrieves a visit by its public UUID
func (r *VisitRepository) FindByUUID(ctx context.Context, uuid string) (*visit.Visit, error) {
	query := `SELECT ` + visitColumns + ` FROM visits WHERE visit_uuid = $1`

	v, err := scanVisit(r.db.QueryRow(ctx, query, uuid))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find visit: %w", err)
	}
	return v, nil
}

// FindActiveByPhone returns the most recently created visit of a lead phone
// that can still take a reply: pending or confirmed, or completed while its
// feedback request is unanswered.
func (r *VisitRepository) FindActiveByPhone(ctx context.Context, phone string) (*visit.Visit, error) {
	query := `
		SELECT ` + visitColumns + `
		FROM visits
		WHERE lead_phone = $1
		  AND (status IN ('pending', 'confirmed')
		       OR (status = 'completed' AND feedback_requested AND feedback_score IS NULL))
		ORDER BY created_at DESC
		LIMIT 1
	`

	v, err := scanVisit(r.db.QueryRow(ctx, query, phone))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active visit: %w", err)
	}
	return v, nil
}

// List retrieves visits with filters, most recently scheduled first
func (r *VisitRepository) List(ctx context.Context, filters *visit.ListFilters) ([]visit.Visit, int64, error) {
	conditions := []string{"TRUE"}
	args := []interface{}{}
	argPos := 1

	if filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, filters.Status)
		argPos++
	}

	if filters.BrokerID != nil {
		conditions = append(conditions, fmt.Sprintf("broker_id = $%d", argPos))
		args = append(args, *filters.BrokerID)
		argPos++
	}

	if filters.LeadID != nil {
		conditions = append(conditions, fmt.Sprintf("lead_id = $%d", argPos))
		args = append(args, *filters.LeadID)
		argPos++
	}

	if filters.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("scheduled_at >= $%d", argPos))
		args = append(args, *filters.DateFrom)
		argPos++
	}

	if filters.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("scheduled_at < $%d", argPos))
		args = append(args, filters.DateTo.AddDate(0, 0, 1))
		argPos++
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM visits WHERE %s", whereClause)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count visits: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM visits
		WHERE %s
		ORDER BY scheduled_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, visitColumns, whereClause, argPos, argPos+1)
	args = append(args, filters.PageSize, (filters.Page-1)*filters.PageSize)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list visits: %w", err)
	}

	visits, err := collectVisits(rows)
	if err != nil {
		return nil, 0, err
	}
	return visits, total, nil
}

// ListByLead returns every visit of a lead, matched by id or phone, newest first
func (r *VisitRepository) ListByLead(ctx context.Context, leadID int64, phone string) ([]visit.Visit, error) {
	query := `
		SELECT ` + visitColumns + `
		FROM visits
		WHERE lead_id = $1 OR lead_phone = $2
		ORDER BY scheduled_at DESC, id DESC
	`

	rows, err := r.db.Query(ctx, query, leadID, phone)
	if err != nil {
		return nil, fmt.Errorf("failed to list lead visits: %w", err)
	}
	return collectVisits(rows)
}

// ListRecentByBroker returns the broker's latest visits in compact form
func (r *VisitRepository) ListRecentByBroker(ctx context.Context, brokerID int64, limit int) ([]broker.RecentVisit, error) {
	query := `
		SELECT visit_uuid, lead_name, property_title, scheduled_at, status, feedback_score
		FROM visits
		WHERE broker_id = $1
		ORDER BY scheduled_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, brokerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list broker visits: %w", err)
	}
	defer rows.Close()

	visits := []broker.RecentVisit{}
	for rows.Next() {
		var v broker.RecentVisit
		if err := rows.Scan(&v.VisitUUID, &v.LeadName, &v.PropertyTitle, &v.ScheduledAt, &v.Status, &v.FeedbackScore); err != nil {
			return nil, fmt.Errorf("failed to scan broker visit: %w", err)
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

// Update writes the mutable state of v back and refreshes updated_at
func (r *VisitRepository) Update(ctx context.Context, v *visit.Visit) error {
	query := `
		UPDATE visits
		SET status = $1, broker_id = $2, notes = $3,
		    confirmation_sent = $4, lead_confirmed = $5, lead_confirmed_at = $6,
		    broker_confirmed = $7, broker_confirmed_at = $8,
		    feedback_requested = $9, feedback_score = $10, feedback_at = $11,
		    broker_confirmation_sent = $12,
		    updated_at = NOW()
		WHERE visit_uuid = $13
		RETURNING updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		v.Status, v.BrokerID, v.Notes,
		v.ConfirmationSent, v.LeadConfirmed, v.LeadConfirmedAt,
		v.BrokerConfirmed, v.BrokerConfirmedAt,
		v.FeedbackRequested, v.FeedbackScore, v.FeedbackAt,
		v.BrokerConfirmationSent,
		v.UUID,
	).Scan(&v.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return xerrors.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update visit: %w", err)
	}
	return nil
}

// ListReminderCandidates returns visits scheduled inside the query window
// that still have a reminder to send, soonest first.
func (r *VisitRepository) ListReminderCandidates(ctx context.Context, q visit.ReminderQuery) ([]visit.Visit, error) {
	query := `
		SELECT ` + visitColumns + `
		FROM visits
		WHERE status <> 'cancelled'
		  AND scheduled_at >= $1 AND scheduled_at < $2
		  AND (
		    (scheduled_at > $3 AND status IN ('pending', 'confirmed') AND (
		      (NOT confirmation_sent AND NOT lead_confirmed)
		      OR ($4 AND NOT broker_confirmation_sent AND NOT broker_confirmed)))
		    OR (scheduled_at <= $6 AND NOT feedback_requested AND feedback_score IS NULL)
		  )
		ORDER BY scheduled_at, id
		LIMIT $5
	`

	rows, err := r.db.Query(ctx, query, q.From, q.To, q.Now, q.BrokerReminders, q.Limit, q.Now.Add(-visit.FeedbackDelay))
	if err != nil {
		return nil, fmt.Errorf("failed to list reminder candidates: %w", err)
	}
	return collectVisits(rows)
}
