// internal/repository/postgres/lead_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sells-service/internal/domain/lead"
	xerrors "sells-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

const leadColumns = `
	id, name, phone, email, status, source, source_url,
	property_type, bedrooms, min_price, max_price, neighborhoods, additional_notes,
	property_title, property_link, property_area,
	qualification_score, qualification_budget, qualification_region, qualification_intent,
	contacted_at, first_message_at, last_interaction_at, created_at, updated_at`

type LeadRepository struct {
	db *pgxpool.Pool
}

func NewLeadRepository(db *pgxpool.Pool) *LeadRepository {
	return &LeadRepository{db: db}
}

func scanLead(row pgx.Row) (*lead.Lead, error) {
	var l lead.Lead
	p := &l.Preferences
	err := row.Scan(
		&l.ID, &l.Name, &l.Phone, &l.Email, &l.Status, &l.Source, &l.SourceURL,
		&p.PropertyType, &p.Bedrooms, &p.MinPrice, &p.MaxPrice, &p.Neighborhoods, &p.AdditionalNotes,
		&l.PropertyTitle, &l.PropertyLink, &l.PropertyArea,
		&l.QualificationScore, &l.QualificationBudget, &l.QualificationRegion, &l.QualificationIntent,
		&l.ContactedAt, &l.FirstMessageAt, &l.LastInteractionAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.Neighborhoods == nil {
		p.Neighborhoods = []string{}
	}
	return &l, nil
}

// FindByID retrieves a lead by ID
func (r *LeadRepository) FindByID(ctx context.Context, id int64) (*lead.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`

	l, err := scanLead(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find lead: %w", err)
	}
	return l, nil
}

// FindByPhone retrieves a lead by its normalised phone
func (r *LeadRepository) FindByPhone(ctx context.Context, phone string) (*lead.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE phone = $1`

	l, err := scanLead(r.db.QueryRow(ctx, query, phone))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find lead by phone: %w", err)
	}
	return l, nil
}

// List retrieves leads with filters, newest first
func (r *LeadRepository) List(ctx context.Context, filters *lead.ListFilters) ([]lead.Lead, int64, error) {
	conditions := []string{"TRUE"}
	args := []interface{}{}
	argPos := 1

	if filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, filters.Status)
		argPos++
	}

	if filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR phone ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+filters.Search+"%")
		argPos++
	}

	if filters.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argPos))
		args = append(args, *filters.DateFrom)
		argPos++
	}

	if filters.DateTo != nil {
		// date_to is inclusive of the whole day
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", argPos))
		args = append(args, filters.DateTo.AddDate(0, 0, 1))
		argPos++
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM leads WHERE %s", whereClause)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count leads: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM leads
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, leadColumns, whereClause, argPos, argPos+1)
	args = append(args, filters.PageSize, (filters.Page-1)*filters.PageSize)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	leads := []lead.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate leads: %w", err)
	}

	return leads, total, nil
}

// Update writes the editable fields of l back and refreshes updated_at
func (r *LeadRepository) Update(ctx context.Context, l *lead.Lead) error {
	query := `
		UPDATE leads
		SET name = $1, email = $2, status = $3,
		    qualification_score = $4, qualification_budget = $5,
		    qualification_region = $6, qualification_intent = $7,
		    contacted_at = $8, updated_at = NOW()
		WHERE id = $9
		RETURNING updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		l.Name, l.Email, l.Status,
		l.QualificationScore, l.QualificationBudget,
		l.QualificationRegion, l.QualificationIntent,
		l.ContactedAt, l.ID,
	).Scan(&l.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return xerrors.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update lead: %w", err)
	}
	return nil
}

// Touch records an inbound WhatsApp message from phone. A missing lead is
// created with source whatsapp. The boolean reports whether it was created.
func (r *LeadRepository) Touch(ctx context.Context, phone, name string, at time.Time) (*lead.Lead, bool, error) {
	query := `
		INSERT INTO leads (phone, name, source, first_message_at, last_interaction_at)
		VALUES ($1, $2, 'whatsapp', $3, $3)
		ON CONFLICT (phone) DO UPDATE
		SET last_interaction_at = EXCLUDED.last_interaction_at,
		    first_message_at = COALESCE(leads.first_message_at, EXCLUDED.first_message_at),
		    name = COALESCE(NULLIF(leads.name, ''), EXCLUDED.name),
		    updated_at = NOW()
		RETURNING ` + leadColumns + `, (xmax = 0)
	`

	var created bool
	row := r.db.QueryRow(ctx, query, phone, name, at)
	l, err := scanLead(scanTail{row: row, tail: []any{&created}})
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert lead: %w", err)
	}
	return l, created, nil
}

// UpsertLanding stores a landing-page lead, refreshing the property context of
// an existing lead with the same phone. The boolean reports whether it was
// created.
func (r *LeadRepository) UpsertLanding(ctx context.Context, l *lead.Lead) (bool, error) {
	query := `
		INSERT INTO leads (
			phone, name, source, source_url, bedrooms, max_price, neighborhoods,
			additional_notes, property_title, property_link, property_area
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (phone) DO UPDATE
		SET name = COALESCE(NULLIF(EXCLUDED.name, ''), leads.name),
		    source_url = EXCLUDED.source_url,
		    bedrooms = COALESCE(EXCLUDED.bedrooms, leads.bedrooms),
		    max_price = COALESCE(EXCLUDED.max_price, leads.max_price),
		    neighborhoods = CASE WHEN cardinality(EXCLUDED.neighborhoods) > 0
		                         THEN EXCLUDED.neighborhoods ELSE leads.neighborhoods END,
		    additional_notes = EXCLUDED.additional_notes,
		    property_title = EXCLUDED.property_title,
		    property_link = EXCLUDED.property_link,
		    property_area = EXCLUDED.property_area,
		    updated_at = NOW()
		RETURNING id, status, source, created_at, updated_at, (xmax = 0)
	`

	p := l.Preferences
	var created bool
	err := r.db.QueryRow(
		ctx, query,
		l.Phone, l.Name, l.Source, l.SourceURL, p.Bedrooms, p.MaxPrice, pq.Array(p.Neighborhoods),
		p.AdditionalNotes, l.PropertyTitle, l.PropertyLink, l.PropertyArea,
	).Scan(&l.ID, &l.Status, &l.Source, &l.CreatedAt, &l.UpdatedAt, &created)

	if err != nil {
		return false, fmt.Errorf("failed to upsert landing lead: %w", err)
	}
	return created, nil
}

// scanTail appends extra destinations after the ones scanLead supplies.
type scanTail struct {
	row  pgx.Row
	tail []any
}

func (s scanTail) Scan(dest ...any) error {
	return s.row.Scan(append(dest, s.tail...)...)
}
