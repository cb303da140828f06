// internal/repository/postgres/broker_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sells-service/internal/domain/broker"
	xerrors "sells-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// brokerSelect joins every broker with its visit aggregates.
const brokerSelect = `
	SELECT b.id, b.name, b.phone, b.email, b.creci, b.active, b.created_at, b.updated_at,
	       COALESCE(s.total, 0), COALESCE(s.pending, 0), COALESCE(s.confirmed, 0), COALESCE(s.completed, 0),
	       COALESCE(ROUND(s.avg_score::numeric, 2), 0)::float8
	FROM brokers b
	LEFT JOIN (
		SELECT broker_id,
		       COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE status = 'pending') AS pending,
		       COUNT(*) FILTER (WHERE status = 'confirmed') AS confirmed,
		       COUNT(*) FILTER (WHERE status = 'completed') AS completed,
		       AVG(feedback_score) FILTER (WHERE feedback_score IS NOT NULL) AS avg_score
		FROM visits
		WHERE broker_id IS NOT NULL
		GROUP BY broker_id
	) s ON s.broker_id = b.id`

const uniqueViolation = "23505"

type BrokerRepository struct {
	db *pgxpool.Pool
}

func NewBrokerRepository(db *pgxpool.Pool) *BrokerRepository {
	return &BrokerRepository{db: db}
}

func scanBroker(row pgx.Row) (*broker.Broker, error) {
	var b broker.Broker
	s := &b.Stats
	err := row.Scan(
		&b.ID, &b.Name, &b.Phone, &b.Email, &b.Creci, &b.Active, &b.CreatedAt, &b.UpdatedAt,
		&s.TotalVisits, &s.PendingVisits, &s.ConfirmedVisits, &s.CompletedVisits, &s.AvgFeedbackScore,
	)
	if err != nil {
		return nil, err
	}
	b.Status = broker.StatusOf(b.Active)
	return &b, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Create creates a new broker
func (r *BrokerRepository) Create(ctx context.Context, b *broker.Broker) error {
	query := `
		INSERT INTO brokers (name, phone, email, creci, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query, b.Name, b.Phone, b.Email, b.Creci, b.Active).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)

	if isUniqueViolation(err) {
		return fmt.Errorf("broker phone %s: %w", b.Phone, xerrors.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to create broker: %w", err)
	}
	b.Status = broker.StatusOf(b.Active)
	return nil
}

// FindByID retrieves a broker with its visit stats
func (r *BrokerRepository) FindByID(ctx context.Context, id int64) (*broker.Broker, error) {
	b, err := scanBroker(r.db.QueryRow(ctx, brokerSelect+` WHERE b.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find broker: %w", err)
	}
	return b, nil
}

// ExistsByPhone checks whether another broker already uses phone
func (r *BrokerRepository) ExistsByPhone(ctx context.Context, phone string, excludeID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM brokers WHERE phone = $1 AND id <> $2)`
	var exists bool
	err := r.db.QueryRow(ctx, query, phone, excludeID).Scan(&exists)
	return exists, err
}

// List retrieves brokers with filters, ordered by name
func (r *BrokerRepository) List(ctx context.Context, filters *broker.ListFilters) ([]broker.Broker, int64, error) {
	conditions := []string{"TRUE"}
	args := []interface{}{}
	argPos := 1

	if filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("b.active = $%d", argPos))
		args = append(args, broker.Status(filters.Status) == broker.StatusActive)
		argPos++
	}

	if filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(b.name ILIKE $%d OR b.email ILIKE $%d OR b.phone ILIKE $%d OR b.creci ILIKE $%d)",
			argPos, argPos, argPos, argPos,
		))
		args = append(args, "%"+filters.Search+"%")
		argPos++
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM brokers b WHERE %s", whereClause)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count brokers: %w", err)
	}

	query := fmt.Sprintf(`%s
		WHERE %s
		ORDER BY b.name ASC, b.id ASC
		LIMIT $%d OFFSET $%d
	`, brokerSelect, whereClause, argPos, argPos+1)
	args = append(args, filters.PerPage, (filters.Page-1)*filters.PerPage)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list brokers: %w", err)
	}
	defer rows.Close()

	brokers := []broker.Broker{}
	for rows.Next() {
		b, err := scanBroker(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan broker: %w", err)
		}
		brokers = append(brokers, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate brokers: %w", err)
	}

	return brokers, total, nil
}

// Update writes the editable fields of b back
func (r *BrokerRepository) Update(ctx context.Context, b *broker.Broker) error {
	query := `
		UPDATE brokers
		SET name = $1, phone = $2, email = $3, creci = $4, active = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at
	`

	err := r.db.QueryRow(ctx, query, b.Name, b.Phone, b.Email, b.Creci, b.Active, b.ID).Scan(&b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return xerrors.ErrNotFound
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("broker phone %s: %w", b.Phone, xerrors.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to update broker: %w", err)
	}
	b.Status = broker.StatusOf(b.Active)
	return nil
}

// Deactivate marks a broker inactive. Visits keep their broker reference.
func (r *BrokerRepository) Deactivate(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `UPDATE brokers SET active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate broker: %w", err)
	}

	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}
