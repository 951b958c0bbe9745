package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/itops/helpdesk-service/internal/domain"
)

// ActivityRepository stores the append-only audit trail. Entries are never
// updated; deletion only happens as part of a ticket cascade.
type ActivityRepository interface {
	CreateTx(ctx context.Context, tx pgx.Tx, entry *domain.ActivityEntry) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.ActivityEntry, error)
	DeleteByTicketTx(ctx context.Context, tx pgx.Tx, ticketID string) error
}

type activityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository builds repository.
func NewActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &activityRepository{pool: pool}
}

const activityInsertQuery = `
        INSERT INTO ticket_activity (ticket_id, kind, metadata, actor_id)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`

func (r *activityRepository) CreateTx(ctx context.Context, tx pgx.Tx, entry *domain.ActivityEntry) error {
	return tx.QueryRow(ctx, activityInsertQuery,
		entry.TicketID,
		entry.Kind,
		entry.Metadata,
		entry.ActorID,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *activityRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.ActivityEntry, error) {
	const query = `
        SELECT id, ticket_id, kind, metadata, actor_id, created_at
        FROM ticket_activity WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ActivityEntry
	for rows.Next() {
		var entry domain.ActivityEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.Kind,
			&entry.Metadata,
			&entry.ActorID,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (r *activityRepository) DeleteByTicketTx(ctx context.Context, tx pgx.Tx, ticketID string) error {
	_, err := tx.Exec(ctx, `DELETE FROM ticket_activity WHERE ticket_id=$1`, ticketID)
	return err
}
