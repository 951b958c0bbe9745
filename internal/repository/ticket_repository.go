package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/itops/helpdesk-service/internal/domain"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	CreatedBy  *string
	AssignedTo *string
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Categories []domain.TicketCategory
	SearchTerm *string
	DueBefore  *time.Time
	Limit      int
	Offset     int
}

// QueueCounts aggregates the active queue (open and in-progress tickets)
// for the staff dashboard. Computed by the database, never by scanning rows.
type QueueCounts struct {
	Open       int
	InProgress int
	Overdue    int
	Unassigned int
	ByCategory map[domain.TicketCategory]int
	ByPriority map[domain.TicketPriority]int
}

// TicketRepository encapsulates ticket persistence. Writes are tx-scoped:
// every mutation commits together with its dependent audit rows.
type TicketRepository interface {
	CreateTx(ctx context.Context, tx pgx.Tx, ticket *domain.Ticket) error
	UpdateTx(ctx context.Context, tx pgx.Tx, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetBySeq(ctx context.Context, seq int64) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	CountQueue(ctx context.Context, now time.Time) (QueueCounts, error)
	DeleteTx(ctx context.Context, tx pgx.Tx, id string) error
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `t.id, t.seq, t.subject, t.description, t.category, t.priority, t.status, t.sentiment,
               t.resolution_notes, t.internal_notes, t.created_by, t.assigned_to, t.merged_into,
               t.due_by, t.created_at, t.updated_at,
               (SELECT COUNT(*) FROM ticket_comments c WHERE c.ticket_id = t.id) AS comment_count,
               (SELECT COUNT(*) FROM ticket_comments c WHERE c.ticket_id = t.id AND NOT c.is_internal) AS public_comment_count`

const ticketInsertQuery = `
        INSERT INTO tickets (subject, description, category, priority, status, sentiment,
                             resolution_notes, internal_notes, created_by, assigned_to, due_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, seq, created_at, updated_at`

func (r *ticketRepository) CreateTx(ctx context.Context, tx pgx.Tx, ticket *domain.Ticket) error {
	return tx.QueryRow(ctx, ticketInsertQuery,
		ticket.Subject,
		ticket.Description,
		ticket.Category,
		ticket.Priority,
		ticket.Status,
		ticket.Sentiment,
		ticket.ResolutionNotes,
		ticket.InternalNotes,
		ticket.CreatedBy,
		ticket.AssignedTo,
		ticket.DueBy,
	).Scan(&ticket.ID, &ticket.Seq, &ticket.CreatedAt, &ticket.UpdatedAt)
}

const ticketUpdateQuery = `
        UPDATE tickets SET subject=$1, description=$2, category=$3, priority=$4, status=$5, sentiment=$6,
            resolution_notes=$7, internal_notes=$8, assigned_to=$9, merged_into=$10, due_by=$11, updated_at=NOW()
        WHERE id=$12`

// UpdateTx applies the row update inside an existing transaction so the
// mutation commits together with its audit entries.
func (r *ticketRepository) UpdateTx(ctx context.Context, tx pgx.Tx, ticket *domain.Ticket) error {
	cmd, err := tx.Exec(ctx, ticketUpdateQuery, ticketUpdateArgs(ticket)...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func ticketUpdateArgs(ticket *domain.Ticket) []any {
	return []any{
		ticket.Subject,
		ticket.Description,
		ticket.Category,
		ticket.Priority,
		ticket.Status,
		ticket.Sentiment,
		ticket.ResolutionNotes,
		ticket.InternalNotes,
		ticket.AssignedTo,
		ticket.MergedInto,
		ticket.DueBy,
		ticket.ID,
	}
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets t WHERE t.id=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetBySeq(ctx context.Context, seq int64) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets t WHERE t.seq=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, seq)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, arg), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("t.created_by=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("t.assigned_to=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("t.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("t.priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Categories) > 0 {
		placeholders := make([]string, len(filter.Categories))
		for i, cat := range filter.Categories {
			args = append(args, cat)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("t.category IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.DueBefore != nil {
		args = append(args, *filter.DueBefore)
		clauses = append(clauses, fmt.Sprintf("t.due_by < $%d AND t.status NOT IN ('RESOLVED','CLOSED')", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(t.subject) LIKE %s OR LOWER(t.description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets t WHERE %s ORDER BY t.updated_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// CountQueue aggregates the active queue in the database. The result set is
// bounded by the enum cardinalities, never by the number of tickets.
func (r *ticketRepository) CountQueue(ctx context.Context, now time.Time) (QueueCounts, error) {
	const query = `
        SELECT t.status, t.category, t.priority,
               t.assigned_to IS NULL AS unassigned,
               t.due_by < $1 AS overdue,
               COUNT(*) AS total
        FROM tickets t
        WHERE t.status IN ('OPEN','IN_PROGRESS')
        GROUP BY 1, 2, 3, 4, 5`

	counts := QueueCounts{
		ByCategory: make(map[domain.TicketCategory]int),
		ByPriority: make(map[domain.TicketPriority]int),
	}
	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return counts, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status     domain.TicketStatus
			category   domain.TicketCategory
			priority   domain.TicketPriority
			unassigned bool
			overdue    bool
			total      int
		)
		if err := rows.Scan(&status, &category, &priority, &unassigned, &overdue, &total); err != nil {
			return counts, err
		}
		switch status {
		case domain.TicketStatusOpen:
			counts.Open += total
		case domain.TicketStatusInProgress:
			counts.InProgress += total
		}
		if unassigned {
			counts.Unassigned += total
		}
		if overdue {
			counts.Overdue += total
		}
		counts.ByCategory[category] += total
		counts.ByPriority[priority] += total
	}
	return counts, rows.Err()
}

// DeleteTx removes the ticket row inside an existing transaction. Cascading
// to comments and activity is the lifecycle's responsibility, not storage's.
func (r *ticketRepository) DeleteTx(ctx context.Context, tx pgx.Tx, id string) error {
	cmd, err := tx.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.Seq,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Category,
		&ticket.Priority,
		&ticket.Status,
		&ticket.Sentiment,
		&ticket.ResolutionNotes,
		&ticket.InternalNotes,
		&ticket.CreatedBy,
		&ticket.AssignedTo,
		&ticket.MergedInto,
		&ticket.DueBy,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.CommentCount,
		&ticket.PublicCommentCount,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
