package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/persistence"
)

// TicketFilter narrows ticket queries. Nil fields do not filter.
type TicketFilter struct {
	OwnerUID       *string
	EngineerUID    *string
	Statuses       []domain.TicketStatus
	ExcludeDeleted bool
	Unassigned     bool
	WithReview     bool
	Limit          int
	Offset         int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByTID(ctx context.Context, tid int64) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	CountBuckets(ctx context.Context, filter TicketFilter) (domain.BucketCounts, error)
}

type ticketRepository struct {
	db persistence.Querier
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db persistence.Querier) TicketRepository {
	return &ticketRepository{db: db}
}

const ticketColumns = `tid, title, description, status, priority, uid, assigned_support_engineer,
               review, rating, reviewed, deleted_by, deleted_at, delete_reason, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (tid, title, description, status, priority, uid, assigned_support_engineer)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		ticket.TID,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.UID,
		ticket.AssignedSupportEngineer,
	).Scan(&ticket.CreatedAt, &ticket.UpdatedAt)
	return mapWriteError(err)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, status=$3, priority=$4, assigned_support_engineer=$5,
            review=$6, rating=$7, reviewed=$8, deleted_by=$9, deleted_at=$10, delete_reason=$11, updated_at=NOW()
        WHERE tid=$12
        RETURNING updated_at`
	err := r.db.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.AssignedSupportEngineer,
		ticket.Review,
		ticket.Rating,
		ticket.Reviewed,
		ticket.DeletedBy,
		ticket.DeletedAt,
		ticket.DeleteReason,
		ticket.TID,
	).Scan(&ticket.UpdatedAt)
	return mapRowError(err)
}

func (r *ticketRepository) GetByTID(ctx context.Context, tid int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE tid=$1`
	ticket, err := scanTicket(r.db.QueryRow(ctx, query, tid))
	if err != nil {
		return nil, mapRowError(err)
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	where, args := buildTicketWhere(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC, tid DESC LIMIT %d OFFSET %d`,
		ticketColumns, where, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

// CountBuckets aggregates the overlapping dashboard buckets in one pass.
func (r *ticketRepository) CountBuckets(ctx context.Context, filter TicketFilter) (domain.BucketCounts, error) {
	filter.ExcludeDeleted = true
	where, args := buildTicketWhere(filter)
	query := fmt.Sprintf(`
        SELECT
            COUNT(*) FILTER (WHERE status = '%s'),
            COUNT(*) FILTER (WHERE status = '%s'),
            COUNT(*) FILTER (WHERE status = '%s'),
            COUNT(*) FILTER (WHERE assigned_support_engineer IN ('', '%s'))
        FROM tickets WHERE %s`,
		domain.TicketStatusNotStarted, domain.TicketStatusInProgress, domain.TicketStatusDone, domain.Unassigned, where)

	var counts domain.BucketCounts
	err := r.db.QueryRow(ctx, query, args...).Scan(&counts.Open, &counts.Pending, &counts.Solved, &counts.Unassigned)
	return counts, err
}

func buildTicketWhere(filter TicketFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.OwnerUID != nil {
		args = append(args, *filter.OwnerUID)
		clauses = append(clauses, fmt.Sprintf("uid=$%d", len(args)))
	}
	if filter.EngineerUID != nil {
		args = append(args, *filter.EngineerUID)
		clauses = append(clauses, fmt.Sprintf("assigned_support_engineer=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.ExcludeDeleted {
		args = append(args, domain.TicketStatusDeleted)
		clauses = append(clauses, fmt.Sprintf("status<>$%d", len(args)))
	}
	if filter.Unassigned {
		args = append(args, domain.Unassigned)
		clauses = append(clauses, fmt.Sprintf("assigned_support_engineer IN ('', $%d)", len(args)))
	}
	if filter.WithReview {
		clauses = append(clauses, "review IS NOT NULL AND rating IS NOT NULL")
	}
	return strings.Join(clauses, " AND "), args
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.TID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.UID,
		&ticket.AssignedSupportEngineer,
		&ticket.Review,
		&ticket.Rating,
		&ticket.Reviewed,
		&ticket.DeletedBy,
		&ticket.DeletedAt,
		&ticket.DeleteReason,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
