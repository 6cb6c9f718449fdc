package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/persistence"
)

// NotificationRepository persists notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	GetByID(ctx context.Context, id string) (*domain.Notification, error)
	ListByReceiver(ctx context.Context, receiverUID string) ([]domain.Notification, error)
	SetRead(ctx context.Context, id string, read bool) error
}

type notificationRepository struct {
	db persistence.Querier
}

// NewNotificationRepository returns a Postgres-backed implementation.
func NewNotificationRepository(db persistence.Querier) NotificationRepository {
	return &notificationRepository{db: db}
}

const notificationColumns = `id, receiver_uid, sender_uid, ticket_id, message, reason, read, created_at`

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	const query = `
        INSERT INTO notifications (id, receiver_uid, sender_uid, ticket_id, message, reason, read)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING created_at`
	return r.db.QueryRow(ctx, query,
		n.ID,
		n.ReceiverUID,
		n.SenderUID,
		n.TicketID,
		n.Message,
		n.Reason,
		n.Read,
	).Scan(&n.CreatedAt)
}

func (r *notificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id=$1`
	n, err := scanNotification(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapRowError(err)
	}
	return n, nil
}

func (r *notificationRepository) ListByReceiver(ctx context.Context, receiverUID string) ([]domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE receiver_uid=$1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, receiverUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *n)
	}
	return result, rows.Err()
}

func (r *notificationRepository) SetRead(ctx context.Context, id string, read bool) error {
	cmd, err := r.db.Exec(ctx, `UPDATE notifications SET read=$1 WHERE id=$2`, read, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	if err := row.Scan(
		&n.ID,
		&n.ReceiverUID,
		&n.SenderUID,
		&n.TicketID,
		&n.Message,
		&n.Reason,
		&n.Read,
		&n.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &n, nil
}
