package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-routing/internal/domain"
)

// NotificationRepository persists agent notifications. Warning-class rows
// carry a partial unique index on (agent_id, ticket_id, type); Create uses
// ON CONFLICT DO NOTHING so a duplicate insert racing past the existence
// check degrades to a no-op instead of a second warning.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	Exists(ctx context.Context, agentID, ticketID string, notifType domain.NotificationType) (bool, error)
	ListByAgent(ctx context.Context, agentID string, limit, offset int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id string, now time.Time) error
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository instantiates the repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	const query = `
        INSERT INTO notifications (agent_id, ticket_id, type, title, message)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT DO NOTHING`
	_, err := r.pool.Exec(ctx, query,
		notification.AgentID,
		notification.TicketID,
		notification.Type,
		notification.Title,
		notification.Message,
	)
	return err
}

func (r *notificationRepository) Exists(ctx context.Context, agentID, ticketID string, notifType domain.NotificationType) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM notifications WHERE agent_id=$1 AND ticket_id=$2 AND type=$3
        )`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, agentID, ticketID, notifType).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *notificationRepository) ListByAgent(ctx context.Context, agentID string, limit, offset int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, agent_id, ticket_id, type, title, message, read_at, created_at
        FROM notifications WHERE agent_id=$1
        ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, agentID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var notification domain.Notification
		if err := rows.Scan(
			&notification.ID,
			&notification.AgentID,
			&notification.TicketID,
			&notification.Type,
			&notification.Title,
			&notification.Message,
			&notification.ReadAt,
			&notification.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, notification)
	}
	return result, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, id string, now time.Time) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE notifications SET read_at=$2 WHERE id=$1 AND read_at IS NULL`, id, now)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
