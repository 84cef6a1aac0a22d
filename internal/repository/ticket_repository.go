package repository

import (
	"fmt"
	"strings"
	"time"

	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-routing/internal/domain"
)

// TicketFilter captures search parameters for listing endpoints.
type TicketFilter struct {
	RequesterID *string
	AssigneeID  *string
	Statuses    []domain.TicketStatus
	Urgencies   []domain.Urgency
	Category    *string
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket persistence. Conditional updates
// return false instead of an error when the guard no longer holds, so the
// sweep can tell an already-handled ticket from a store failure.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// ListOverdue returns active tickets past their SLA due date whose
	// breach has not been handled yet.
	ListOverdue(ctx context.Context, now time.Time) ([]domain.Ticket, error)
	// ListApproaching returns active, unbreached tickets due within the
	// warning window.
	ListApproaching(ctx context.Context, now time.Time, window time.Duration) ([]domain.Ticket, error)
	// MarkBreached flips the breach flag, moves the ticket to ESCALATED and
	// increments the escalation count, guarded by sla_breached=false.
	MarkBreached(ctx context.Context, id string, now time.Time) (bool, error)
	// MarkEscalated is the manual-escalation variant without the breach
	// guard; it only requires the ticket to still be active.
	MarkEscalated(ctx context.Context, id string, now time.Time) (bool, error)
	// Close moves an active ticket to RESOLVED or CLOSED.
	Close(ctx context.Context, id string, status domain.TicketStatus, now time.Time) (bool, error)
	// SetStatus applies a plain status transition for active tickets.
	SetStatus(ctx context.Context, id string, status domain.TicketStatus) (bool, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, requester_id, title, description, category, required_skills,
               urgency, status, assigned_agent_id, sla_due_date, sla_breached,
               escalation_count, escalated_at, resolved_at, closed_at, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (requester_id, title, description, category, required_skills, urgency, status, sla_due_date)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.RequesterID,
		ticket.Title,
		ticket.Description,
		ticket.Category,
		ticket.RequiredSkills,
		int(ticket.Urgency),
		ticket.Status,
		ticket.SLADueDate,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, id), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.RequesterID != nil {
		args = append(args, *filter.RequesterID)
		clauses = append(clauses, fmt.Sprintf("requester_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assigned_agent_id=$%d", len(args)))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Urgencies) > 0 {
		placeholders := make([]string, len(filter.Urgencies))
		for i, urgency := range filter.Urgencies {
			args = append(args, int(urgency))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("urgency IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListOverdue(ctx context.Context, now time.Time) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
        FROM tickets
        WHERE status NOT IN ('RESOLVED','CLOSED') AND sla_due_date < $1 AND sla_breached = FALSE
        ORDER BY sla_due_date ASC`
	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListApproaching(ctx context.Context, now time.Time, window time.Duration) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
        FROM tickets
        WHERE status NOT IN ('RESOLVED','CLOSED') AND sla_breached = FALSE
          AND sla_due_date > $1 AND sla_due_date <= $2
        ORDER BY sla_due_date ASC`
	rows, err := r.pool.Query(ctx, query, now, now.Add(window))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) MarkBreached(ctx context.Context, id string, now time.Time) (bool, error) {
	const query = `
        UPDATE tickets
        SET sla_breached = TRUE, status = 'ESCALATED', escalated_at = $2,
            escalation_count = escalation_count + 1, updated_at = NOW()
        WHERE id = $1 AND sla_breached = FALSE AND status NOT IN ('RESOLVED','CLOSED')`
	cmd, err := r.pool.Exec(ctx, query, id, now)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) MarkEscalated(ctx context.Context, id string, now time.Time) (bool, error) {
	const query = `
        UPDATE tickets
        SET status = 'ESCALATED', escalated_at = $2,
            escalation_count = escalation_count + 1, updated_at = NOW()
        WHERE id = $1 AND status NOT IN ('RESOLVED','CLOSED')`
	cmd, err := r.pool.Exec(ctx, query, id, now)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) Close(ctx context.Context, id string, status domain.TicketStatus, now time.Time) (bool, error) {
	const query = `
        UPDATE tickets
        SET status = $2, resolved_at = $3,
            closed_at = CASE WHEN $2 = 'CLOSED' THEN $3 ELSE closed_at END,
            updated_at = NOW()
        WHERE id = $1 AND status NOT IN ('RESOLVED','CLOSED')`
	cmd, err := r.pool.Exec(ctx, query, id, status, now)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) SetStatus(ctx context.Context, id string, status domain.TicketStatus) (bool, error) {
	const query = `
        UPDATE tickets SET status = $2, updated_at = NOW()
        WHERE id = $1 AND status NOT IN ('RESOLVED','CLOSED')`
	cmd, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

type ticketScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row ticketScanner, ticket *domain.Ticket) error {
	var urgency int
	if err := row.Scan(
		&ticket.ID,
		&ticket.RequesterID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Category,
		&ticket.RequiredSkills,
		&urgency,
		&ticket.Status,
		&ticket.AssignedAgentID,
		&ticket.SLADueDate,
		&ticket.SLABreached,
		&ticket.EscalationCount,
		&ticket.EscalatedAt,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return err
	}
	ticket.Urgency = domain.Urgency(urgency)
	return nil
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
