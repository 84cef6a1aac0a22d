package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-routing/internal/domain"
)

// AssignmentCommit describes the atomic pair of writes that book a ticket
// onto an agent. The ticket update and the agent load increment must land
// together; a partially applied assignment would allow over-booking.
type AssignmentCommit struct {
	TicketID string
	AgentID  string
	// NewStatus is ASSIGNED for fresh assignments and ESCALATED when the
	// router reassigns during escalation.
	NewStatus domain.TicketStatus
	// RequireUnassigned guards fresh assignments: the commit fails with
	// ErrStale when the ticket already holds an agent.
	RequireUnassigned bool
	// BumpLoad controls the agent-side bookkeeping. Manager escalations
	// skip it; capacity modeling stops at the agent tier.
	BumpLoad bool
	// ReleaseAgentID, when set, frees the previous assignee's slot in the
	// same transaction (release-on-escalation mode).
	ReleaseAgentID *string
	Now            time.Time
}

// ErrStale is returned when a commit's guard condition no longer holds.
var ErrStale = pgx.ErrNoRows

// AssignmentRepository owns the cross-table assignment transaction.
type AssignmentRepository interface {
	Commit(ctx context.Context, commit AssignmentCommit) error
}

type assignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository builds the repository.
func NewAssignmentRepository(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepository{pool: pool}
}

func (r *assignmentRepository) Commit(ctx context.Context, commit AssignmentCommit) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	ticketQuery := `
        UPDATE tickets SET assigned_agent_id=$1, status=$2, updated_at=NOW()
        WHERE id=$3 AND status NOT IN ('RESOLVED','CLOSED')`
	if commit.RequireUnassigned {
		ticketQuery += " AND assigned_agent_id IS NULL"
	}
	cmd, err := tx.Exec(ctx, ticketQuery, commit.AgentID, commit.NewStatus, commit.TicketID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStale
	}

	if commit.BumpLoad {
		const agentQuery = `
            UPDATE agents
            SET current_load = current_load + 1,
                last_assigned_at = $2,
                status = CASE
                    WHEN current_load + 1 >= capacity THEN 'BUSY'
                    ELSE status
                END,
                updated_at = NOW()
            WHERE id = $1`
		cmd, err = tx.Exec(ctx, agentQuery, commit.AgentID, commit.Now)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return ErrStale
		}
	}

	if commit.ReleaseAgentID != nil && *commit.ReleaseAgentID != commit.AgentID {
		const releaseQuery = `
            UPDATE agents
            SET current_load = GREATEST(current_load - 1, 0),
                status = CASE
                    WHEN status = 'BUSY' AND GREATEST(current_load - 1, 0) < capacity THEN 'ACTIVE'
                    ELSE status
                END,
                updated_at = NOW()
            WHERE id = $1`
		if _, err = tx.Exec(ctx, releaseQuery, *commit.ReleaseAgentID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
