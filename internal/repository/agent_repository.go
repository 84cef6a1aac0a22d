package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-routing/internal/domain"
)

// AgentFilter defines query params for agent listing.
type AgentFilter struct {
	Role   *domain.AgentRole
	Status *domain.AgentStatus
	Level  *domain.AgentLevel
	Limit  int
	Offset int
}

// CandidateFilter narrows the routing candidate query. Candidates are
// always role AGENT, status ACTIVE or BUSY, and strictly under capacity;
// ordering is (current_load asc, last_assigned_at asc) so the least-loaded,
// longest-idle agent wins.
type CandidateFilter struct {
	Category  *string
	Level     *domain.AgentLevel
	ExcludeID *string
	Limit     int
}

// AgentRepository handles persistence for the agent directory.
//
// Load is only ever mutated through IncrementLoad / ReleaseLoad, which
// also derive the BUSY/ACTIVE status in the same statement. Read-modify-
// write of the load column in application code is forbidden; it would
// lose updates under concurrent assignment.
type AgentRepository interface {
	Create(ctx context.Context, agent *domain.Agent) error
	Update(ctx context.Context, agent *domain.Agent) error
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
	List(ctx context.Context, filter AgentFilter) ([]domain.Agent, error)
	ListCandidates(ctx context.Context, filter CandidateFilter) ([]domain.Agent, error)
	FindManager(ctx context.Context) (*domain.Agent, error)
	ReleaseLoad(ctx context.Context, id string) error
	UpdateCategories(ctx context.Context, id string, categories []string) error
	SetAvailability(ctx context.Context, id string, available bool) error
}

type agentRepository struct {
	pool *pgxpool.Pool
}

// NewAgentRepository instantiates the repository.
func NewAgentRepository(pool *pgxpool.Pool) AgentRepository {
	return &agentRepository{pool: pool}
}

const agentColumns = `id, name, email, role, level, categories, current_load, capacity, status, last_assigned_at, created_at, updated_at`

func (r *agentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	const query = `
        INSERT INTO agents (name, email, role, level, categories, capacity, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, current_load, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		agent.Name,
		agent.Email,
		agent.Role,
		int(agent.Level),
		agent.Categories,
		agent.Capacity,
		agent.Status,
	).Scan(&agent.ID, &agent.CurrentLoad, &agent.CreatedAt, &agent.UpdatedAt)
}

func (r *agentRepository) Update(ctx context.Context, agent *domain.Agent) error {
	const query = `
        UPDATE agents
        SET name=$1, email=$2, role=$3, level=$4, categories=$5, capacity=$6, updated_at=NOW()
        WHERE id=$7`
	cmd, err := r.pool.Exec(ctx, query,
		agent.Name,
		agent.Email,
		agent.Role,
		int(agent.Level),
		agent.Categories,
		agent.Capacity,
		agent.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *agentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE id=$1`
	var agent domain.Agent
	if err := scanAgent(r.pool.QueryRow(ctx, query, id), &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *agentRepository) List(ctx context.Context, filter AgentFilter) ([]domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents`
	args := []any{}
	clauses := []string{}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Level != nil {
		args = append(args, int(*filter.Level))
		clauses = append(clauses, fmt.Sprintf("level=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY created_at ASC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAgents(rows)
}

func (r *agentRepository) ListCandidates(ctx context.Context, filter CandidateFilter) ([]domain.Agent, error) {
	query := `SELECT ` + agentColumns + `
        FROM agents
        WHERE role = 'AGENT' AND status IN ('ACTIVE','BUSY') AND current_load < capacity`
	args := []any{}

	if filter.Category != nil {
		args = append(args, *filter.Category)
		query += fmt.Sprintf(" AND $%d = ANY(categories)", len(args))
	}
	if filter.Level != nil {
		args = append(args, int(*filter.Level))
		query += fmt.Sprintf(" AND level = $%d", len(args))
	}
	if filter.ExcludeID != nil {
		args = append(args, *filter.ExcludeID)
		query += fmt.Sprintf(" AND id <> $%d", len(args))
	}

	query += " ORDER BY current_load ASC, last_assigned_at ASC NULLS FIRST"
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAgents(rows)
}

func (r *agentRepository) FindManager(ctx context.Context) (*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE role='MANAGER' ORDER BY created_at ASC LIMIT 1`
	var agent domain.Agent
	if err := scanAgent(r.pool.QueryRow(ctx, query), &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

// ReleaseLoad decrements the load floored at zero and repairs a BUSY agent
// back to ACTIVE once under capacity, all in one statement.
func (r *agentRepository) ReleaseLoad(ctx context.Context, id string) error {
	const query = `
        UPDATE agents
        SET current_load = GREATEST(current_load - 1, 0),
            status = CASE
                WHEN status = 'BUSY' AND GREATEST(current_load - 1, 0) < capacity THEN 'ACTIVE'
                ELSE status
            END,
            updated_at = NOW()
        WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *agentRepository) UpdateCategories(ctx context.Context, id string, categories []string) error {
	const query = `UPDATE agents SET categories=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, categories, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SetAvailability toggles UNAVAILABLE on and off. Re-enabling derives the
// status from the current load so the cached view cannot drift.
func (r *agentRepository) SetAvailability(ctx context.Context, id string, available bool) error {
	const query = `
        UPDATE agents
        SET status = CASE
                WHEN NOT $2 THEN 'UNAVAILABLE'
                WHEN current_load >= capacity THEN 'BUSY'
                ELSE 'ACTIVE'
            END,
            updated_at = NOW()
        WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id, available)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanAgent(row ticketScanner, agent *domain.Agent) error {
	var level int
	if err := row.Scan(
		&agent.ID,
		&agent.Name,
		&agent.Email,
		&agent.Role,
		&level,
		&agent.Categories,
		&agent.CurrentLoad,
		&agent.Capacity,
		&agent.Status,
		&agent.LastAssignedAt,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	); err != nil {
		return err
	}
	agent.Level = domain.AgentLevel(level)
	return nil
}

func scanAgents(rows pgx.Rows) ([]domain.Agent, error) {
	var result []domain.Agent
	for rows.Next() {
		var agent domain.Agent
		if err := scanAgent(rows, &agent); err != nil {
			return nil, err
		}
		result = append(result, agent)
	}
	return result, rows.Err()
}
