package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-routing/internal/domain"
)

// SLARuleRepository stores the per-urgency rule table.
type SLARuleRepository interface {
	GetByUrgency(ctx context.Context, urgency domain.Urgency) (*domain.SLARule, error)
	List(ctx context.Context) ([]domain.SLARule, error)
	Upsert(ctx context.Context, rule *domain.SLARule) error
	Delete(ctx context.Context, urgency domain.Urgency) error
}

type slaRuleRepository struct {
	pool *pgxpool.Pool
}

// NewSLARuleRepository instantiates the repository.
func NewSLARuleRepository(pool *pgxpool.Pool) SLARuleRepository {
	return &slaRuleRepository{pool: pool}
}

func (r *slaRuleRepository) GetByUrgency(ctx context.Context, urgency domain.Urgency) (*domain.SLARule, error) {
	const query = `
        SELECT id, urgency, response_hours, resolution_hours, warning_hours, ladder, created_at, updated_at
        FROM sla_rules WHERE urgency=$1`
	var rule domain.SLARule
	var urgencyVal int
	var ladder []int32
	if err := r.pool.QueryRow(ctx, query, int(urgency)).Scan(
		&rule.ID,
		&urgencyVal,
		&rule.ResponseHours,
		&rule.ResolutionHours,
		&rule.WarningHours,
		&ladder,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rule.Urgency = domain.Urgency(urgencyVal)
	rule.Ladder = toLadder(ladder)
	return &rule, nil
}

func (r *slaRuleRepository) List(ctx context.Context) ([]domain.SLARule, error) {
	const query = `
        SELECT id, urgency, response_hours, resolution_hours, warning_hours, ladder, created_at, updated_at
        FROM sla_rules ORDER BY urgency ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLARule
	for rows.Next() {
		var rule domain.SLARule
		var urgencyVal int
		var ladder []int32
		if err := rows.Scan(
			&rule.ID,
			&urgencyVal,
			&rule.ResponseHours,
			&rule.ResolutionHours,
			&rule.WarningHours,
			&ladder,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		); err != nil {
			return nil, err
		}
		rule.Urgency = domain.Urgency(urgencyVal)
		rule.Ladder = toLadder(ladder)
		result = append(result, rule)
	}
	return result, rows.Err()
}

func (r *slaRuleRepository) Upsert(ctx context.Context, rule *domain.SLARule) error {
	const query = `
        INSERT INTO sla_rules (urgency, response_hours, resolution_hours, warning_hours, ladder)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (urgency) DO UPDATE SET
            response_hours=EXCLUDED.response_hours,
            resolution_hours=EXCLUDED.resolution_hours,
            warning_hours=EXCLUDED.warning_hours,
            ladder=EXCLUDED.ladder,
            updated_at=NOW()
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		int(rule.Urgency),
		rule.ResponseHours,
		rule.ResolutionHours,
		rule.WarningHours,
		fromLadder(rule.Ladder),
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
}

func (r *slaRuleRepository) Delete(ctx context.Context, urgency domain.Urgency) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM sla_rules WHERE urgency=$1`, int(urgency))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func toLadder(levels []int32) domain.Ladder {
	ladder := make(domain.Ladder, 0, len(levels))
	for _, level := range levels {
		ladder = append(ladder, domain.AgentLevel(level))
	}
	return ladder
}

func fromLadder(ladder domain.Ladder) []int32 {
	levels := make([]int32, 0, len(ladder))
	for _, level := range ladder {
		levels = append(levels, int32(level))
	}
	return levels
}
