package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-routing/internal/domain"
	"github.com/spec-kit/helpdesk-routing/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-routing/pkg/util"
)

// AgentService manages the agent directory and capacity reconciliation.
type AgentService struct {
	agents repository.AgentRepository
	logger *zap.Logger
}

// NewAgentService creates the service.
func NewAgentService(agents repository.AgentRepository, logger *zap.Logger) *AgentService {
	return &AgentService{agents: agents, logger: logger}
}

// AgentCreateInput describes agent creation payload.
type AgentCreateInput struct {
	Name       string
	Email      string
	Role       domain.AgentRole
	Level      domain.AgentLevel
	Categories []string
	Capacity   int
}

// CreateAgent registers a new agent. New agents start ACTIVE with zero
// load; status is never accepted from the caller.
func (s *AgentService) CreateAgent(ctx context.Context, input AgentCreateInput) (*domain.Agent, error) {
	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.Email) == "" {
		return nil, apperrors.NewValidationError("name and email required", nil)
	}
	switch input.Role {
	case domain.AgentRoleAgent, domain.AgentRoleManager, domain.AgentRoleAdmin:
	default:
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": string(input.Role)})
	}
	if input.Role == domain.AgentRoleAgent {
		if input.Level < domain.AgentLevelSenior || input.Level > domain.AgentLevelJunior {
			return nil, apperrors.NewValidationError("agent level must be 1-3", map[string]any{"level": int(input.Level)})
		}
	}
	capacity := input.Capacity
	if capacity <= 0 {
		capacity = 10
	}

	agent := &domain.Agent{
		Name:       input.Name,
		Email:      input.Email,
		Role:       input.Role,
		Level:      input.Level,
		Categories: input.Categories,
		Capacity:   capacity,
		Status:     domain.AgentStatusActive,
	}
	if err := s.agents.Create(ctx, agent); err != nil {
		return nil, apperrors.MapError(err)
	}
	return agent, nil
}

// GetAgent fetches one agent.
func (s *AgentService) GetAgent(ctx context.Context, id string) (*domain.Agent, error) {
	agent, err := s.agents.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("agent", map[string]any{"agent_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return agent, nil
}

// ListAgents returns agents matching the filter.
func (s *AgentService) ListAgents(ctx context.Context, filter repository.AgentFilter) ([]domain.Agent, error) {
	agents, err := s.agents.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return agents, nil
}

// UpdateSkills replaces an agent's category expertise tags.
func (s *AgentService) UpdateSkills(ctx context.Context, id string, categories []string) error {
	if err := s.agents.UpdateCategories(ctx, id, categories); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("agent", map[string]any{"agent_id": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// SetAvailability toggles an agent in or out of the routing pool.
func (s *AgentService) SetAvailability(ctx context.Context, id string, available bool) error {
	if err := s.agents.SetAvailability(ctx, id, available); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("agent", map[string]any{"agent_id": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// ReleaseLoad frees one capacity slot when a ticket the agent held reaches
// RESOLVED or CLOSED. The decrement floors at zero and a BUSY agent with
// spare capacity is repaired to ACTIVE in the same statement; the only
// illegal state, BUSY under capacity, cannot persist past this call.
func (s *AgentService) ReleaseLoad(ctx context.Context, agentID string) error {
	if err := s.agents.ReleaseLoad(ctx, agentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("agent", map[string]any{"agent_id": agentID})
		}
		return apperrors.MapError(err)
	}
	s.logger.Debug("agent load released", zap.String("agent_id", agentID))
	return nil
}
