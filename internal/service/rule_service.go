package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-routing/internal/domain"
	"github.com/spec-kit/helpdesk-routing/internal/observability"
	"github.com/spec-kit/helpdesk-routing/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-routing/pkg/util"
)

// RuleService owns the SLA rule table: the sweep reads through RuleFor,
// administrators edit through the CRUD methods.
type RuleService struct {
	rules   repository.SLARuleRepository
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewRuleService creates the service.
func NewRuleService(rules repository.SLARuleRepository, metrics *observability.Metrics, logger *zap.Logger) *RuleService {
	return &RuleService{rules: rules, metrics: metrics, logger: logger}
}

// RuleFor returns the configured rule for an urgency tier. A missing rule
// is a configuration error: it is reported loudly and the fixed 24h
// default applied, so the sweep keeps running but operators see that an
// urgent tier may be running on a weakened budget.
func (s *RuleService) RuleFor(ctx context.Context, urgency domain.Urgency) domain.SLARule {
	rule, err := s.rules.GetByUrgency(ctx, urgency)
	if err == nil {
		return *rule
	}

	if errors.Is(err, pgx.ErrNoRows) {
		s.metrics.RecordRouting(observability.CounterMissingRules)
		s.logger.Error("no SLA rule configured for urgency; applying default window",
			zap.Stringer("urgency", urgency),
			zap.Int("default_resolution_hours", domain.DefaultResolutionHours))
	} else {
		s.logger.Error("SLA rule lookup failed; applying default window",
			zap.Stringer("urgency", urgency), zap.Error(err))
	}
	return domain.FallbackSLARule(urgency)
}

// Seed inserts the compiled-in defaults for any urgency tier that has no
// configured rule yet.
func (s *RuleService) Seed(ctx context.Context) error {
	existing, err := s.rules.List(ctx)
	if err != nil {
		return apperrors.MapError(err)
	}
	configured := make(map[domain.Urgency]bool, len(existing))
	for _, rule := range existing {
		configured[rule.Urgency] = true
	}
	for urgency, rule := range domain.DefaultSLARules() {
		if configured[urgency] {
			continue
		}
		seeded := rule
		if err := s.rules.Upsert(ctx, &seeded); err != nil {
			return apperrors.MapError(err)
		}
		s.logger.Info("seeded default SLA rule", zap.Stringer("urgency", urgency))
	}
	return nil
}

// List returns all configured rules.
func (s *RuleService) List(ctx context.Context) ([]domain.SLARule, error) {
	rules, err := s.rules.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return rules, nil
}

// Save validates and upserts a rule for an urgency tier.
func (s *RuleService) Save(ctx context.Context, rule *domain.SLARule) error {
	if !rule.Urgency.Valid() {
		return apperrors.NewValidationError("unknown urgency", map[string]any{"urgency": int(rule.Urgency)})
	}
	if rule.ResolutionHours <= 0 || rule.ResponseHours <= 0 || rule.WarningHours <= 0 {
		return apperrors.NewValidationError("time budgets must be positive", nil)
	}
	if len(rule.Ladder) == 0 {
		return apperrors.NewValidationError("escalation ladder required", nil)
	}
	for _, level := range rule.Ladder {
		if level < domain.AgentLevelSenior || level > domain.AgentLevelJunior {
			return apperrors.NewValidationError("ladder contains unknown agent level", map[string]any{"level": int(level)})
		}
	}
	if err := s.rules.Upsert(ctx, rule); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// Delete removes the rule for an urgency tier.
func (s *RuleService) Delete(ctx context.Context, urgency domain.Urgency) error {
	if err := s.rules.Delete(ctx, urgency); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("sla rule", map[string]any{"urgency": int(urgency)})
		}
		return apperrors.MapError(err)
	}
	return nil
}
