package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-routing/internal/domain"
	"github.com/spec-kit/helpdesk-routing/internal/events"
	"github.com/spec-kit/helpdesk-routing/internal/observability"
	"github.com/spec-kit/helpdesk-routing/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-routing/pkg/util"
)

// TicketLocker guards per-ticket critical sections during the sweep so
// concurrent ticks cannot double-handle the same ticket.
type TicketLocker interface {
	Acquire(ctx context.Context, ticketID string) (bool, error)
	Release(ctx context.Context, ticketID string) error
}

// SLAService runs the recurring breach/warning sweep and manual
// escalation. Every sub-operation re-checks its guard condition before
// acting, so a crashed or repeated tick never double-escalates or
// double-warns.
type SLAService struct {
	tickets       repository.TicketRepository
	notifications repository.NotificationRepository
	timeline      repository.TimelineRepository
	rules         *RuleService
	router        *RouterService
	locker        TicketLocker
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
	logger        *zap.Logger
	warningWindow time.Duration
}

// SLADependencies bundles collaborators for the SLA monitor.
type SLADependencies struct {
	TicketRepo       repository.TicketRepository
	NotificationRepo repository.NotificationRepository
	TimelineRepo     repository.TimelineRepository
	Rules            *RuleService
	Router           *RouterService
	Locker           TicketLocker
	Dispatcher       events.Dispatcher
	Metrics          *observability.Metrics
	Logger           *zap.Logger
	WarningWindow    time.Duration
}

// NewSLAService creates the service.
func NewSLAService(deps SLADependencies) *SLAService {
	window := deps.WarningWindow
	if window <= 0 {
		window = time.Hour
	}
	return &SLAService{
		tickets:       deps.TicketRepo,
		notifications: deps.NotificationRepo,
		timeline:      deps.TimelineRepo,
		rules:         deps.Rules,
		router:        deps.Router,
		locker:        deps.Locker,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
		warningWindow: window,
	}
}

// Tick executes one sweep: escalate breached tickets, warn on tickets
// approaching their due date. Per-ticket failures are isolated and logged;
// only a failure of the sweep queries themselves aborts the tick.
func (s *SLAService) Tick(ctx context.Context, now time.Time) error {
	s.metrics.RecordRouting(observability.CounterSweeps)

	overdue, err := s.tickets.ListOverdue(ctx, now)
	if err != nil {
		return apperrors.MapError(err)
	}
	for i := range overdue {
		if err := s.handleBreach(ctx, &overdue[i], now); err != nil {
			s.logger.Error("breach handling failed",
				zap.String("ticket_id", overdue[i].ID), zap.Error(err))
		}
	}

	approaching, err := s.tickets.ListApproaching(ctx, now, s.warningWindow)
	if err != nil {
		return apperrors.MapError(err)
	}
	for i := range approaching {
		if err := s.handleWarning(ctx, &approaching[i]); err != nil {
			s.logger.Error("warning handling failed",
				zap.String("ticket_id", approaching[i].ID), zap.Error(err))
		}
	}
	return nil
}

// ManualEscalate pushes a ticket one rung up the ladder on explicit user
// action, regardless of remaining SLA time. The escalation count always
// grows by exactly 1.
func (s *SLAService) ManualEscalate(ctx context.Context, ticketID, actorID string) (bool, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return false, apperrors.MapError(err)
	}
	if ticket.Status.IsTerminal() {
		return false, apperrors.NewConflict("ticket no longer active", map[string]any{"ticket_id": ticketID})
	}

	now := time.Now().UTC()
	marked, err := s.tickets.MarkEscalated(ctx, ticketID, now)
	if err != nil {
		return false, apperrors.MapError(err)
	}
	if !marked {
		return false, apperrors.NewStaleWrite("ticket", map[string]any{"ticket_id": ticketID})
	}

	s.escalate(ctx, ticket, ticket.EscalationCount, "manual", actorID)

	entry := &domain.TimelineEntry{
		TicketID:    ticketID,
		ActorID:     actorID,
		Action:      domain.TimelineActionEscalated,
		Description: fmt.Sprintf("Ticket manually escalated (Level %d)", ticket.EscalationCount+1),
		Metadata:    map[string]any{"manual_escalation": true},
	}
	if err := s.timeline.Append(ctx, entry); err != nil {
		s.logger.Warn("timeline append failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}
	return true, nil
}

// handleBreach marks the breach and drives the escalation. The conditional
// MarkBreached is the idempotence guard: once the flag is set, repeated
// ticks over the same snapshot are no-ops.
func (s *SLAService) handleBreach(ctx context.Context, ticket *domain.Ticket, now time.Time) error {
	acquired, err := s.locker.Acquire(ctx, ticket.ID)
	if err != nil {
		return err
	}
	if !acquired {
		return nil
	}
	defer func() {
		if err := s.locker.Release(ctx, ticket.ID); err != nil {
			s.logger.Warn("lock release failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}()

	marked, err := s.tickets.MarkBreached(ctx, ticket.ID, now)
	if err != nil {
		return err
	}
	if !marked {
		// Another tick already handled this breach.
		return nil
	}

	s.metrics.RecordRouting(observability.CounterEscalations)
	s.escalate(ctx, ticket, ticket.EscalationCount, "sla_breach", domain.SystemActorID)

	entry := &domain.TimelineEntry{
		TicketID:    ticket.ID,
		ActorID:     domain.SystemActorID,
		Action:      domain.TimelineActionEscalated,
		Description: fmt.Sprintf("Ticket escalated due to SLA breach (Level %d)", ticket.EscalationCount+1),
		Metadata:    map[string]any{"sla_breached": true},
	}
	if err := s.timeline.Append(ctx, entry); err != nil {
		s.logger.Warn("timeline append failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
	return nil
}

// escalate consults the ladder for the count taken before the increment
// and reassigns. Past ladder exhaustion, or when the target level has no
// capacity, the ticket goes to a manager; repeated breaches beyond the
// ladder keep resolving to the manager as an absorbing state.
func (s *SLAService) escalate(ctx context.Context, ticket *domain.Ticket, escalationCount int, origin, actorID string) {
	rule := s.rules.RuleFor(ctx, ticket.Urgency)

	var assigned *domain.Agent
	var targetLevel *int
	toManager := false

	if level, ok := rule.Ladder.Next(escalationCount); ok {
		levelVal := int(level)
		targetLevel = &levelVal
		agent, err := s.router.Reassign(ctx, ticket, level)
		if err != nil {
			s.logger.Error("reassignment failed",
				zap.String("ticket_id", ticket.ID), zap.Int("level", levelVal), zap.Error(err))
			return
		}
		assigned = agent
	}
	if assigned == nil {
		toManager = true
		manager, err := s.router.AssignToManager(ctx, ticket)
		if err != nil {
			s.logger.Error("manager escalation failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
			return
		}
		if manager == nil {
			s.logger.Warn("no manager available for escalation", zap.String("ticket_id", ticket.ID))
		}
		assigned = manager
	}

	payload := events.TicketEscalatedPayload{
		TargetLevel:     targetLevel,
		ToManager:       toManager,
		EscalationCount: escalationCount + 1,
		Urgency:         ticket.Urgency,
		Origin:          origin,
	}
	if assigned != nil {
		payload.AgentID = &assigned.ID
	}
	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketEscalated,
		TicketID:  ticket.ID,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
}

// handleWarning emits at most one warning per (agent, ticket). The lock
// makes the check-then-insert a critical section; the partial unique index
// on warning notifications is the storage-level backstop.
func (s *SLAService) handleWarning(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.AssignedAgentID == nil {
		return nil
	}
	agentID := *ticket.AssignedAgentID

	acquired, err := s.locker.Acquire(ctx, ticket.ID)
	if err != nil {
		return err
	}
	if !acquired {
		return nil
	}
	defer func() {
		if err := s.locker.Release(ctx, ticket.ID); err != nil {
			s.logger.Warn("lock release failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}()

	exists, err := s.notifications.Exists(ctx, agentID, ticket.ID, domain.NotificationSLAWarning)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	notification := &domain.Notification{
		AgentID:  agentID,
		TicketID: ticket.ID,
		Type:     domain.NotificationSLAWarning,
		Title:    "SLA Warning",
		Message:  fmt.Sprintf("Ticket #%s is approaching SLA breach", shortID(ticket.ID)),
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		return err
	}

	s.metrics.RecordRouting(observability.CounterWarnings)
	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventSLAWarning,
		TicketID:  ticket.ID,
		ActorID:   domain.SystemActorID,
		Timestamp: time.Now().UTC(),
		Payload: events.SLAWarningPayload{
			AgentID:    agentID,
			SLADueDate: ticket.SLADueDate,
		},
	})
	return nil
}

func (s *SLAService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
}
