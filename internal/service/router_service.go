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

// RouterService decides which agent handles a ticket and books the
// assignment atomically against ticket and agent state.
type RouterService struct {
	tickets       repository.TicketRepository
	agents        repository.AgentRepository
	assignments   repository.AssignmentRepository
	timeline      repository.TimelineRepository
	notifications repository.NotificationRepository
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
	logger        *zap.Logger

	// releaseOnEscalation frees the previous assignee's slot when a
	// reassignment moves the ticket. Off by default; the source system
	// leaked the slot and the leak-preserving mode stays the default.
	releaseOnEscalation bool
}

// RouterDependencies bundles repositories for the router.
type RouterDependencies struct {
	TicketRepo          repository.TicketRepository
	AgentRepo           repository.AgentRepository
	AssignmentRepo      repository.AssignmentRepository
	TimelineRepo        repository.TimelineRepository
	NotificationRepo    repository.NotificationRepository
	Dispatcher          events.Dispatcher
	Metrics             *observability.Metrics
	Logger              *zap.Logger
	ReleaseOnEscalation bool
}

// NewRouterService creates the service.
func NewRouterService(deps RouterDependencies) *RouterService {
	return &RouterService{
		tickets:             deps.TicketRepo,
		agents:              deps.AgentRepo,
		assignments:         deps.AssignmentRepo,
		timeline:            deps.TimelineRepo,
		notifications:       deps.NotificationRepo,
		dispatcher:          deps.Dispatcher,
		metrics:             deps.Metrics,
		logger:              deps.Logger,
		releaseOnEscalation: deps.ReleaseOnEscalation,
	}
}

// Assign selects an agent for an unassigned ticket using a two-phase
// candidate search: category specialists first, then any agent. Returns
// nil without error when no agent has capacity; the ticket stays OPEN and
// waits for manual intervention or a later sweep retry.
func (s *RouterService) Assign(ctx context.Context, ticketID string) (*string, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if ticket.AssignedAgentID != nil {
		return nil, apperrors.NewConflict("ticket already assigned", map[string]any{"ticket_id": ticketID})
	}
	if ticket.Status.IsTerminal() {
		return nil, apperrors.NewConflict("ticket no longer active", map[string]any{"ticket_id": ticketID})
	}

	selected, categoryMatch, err := s.selectCandidate(ctx, ticket)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if selected == nil {
		s.metrics.RecordRouting(observability.CounterUnassigned)
		s.logger.Info("no agent capacity for ticket",
			zap.String("ticket_id", ticket.ID),
			zap.String("category", ticket.Category))
		return nil, nil
	}

	now := time.Now().UTC()
	err = s.assignments.Commit(ctx, repository.AssignmentCommit{
		TicketID:          ticket.ID,
		AgentID:           selected.ID,
		NewStatus:         domain.TicketStatusAssigned,
		RequireUnassigned: true,
		BumpLoad:          true,
		Now:               now,
	})
	if err != nil {
		if errors.Is(err, repository.ErrStale) {
			s.metrics.RecordRouting(observability.CounterStaleWrites)
			return nil, apperrors.NewStaleWrite("ticket", map[string]any{"ticket_id": ticket.ID})
		}
		return nil, apperrors.MapError(err)
	}

	s.metrics.RecordRouting(observability.CounterAssignments)
	if !categoryMatch {
		s.metrics.RecordRouting(observability.CounterFallbackMatches)
	}
	s.recordAssignment(ctx, ticket, selected, categoryMatch)
	return &selected.ID, nil
}

// Reassign moves a ticket to an agent of the given level during
// escalation. The previous assignee is excluded from the candidate pool
// and keeps their capacity slot unless release-on-escalation is enabled.
// Returns nil when no agent of that level has capacity.
func (s *RouterService) Reassign(ctx context.Context, ticket *domain.Ticket, level domain.AgentLevel) (*domain.Agent, error) {
	candidates, err := s.agents.ListCandidates(ctx, repository.CandidateFilter{
		Level:     &level,
		ExcludeID: ticket.AssignedAgentID,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	selected := candidates[0]

	commit := repository.AssignmentCommit{
		TicketID:  ticket.ID,
		AgentID:   selected.ID,
		NewStatus: domain.TicketStatusEscalated,
		BumpLoad:  true,
		Now:       time.Now().UTC(),
	}
	if s.releaseOnEscalation {
		commit.ReleaseAgentID = ticket.AssignedAgentID
	}
	if err := s.assignments.Commit(ctx, commit); err != nil {
		if errors.Is(err, repository.ErrStale) {
			s.metrics.RecordRouting(observability.CounterStaleWrites)
			return nil, apperrors.NewStaleWrite("ticket", map[string]any{"ticket_id": ticket.ID})
		}
		return nil, apperrors.MapError(err)
	}

	s.notifyEscalation(ctx, ticket, &selected)
	return &selected, nil
}

// AssignToManager hands a ticket past the ladder to the first manager.
// Managers sit outside capacity modeling: no load check, no load bump.
func (s *RouterService) AssignToManager(ctx context.Context, ticket *domain.Ticket) (*domain.Agent, error) {
	manager, err := s.agents.FindManager(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.MapError(err)
	}

	err = s.assignments.Commit(ctx, repository.AssignmentCommit{
		TicketID:  ticket.ID,
		AgentID:   manager.ID,
		NewStatus: domain.TicketStatusEscalated,
		Now:       time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrStale) {
			s.metrics.RecordRouting(observability.CounterStaleWrites)
			return nil, apperrors.NewStaleWrite("ticket", map[string]any{"ticket_id": ticket.ID})
		}
		return nil, apperrors.MapError(err)
	}

	s.metrics.RecordRouting(observability.CounterManagerEscalations)
	if err := s.notifications.Create(ctx, &domain.Notification{
		AgentID:  manager.ID,
		TicketID: ticket.ID,
		Type:     domain.NotificationTicketEscalated,
		Title:    "Critical ticket escalated",
		Message:  fmt.Sprintf("Ticket #%s has breached SLA and been escalated to management", shortID(ticket.ID)),
	}); err != nil {
		s.logger.Warn("manager notification failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
	return manager, nil
}

// selectCandidate runs the two-phase search. Repository ordering
// (load asc, last_assigned asc) is the deterministic tie-break, so the
// first row is always the winner.
func (s *RouterService) selectCandidate(ctx context.Context, ticket *domain.Ticket) (*domain.Agent, bool, error) {
	if ticket.Category != "" {
		candidates, err := s.agents.ListCandidates(ctx, repository.CandidateFilter{Category: &ticket.Category})
		if err != nil {
			return nil, false, err
		}
		if len(candidates) > 0 {
			return &candidates[0], true, nil
		}
	}

	candidates, err := s.agents.ListCandidates(ctx, repository.CandidateFilter{})
	if err != nil {
		return nil, false, err
	}
	if len(candidates) == 0 {
		return nil, false, nil
	}
	return &candidates[0], false, nil
}

// recordAssignment writes the audit trail and agent notification. A
// committed assignment is never rolled back because the audit sink is
// unavailable; failures are logged and left to the sink's owner.
func (s *RouterService) recordAssignment(ctx context.Context, ticket *domain.Ticket, agent *domain.Agent, categoryMatch bool) {
	entry := &domain.TimelineEntry{
		TicketID:    ticket.ID,
		ActorID:     agent.ID,
		Action:      domain.TimelineActionAssigned,
		Description: "Ticket assigned to agent via load balancing",
		Metadata: map[string]any{
			"assignment_method": "load_balanced",
			"category_match":    categoryMatch,
		},
	}
	if err := s.timeline.Append(ctx, entry); err != nil {
		s.logger.Warn("timeline append failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}

	notification := &domain.Notification{
		AgentID:  agent.ID,
		TicketID: ticket.ID,
		Type:     domain.NotificationTicketAssigned,
		Title:    "New ticket assigned",
		Message:  fmt.Sprintf("You have been assigned a new ticket: %s", ticket.Title),
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		s.logger.Warn("assignment notification failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketAssigned,
		TicketID:  ticket.ID,
		ActorID:   agent.ID,
		Timestamp: time.Now().UTC(),
		Payload: events.TicketAssignedPayload{
			AgentID:       agent.ID,
			CategoryMatch: categoryMatch,
		},
	})
}

func (s *RouterService) notifyEscalation(ctx context.Context, ticket *domain.Ticket, agent *domain.Agent) {
	notification := &domain.Notification{
		AgentID:  agent.ID,
		TicketID: ticket.ID,
		Type:     domain.NotificationTicketEscalated,
		Title:    "Escalated ticket assigned",
		Message:  fmt.Sprintf("Urgent ticket #%s has been escalated to you", shortID(ticket.ID)),
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		s.logger.Warn("escalation notification failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
}

func (s *RouterService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
