package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-routing/internal/domain"
	"github.com/spec-kit/helpdesk-routing/internal/events"
	"github.com/spec-kit/helpdesk-routing/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-routing/pkg/util"
)

// TicketService coordinates the intake and closure paths around the
// routing core: it stamps the SLA due date at creation, hands the ticket
// to the router, and releases agent capacity on closure.
type TicketService struct {
	tickets       repository.TicketRepository
	timeline      repository.TimelineRepository
	notifications repository.NotificationRepository
	rules         *RuleService
	router        *RouterService
	agentSvc      *AgentService
	dispatcher    events.Dispatcher
	logger        *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo       repository.TicketRepository
	TimelineRepo     repository.TimelineRepository
	NotificationRepo repository.NotificationRepository
	Rules            *RuleService
	Router           *RouterService
	Agents           *AgentService
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:       deps.TicketRepo,
		timeline:      deps.TimelineRepo,
		notifications: deps.NotificationRepo,
		rules:         deps.Rules,
		router:        deps.Router,
		agentSvc:      deps.Agents,
		dispatcher:    deps.Dispatcher,
		logger:        deps.Logger,
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	RequesterID    string
	Title          string
	Description    string
	Category       string
	RequiredSkills []string
	Urgency        domain.Urgency
}

// CreateTicket persists a new ticket with its SLA due date and routes it.
// A ticket that finds no agent stays OPEN; that is a valid outcome, not an
// error.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}
	if strings.TrimSpace(input.RequesterID) == "" {
		return nil, apperrors.NewValidationError("requester_id required", nil)
	}
	urgency := input.Urgency
	if urgency == 0 {
		urgency = domain.UrgencyMild
	}
	if !urgency.Valid() {
		return nil, apperrors.NewValidationError("unknown urgency", map[string]any{"urgency": int(urgency)})
	}

	rule := s.rules.RuleFor(ctx, urgency)
	ticket := &domain.Ticket{
		RequesterID:    input.RequesterID,
		Title:          input.Title,
		Description:    input.Description,
		Category:       input.Category,
		RequiredSkills: input.RequiredSkills,
		Urgency:        urgency,
		Status:         domain.TicketStatusOpen,
		SLADueDate:     time.Now().UTC().Add(rule.ResolutionBudget()),
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	if _, err := s.router.Assign(ctx, ticket.ID); err != nil {
		// Routing failures leave the ticket OPEN for the next sweep or
		// manual intervention; intake itself has succeeded.
		s.logger.Warn("initial assignment failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}

	created, err := s.tickets.GetByID(ctx, ticket.ID)
	if err != nil {
		return ticket, nil
	}
	return created, nil
}

// GetTicket fetches one ticket with its timeline.
func (s *TicketService) GetTicket(ctx context.Context, id string) (*domain.Ticket, []domain.TimelineEntry, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, nil, apperrors.MapError(err)
	}
	entries, err := s.timeline.ListByTicket(ctx, id)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return ticket, entries, nil
}

// ListTickets returns tickets matching the filter.
func (s *TicketService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// CloseTicket moves a ticket to RESOLVED or CLOSED and releases the
// assignee's capacity slot. The conditional close serializes against a
// concurrent escalation: whichever transition lands first wins and the
// loser surfaces as a conflict.
func (s *TicketService) CloseTicket(ctx context.Context, ticketID string, status domain.TicketStatus, actorID string) error {
	if status != domain.TicketStatusResolved && status != domain.TicketStatusClosed {
		return apperrors.NewValidationError("status must be RESOLVED or CLOSED", map[string]any{"status": string(status)})
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return apperrors.MapError(err)
	}

	now := time.Now().UTC()
	closed, err := s.tickets.Close(ctx, ticketID, status, now)
	if err != nil {
		return apperrors.MapError(err)
	}
	if !closed {
		return apperrors.NewConflict("ticket already resolved or closed", map[string]any{"ticket_id": ticketID})
	}

	if ticket.AssignedAgentID != nil {
		if err := s.agentSvc.ReleaseLoad(ctx, *ticket.AssignedAgentID); err != nil {
			s.logger.Error("load release failed",
				zap.String("ticket_id", ticketID),
				zap.String("agent_id", *ticket.AssignedAgentID),
				zap.Error(err))
		}
	}

	entry := &domain.TimelineEntry{
		TicketID:    ticketID,
		ActorID:     actorID,
		Action:      domain.TimelineActionStatusChanged,
		Description: fmt.Sprintf("Ticket %s", strings.ToLower(string(status))),
		Metadata: map[string]any{
			"old_status": string(ticket.Status),
			"new_status": string(status),
		},
	}
	if err := s.timeline.Append(ctx, entry); err != nil {
		s.logger.Warn("timeline append failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}

	if ticket.AssignedAgentID != nil {
		notification := &domain.Notification{
			AgentID:  *ticket.AssignedAgentID,
			TicketID: ticketID,
			Type:     domain.NotificationTicketResolved,
			Title:    fmt.Sprintf("Ticket %s", strings.ToLower(string(status))),
			Message:  fmt.Sprintf("Ticket #%s has been %s", shortID(ticketID), strings.ToLower(string(status))),
		}
		if err := s.notifications.Create(ctx, notification); err != nil {
			s.logger.Warn("closure notification failed", zap.String("ticket_id", ticketID), zap.Error(err))
		}
	}

	if s.dispatcher != nil {
		event := events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventTicketClosed,
			TicketID:  ticketID,
			ActorID:   actorID,
			Timestamp: now,
			Payload: events.TicketClosedPayload{
				OldStatus: ticket.Status,
				NewStatus: status,
			},
		}
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("event publish failed", zap.String("event", string(event.Type)), zap.Error(err))
		}
	}
	return nil
}
