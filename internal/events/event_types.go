package events

import (
	"time"

	"github.com/spec-kit/helpdesk-routing/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated   EventType = "ticket_created"
	EventTicketAssigned  EventType = "ticket_assigned"
	EventTicketEscalated EventType = "ticket_escalated"
	EventTicketClosed    EventType = "ticket_closed"
	EventSLAWarning      EventType = "sla_warning"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AgentID       string `json:"agent_id"`
	CategoryMatch bool   `json:"category_match"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	AgentID         *string        `json:"agent_id,omitempty"`
	TargetLevel     *int           `json:"target_level,omitempty"`
	ToManager       bool           `json:"to_manager"`
	EscalationCount int            `json:"escalation_count"`
	Urgency         domain.Urgency `json:"urgency"`
	Origin          string         `json:"origin"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// SLAWarningPayload payload.
type SLAWarningPayload struct {
	AgentID    string    `json:"agent_id"`
	SLADueDate time.Time `json:"sla_due_date"`
}
