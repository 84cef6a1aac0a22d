package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen          TicketStatus = "OPEN"
	TicketStatusAssigned      TicketStatus = "ASSIGNED"
	TicketStatusInProgress    TicketStatus = "IN_PROGRESS"
	TicketStatusEscalated     TicketStatus = "ESCALATED"
	TicketStatusPendingClient TicketStatus = "PENDING_CLIENT"
	TicketStatusResolved      TicketStatus = "RESOLVED"
	TicketStatusClosed        TicketStatus = "CLOSED"
)

// TerminalStatuses are the states excluded from SLA sweeps.
var TerminalStatuses = []TicketStatus{TicketStatusResolved, TicketStatusClosed}

// IsTerminal reports whether a ticket has left the active lifecycle.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// Urgency is the ordinal priority tier of a ticket. Lower value means
// higher urgency: an urgent ticket carries the tightest SLA budget.
type Urgency int

const (
	UrgencyUrgent   Urgency = 1
	UrgencyModerate Urgency = 2
	UrgencyMild     Urgency = 3
)

// Valid reports whether the urgency is a known tier.
func (u Urgency) Valid() bool {
	return u >= UrgencyUrgent && u <= UrgencyMild
}

func (u Urgency) String() string {
	switch u {
	case UrgencyUrgent:
		return "urgent"
	case UrgencyModerate:
		return "moderate"
	case UrgencyMild:
		return "mild"
	}
	return "unknown"
}

// Ticket is the aggregate for support requests routed by the engine.
type Ticket struct {
	ID              string
	RequesterID     string
	Title           string
	Description     string
	Category        string
	RequiredSkills  []string
	Urgency         Urgency
	Status          TicketStatus
	AssignedAgentID *string
	SLADueDate      time.Time
	SLABreached     bool
	EscalationCount int
	EscalatedAt     *time.Time
	ResolvedAt      *time.Time
	ClosedAt        *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
