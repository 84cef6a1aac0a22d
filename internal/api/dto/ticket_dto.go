package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-routing/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	RequesterID    string   `json:"requester_id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	RequiredSkills []string `json:"required_skills"`
	Urgency        int      `json:"urgency"`
}

// CloseTicketRequest payload.
type CloseTicketRequest struct {
	Status  string `json:"status"`
	ActorID string `json:"actor_id"`
}

// EscalateTicketRequest payload.
type EscalateTicketRequest struct {
	ActorID string `json:"actor_id"`
}

// TicketResponse representation.
type TicketResponse struct {
	ID              string     `json:"id"`
	RequesterID     string     `json:"requester_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Category        string     `json:"category"`
	RequiredSkills  []string   `json:"required_skills"`
	Urgency         int        `json:"urgency"`
	Status          string     `json:"status"`
	AssignedAgentID *string    `json:"assigned_agent_id"`
	SLADueDate      time.Time  `json:"sla_due_date"`
	SLABreached     bool       `json:"sla_breached"`
	EscalationCount int        `json:"escalation_count"`
	EscalatedAt     *time.Time `json:"escalated_at,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TimelineEntryResponse representation.
type TimelineEntryResponse struct {
	ID          string         `json:"id"`
	TicketID    string         `json:"ticket_id"`
	ActorID     string         `json:"actor_id"`
	Action      string         `json:"action"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketResponse
	Timeline []TimelineEntryResponse `json:"timeline"`
}

// FromTicket maps a domain ticket.
func FromTicket(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:              ticket.ID,
		RequesterID:     ticket.RequesterID,
		Title:           ticket.Title,
		Description:     ticket.Description,
		Category:        ticket.Category,
		RequiredSkills:  ticket.RequiredSkills,
		Urgency:         int(ticket.Urgency),
		Status:          string(ticket.Status),
		AssignedAgentID: ticket.AssignedAgentID,
		SLADueDate:      ticket.SLADueDate,
		SLABreached:     ticket.SLABreached,
		EscalationCount: ticket.EscalationCount,
		EscalatedAt:     ticket.EscalatedAt,
		ResolvedAt:      ticket.ResolvedAt,
		ClosedAt:        ticket.ClosedAt,
		CreatedAt:       ticket.CreatedAt,
		UpdatedAt:       ticket.UpdatedAt,
	}
}

// FromTimeline maps domain timeline entries.
func FromTimeline(entries []domain.TimelineEntry) []TimelineEntryResponse {
	result := make([]TimelineEntryResponse, 0, len(entries))
	for _, entry := range entries {
		result = append(result, TimelineEntryResponse{
			ID:          entry.ID,
			TicketID:    entry.TicketID,
			ActorID:     entry.ActorID,
			Action:      string(entry.Action),
			Description: entry.Description,
			Metadata:    entry.Metadata,
			CreatedAt:   entry.CreatedAt,
		})
	}
	return result
}
