package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-routing/internal/domain"
)

// SaveSLARuleRequest payload.
type SaveSLARuleRequest struct {
	Urgency         int   `json:"urgency"`
	ResponseHours   int   `json:"response_hours"`
	ResolutionHours int   `json:"resolution_hours"`
	WarningHours    int   `json:"warning_hours"`
	Ladder          []int `json:"ladder"`
}

// SLARuleResponse representation.
type SLARuleResponse struct {
	ID              string    `json:"id"`
	Urgency         int       `json:"urgency"`
	ResponseHours   int       `json:"response_hours"`
	ResolutionHours int       `json:"resolution_hours"`
	WarningHours    int       `json:"warning_hours"`
	Ladder          []int     `json:"ladder"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NotificationResponse representation.
type NotificationResponse struct {
	ID        string     `json:"id"`
	AgentID   string     `json:"agent_id"`
	TicketID  string     `json:"ticket_id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// FromSLARule maps a domain rule.
func FromSLARule(rule *domain.SLARule) SLARuleResponse {
	ladder := make([]int, 0, len(rule.Ladder))
	for _, level := range rule.Ladder {
		ladder = append(ladder, int(level))
	}
	return SLARuleResponse{
		ID:              rule.ID,
		Urgency:         int(rule.Urgency),
		ResponseHours:   rule.ResponseHours,
		ResolutionHours: rule.ResolutionHours,
		WarningHours:    rule.WarningHours,
		Ladder:          ladder,
		CreatedAt:       rule.CreatedAt,
		UpdatedAt:       rule.UpdatedAt,
	}
}

// FromNotification maps a domain notification.
func FromNotification(notification *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        notification.ID,
		AgentID:   notification.AgentID,
		TicketID:  notification.TicketID,
		Type:      string(notification.Type),
		Title:     notification.Title,
		Message:   notification.Message,
		ReadAt:    notification.ReadAt,
		CreatedAt: notification.CreatedAt,
	}
}
