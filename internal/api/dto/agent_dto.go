package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-routing/internal/domain"
)

// CreateAgentRequest payload.
type CreateAgentRequest struct {
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Role       string   `json:"role"`
	Level      int      `json:"level"`
	Categories []string `json:"categories"`
	Capacity   int      `json:"capacity"`
}

// UpdateSkillsRequest payload.
type UpdateSkillsRequest struct {
	Categories []string `json:"categories"`
}

// SetAvailabilityRequest payload.
type SetAvailabilityRequest struct {
	Available bool `json:"available"`
}

// AgentResponse representation.
type AgentResponse struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Role           string     `json:"role"`
	Level          int        `json:"level"`
	Categories     []string   `json:"categories"`
	CurrentLoad    int        `json:"current_load"`
	Capacity       int        `json:"capacity"`
	Status         string     `json:"status"`
	LastAssignedAt *time.Time `json:"last_assigned_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// FromAgent maps a domain agent.
func FromAgent(agent *domain.Agent) AgentResponse {
	return AgentResponse{
		ID:             agent.ID,
		Name:           agent.Name,
		Email:          agent.Email,
		Role:           string(agent.Role),
		Level:          int(agent.Level),
		Categories:     agent.Categories,
		CurrentLoad:    agent.CurrentLoad,
		Capacity:       agent.Capacity,
		Status:         string(agent.Status),
		LastAssignedAt: agent.LastAssignedAt,
		CreatedAt:      agent.CreatedAt,
		UpdatedAt:      agent.UpdatedAt,
	}
}
