package domain

import "time"

// AgentRole enumerates internal operator roles.
type AgentRole string

const (
	AgentRoleAgent   AgentRole = "AGENT"
	AgentRoleManager AgentRole = "MANAGER"
	AgentRoleAdmin   AgentRole = "ADMIN"
)

// AgentStatus reflects an agent's routing eligibility. BUSY agents are at
// or over capacity but remain counted for overflow; UNAVAILABLE agents are
// never candidates.
type AgentStatus string

const (
	AgentStatusActive      AgentStatus = "ACTIVE"
	AgentStatusBusy        AgentStatus = "BUSY"
	AgentStatusUnavailable AgentStatus = "UNAVAILABLE"
)

// AgentLevel is the ordinal seniority tier matched against escalation
// ladder rungs. Level 1 handles the most critical tier.
type AgentLevel int

const (
	AgentLevelSenior  AgentLevel = 1
	AgentLevelRegular AgentLevel = 2
	AgentLevelJunior  AgentLevel = 3
)

// Agent models a support responder in the routing pool.
//
// Status is a materialized view of CurrentLoad vs Capacity. It is only
// ever written in the same statement as a load change; it must never be
// settable independently.
type Agent struct {
	ID             string
	Name           string
	Email          string
	Role           AgentRole
	Level          AgentLevel
	Categories     []string
	CurrentLoad    int
	Capacity       int
	Status         AgentStatus
	LastAssignedAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AtCapacity reports whether the agent can take no further tickets.
func (a *Agent) AtCapacity() bool {
	return a.CurrentLoad >= a.Capacity
}

// HandlesCategory reports whether the agent's expertise covers a category.
func (a *Agent) HandlesCategory(category string) bool {
	for _, c := range a.Categories {
		if c == category {
			return true
		}
	}
	return false
}
