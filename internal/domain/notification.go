package domain

import "time"

// NotificationType enumerates notification kinds delivered to agents.
type NotificationType string

const (
	NotificationTicketAssigned  NotificationType = "ticket_assigned"
	NotificationTicketEscalated NotificationType = "ticket_escalated"
	NotificationSLAWarning      NotificationType = "sla_warning"
	NotificationTicketResolved  NotificationType = "ticket_resolved"
)

// Notification is an append-only fact delivered to an agent. Warning-class
// notifications are deduplicated by (agent, ticket, type).
type Notification struct {
	ID        string
	AgentID   string
	TicketID  string
	Type      NotificationType
	Title     string
	Message   string
	ReadAt    *time.Time
	CreatedAt time.Time
}
