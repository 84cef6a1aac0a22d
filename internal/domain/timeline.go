package domain

import "time"

// TimelineAction captures what happened in an audit entry.
type TimelineAction string

const (
	TimelineActionAssigned      TimelineAction = "assigned"
	TimelineActionEscalated     TimelineAction = "escalated"
	TimelineActionStatusChanged TimelineAction = "status_changed"
	TimelineActionWarning       TimelineAction = "sla_warning"
)

// SystemActorID marks sweep-generated timeline entries.
const SystemActorID = "system"

// TimelineEntry is an immutable audit trail record. Entries are never
// mutated after creation.
type TimelineEntry struct {
	ID          string
	TicketID    string
	ActorID     string
	Action      TimelineAction
	Description string
	Metadata    map[string]any
	CreatedAt   time.Time
}
