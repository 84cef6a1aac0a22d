package domain

import "time"

// Ladder is the ordered list of agent levels tried in turn as a ticket
// repeatedly breaches its SLA.
type Ladder []AgentLevel

// Next returns the target level for the given escalation count, taken
// before the count is incremented. The second return is false once the
// ladder is exhausted, at which point the caller escalates to a manager.
func (l Ladder) Next(escalationCount int) (AgentLevel, bool) {
	if escalationCount < 0 || escalationCount >= len(l) {
		return 0, false
	}
	return l[escalationCount], true
}

// SLARule maps an urgency tier to its time budgets and escalation ladder.
type SLARule struct {
	ID              string
	Urgency         Urgency
	ResponseHours   int
	ResolutionHours int
	WarningHours    int
	Ladder          Ladder
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ResolutionBudget returns the resolution window as a duration.
func (r *SLARule) ResolutionBudget() time.Duration {
	return time.Duration(r.ResolutionHours) * time.Hour
}

// DefaultResolutionHours is the fallback window applied when no rule is
// configured for an urgency tier. The fallback is reported to operators;
// it must never silently weaken an urgent ticket's SLA.
const DefaultResolutionHours = 24

// DefaultSLARules returns the compiled-in rule set. Urgent tickets ladder
// toward senior responders immediately; mild tickets start general and
// only consume senior capacity if still unresolved.
func DefaultSLARules() map[Urgency]SLARule {
	return map[Urgency]SLARule{
		UrgencyUrgent: {
			Urgency:         UrgencyUrgent,
			ResponseHours:   2,
			ResolutionHours: 2,
			WarningHours:    1,
			Ladder:          Ladder{AgentLevelSenior, AgentLevelRegular, AgentLevelJunior},
		},
		UrgencyModerate: {
			Urgency:         UrgencyModerate,
			ResponseHours:   8,
			ResolutionHours: 8,
			WarningHours:    4,
			Ladder:          Ladder{AgentLevelRegular, AgentLevelJunior, AgentLevelSenior},
		},
		UrgencyMild: {
			Urgency:         UrgencyMild,
			ResponseHours:   24,
			ResolutionHours: 24,
			WarningHours:    12,
			Ladder:          Ladder{AgentLevelJunior, AgentLevelRegular, AgentLevelSenior},
		},
	}
}

// FallbackSLARule is applied when an urgency has no configured rule.
func FallbackSLARule(urgency Urgency) SLARule {
	return SLARule{
		Urgency:         urgency,
		ResponseHours:   DefaultResolutionHours,
		ResolutionHours: DefaultResolutionHours,
		WarningHours:    DefaultResolutionHours / 2,
		Ladder:          Ladder{AgentLevelJunior, AgentLevelRegular, AgentLevelSenior},
	}
}
