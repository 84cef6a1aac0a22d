package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLadderNext(t *testing.T) {
	ladder := Ladder{AgentLevelSenior, AgentLevelRegular, AgentLevelJunior}

	cases := []struct {
		name      string
		count     int
		wantLevel AgentLevel
		wantOK    bool
	}{
		{"first breach", 0, AgentLevelSenior, true},
		{"second breach", 1, AgentLevelRegular, true},
		{"third breach", 2, AgentLevelJunior, true},
		{"exhausted", 3, 0, false},
		{"well past the end", 10, 0, false},
		{"negative count", -1, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			level, ok := ladder.Next(tc.count)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.wantLevel, level)
		})
	}
}

func TestLadderNextEmpty(t *testing.T) {
	_, ok := Ladder{}.Next(0)
	assert.False(t, ok)
}

func TestDefaultSLARules(t *testing.T) {
	rules := DefaultSLARules()
	require.Len(t, rules, 3)

	urgent := rules[UrgencyUrgent]
	assert.Equal(t, 2, urgent.ResolutionHours)
	assert.Equal(t, Ladder{AgentLevelSenior, AgentLevelRegular, AgentLevelJunior}, urgent.Ladder)

	moderate := rules[UrgencyModerate]
	assert.Equal(t, 8, moderate.ResolutionHours)
	assert.Equal(t, Ladder{AgentLevelRegular, AgentLevelJunior, AgentLevelSenior}, moderate.Ladder)

	mild := rules[UrgencyMild]
	assert.Equal(t, 24, mild.ResolutionHours)
	assert.Equal(t, Ladder{AgentLevelJunior, AgentLevelRegular, AgentLevelSenior}, mild.Ladder)
}

func TestResolutionBudget(t *testing.T) {
	rule := SLARule{ResolutionHours: 8}
	assert.Equal(t, 8*time.Hour, rule.ResolutionBudget())
}

func TestFallbackSLARule(t *testing.T) {
	rule := FallbackSLARule(UrgencyUrgent)
	assert.Equal(t, DefaultResolutionHours, rule.ResolutionHours)
	assert.NotEmpty(t, rule.Ladder)
}

func TestTicketStatusIsTerminal(t *testing.T) {
	assert.True(t, TicketStatusResolved.IsTerminal())
	assert.True(t, TicketStatusClosed.IsTerminal())
	assert.False(t, TicketStatusOpen.IsTerminal())
	assert.False(t, TicketStatusEscalated.IsTerminal())
}

func TestUrgencyValid(t *testing.T) {
	assert.True(t, UrgencyUrgent.Valid())
	assert.True(t, UrgencyMild.Valid())
	assert.False(t, Urgency(0).Valid())
	assert.False(t, Urgency(4).Valid())
}
