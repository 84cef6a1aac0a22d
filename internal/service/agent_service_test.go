package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-routing/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-routing/pkg/util"
)

func TestCreateAgentDefaults(t *testing.T) {
	env := newTestEnv(false)

	agent, err := env.agents.CreateAgent(context.Background(), AgentCreateInput{
		Name:  "Dana",
		Email: "dana@example.com",
		Role:  domain.AgentRoleAgent,
		Level: domain.AgentLevelJunior,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, agent.Capacity)
	assert.Equal(t, 0, agent.CurrentLoad)
	assert.Equal(t, domain.AgentStatusActive, agent.Status)
}

func TestCreateAgentValidation(t *testing.T) {
	env := newTestEnv(false)
	ctx := context.Background()

	cases := []struct {
		name  string
		input AgentCreateInput
	}{
		{"missing name", AgentCreateInput{Email: "x@example.com", Role: domain.AgentRoleAgent, Level: domain.AgentLevelJunior}},
		{"unknown role", AgentCreateInput{Name: "X", Email: "x@example.com", Role: "INTERN"}},
		{"level out of range", AgentCreateInput{Name: "X", Email: "x@example.com", Role: domain.AgentRoleAgent, Level: 9}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.agents.CreateAgent(ctx, tc.input)
			require.Error(t, err)
			var domainErr *apperrors.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
		})
	}
}

func TestReleaseLoadRepairsBusyAgent(t *testing.T) {
	env := newTestEnv(false)

	agent := env.store.addAgent(domain.Agent{
		Name: "Busy", Email: "busy@example.com",
		Level: domain.AgentLevelRegular, Capacity: 2, CurrentLoad: 2,
		Status: domain.AgentStatusBusy,
	})

	require.NoError(t, env.agents.ReleaseLoad(context.Background(), agent.ID))

	stored := env.store.agents[agent.ID]
	assert.Equal(t, 1, stored.CurrentLoad)
	assert.Equal(t, domain.AgentStatusActive, stored.Status)
}

func TestReleaseLoadFloorsAtZero(t *testing.T) {
	env := newTestEnv(false)

	agent := env.store.addAgent(domain.Agent{
		Name: "Idle", Email: "idle@example.com",
		Level: domain.AgentLevelRegular, Capacity: 2,
	})

	require.NoError(t, env.agents.ReleaseLoad(context.Background(), agent.ID))
	assert.Equal(t, 0, env.store.agents[agent.ID].CurrentLoad)
}

func TestReleaseLoadUnknownAgent(t *testing.T) {
	env := newTestEnv(false)

	err := env.agents.ReleaseLoad(context.Background(), "missing")
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestSetAvailabilityDerivesStatusFromLoad(t *testing.T) {
	env := newTestEnv(false)
	ctx := context.Background()

	agent := env.store.addAgent(domain.Agent{
		Name: "Toggled", Email: "toggle@example.com",
		Level: domain.AgentLevelRegular, Capacity: 1, CurrentLoad: 1,
		Status: domain.AgentStatusBusy,
	})

	require.NoError(t, env.agents.SetAvailability(ctx, agent.ID, false))
	assert.Equal(t, domain.AgentStatusUnavailable, env.store.agents[agent.ID].Status)

	// Re-enabling an agent at capacity lands on BUSY, not ACTIVE.
	require.NoError(t, env.agents.SetAvailability(ctx, agent.ID, true))
	assert.Equal(t, domain.AgentStatusBusy, env.store.agents[agent.ID].Status)
}

func TestUpdateSkills(t *testing.T) {
	env := newTestEnv(false)

	agent := env.store.addAgent(domain.Agent{
		Name: "Learner", Email: "learner@example.com",
		Level: domain.AgentLevelRegular, Capacity: 5,
	})

	require.NoError(t, env.agents.UpdateSkills(context.Background(), agent.ID, []string{"network", "vpn"}))
	assert.Equal(t, []string{"network", "vpn"}, env.store.agents[agent.ID].Categories)
}
