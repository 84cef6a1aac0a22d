package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-routing/internal/domain"
	"github.com/spec-kit/helpdesk-routing/internal/events"
	"github.com/spec-kit/helpdesk-routing/internal/observability"
	"github.com/spec-kit/helpdesk-routing/internal/repository"
)

// In-memory fakes mirroring the conditional-update semantics of the pgx
// repositories, so service tests exercise the same guards the SQL enforces.

type memStore struct {
	tickets       map[string]*domain.Ticket
	agents        map[string]*domain.Agent
	rules         map[domain.Urgency]*domain.SLARule
	notifications []*domain.Notification
	timeline      []*domain.TimelineEntry
	seq           int

	failExistsFor map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		tickets:       make(map[string]*domain.Ticket),
		agents:        make(map[string]*domain.Agent),
		rules:         make(map[domain.Urgency]*domain.SLARule),
		failExistsFor: make(map[string]error),
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) addAgent(agent domain.Agent) *domain.Agent {
	if agent.ID == "" {
		agent.ID = m.nextID("agent")
	}
	if agent.Status == "" {
		agent.Status = domain.AgentStatusActive
	}
	if agent.Role == "" {
		agent.Role = domain.AgentRoleAgent
	}
	stored := agent
	m.agents[stored.ID] = &stored
	return &stored
}

func (m *memStore) addTicket(ticket domain.Ticket) *domain.Ticket {
	if ticket.ID == "" {
		ticket.ID = m.nextID("ticket")
	}
	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusOpen
	}
	stored := ticket
	m.tickets[stored.ID] = &stored
	return &stored
}

func (m *memStore) notificationCount(agentID, ticketID string, notifType domain.NotificationType) int {
	count := 0
	for _, n := range m.notifications {
		if n.AgentID == agentID && n.TicketID == ticketID && n.Type == notifType {
			count++
		}
	}
	return count
}

// testEnv wires the full service graph over the in-memory store.
type testEnv struct {
	store   *memStore
	metrics *observability.Metrics
	locker  *memLocker

	rules   *RuleService
	agents  *AgentService
	router  *RouterService
	sla     *SLAService
	tickets *TicketService
}

func newTestEnv(releaseOnEscalation bool) *testEnv {
	store := newMemStore()
	for urgency, rule := range domain.DefaultSLARules() {
		seeded := rule
		seeded.ID = store.nextID("rule")
		store.rules[urgency] = &seeded
	}

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	locker := newMemLocker()

	ticketRepo := &memTicketRepo{store: store}
	agentRepo := &memAgentRepo{store: store}
	assignmentRepo := &memAssignmentRepo{store: store}
	ruleRepo := &memRuleRepo{store: store}
	notificationRepo := &memNotificationRepo{store: store}
	timelineRepo := &memTimelineRepo{store: store}

	rules := NewRuleService(ruleRepo, metrics, logger)
	agents := NewAgentService(agentRepo, logger)
	router := NewRouterService(RouterDependencies{
		TicketRepo:          ticketRepo,
		AgentRepo:           agentRepo,
		AssignmentRepo:      assignmentRepo,
		TimelineRepo:        timelineRepo,
		NotificationRepo:    notificationRepo,
		Dispatcher:          dispatcher,
		Metrics:             metrics,
		Logger:              logger,
		ReleaseOnEscalation: releaseOnEscalation,
	})
	sla := NewSLAService(SLADependencies{
		TicketRepo:       ticketRepo,
		NotificationRepo: notificationRepo,
		TimelineRepo:     timelineRepo,
		Rules:            rules,
		Router:           router,
		Locker:           locker,
		Dispatcher:       dispatcher,
		Metrics:          metrics,
		Logger:           logger,
		WarningWindow:    time.Hour,
	})
	tickets := NewTicketService(TicketDependencies{
		TicketRepo:       ticketRepo,
		TimelineRepo:     timelineRepo,
		NotificationRepo: notificationRepo,
		Rules:            rules,
		Router:           router,
		Agents:           agents,
		Dispatcher:       dispatcher,
		Logger:           logger,
	})

	return &testEnv{
		store:   store,
		metrics: metrics,
		locker:  locker,
		rules:   rules,
		agents:  agents,
		router:  router,
		sla:     sla,
		tickets: tickets,
	}
}

// --- TicketRepository ---

type memTicketRepo struct{ store *memStore }

func (r *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	ticket.ID = r.store.nextID("ticket")
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	stored := *ticket
	r.store.tickets[ticket.ID] = &stored
	return nil
}

func (r *memTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := r.store.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *memTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, ticket := range r.store.tickets {
		if filter.RequesterID != nil && ticket.RequesterID != *filter.RequesterID {
			continue
		}
		result = append(result, *ticket)
	}
	return result, nil
}

func (r *memTicketRepo) ListOverdue(_ context.Context, now time.Time) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, ticket := range r.store.tickets {
		if !ticket.Status.IsTerminal() && ticket.SLADueDate.Before(now) && !ticket.SLABreached {
			result = append(result, *ticket)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SLADueDate.Before(result[j].SLADueDate) })
	return result, nil
}

func (r *memTicketRepo) ListApproaching(_ context.Context, now time.Time, window time.Duration) ([]domain.Ticket, error) {
	limit := now.Add(window)
	var result []domain.Ticket
	for _, ticket := range r.store.tickets {
		if ticket.Status.IsTerminal() || ticket.SLABreached {
			continue
		}
		if ticket.SLADueDate.After(now) && !ticket.SLADueDate.After(limit) {
			result = append(result, *ticket)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SLADueDate.Before(result[j].SLADueDate) })
	return result, nil
}

func (r *memTicketRepo) MarkBreached(_ context.Context, id string, now time.Time) (bool, error) {
	ticket, ok := r.store.tickets[id]
	if !ok || ticket.SLABreached || ticket.Status.IsTerminal() {
		return false, nil
	}
	ticket.SLABreached = true
	ticket.Status = domain.TicketStatusEscalated
	ticket.EscalatedAt = &now
	ticket.EscalationCount++
	return true, nil
}

func (r *memTicketRepo) MarkEscalated(_ context.Context, id string, now time.Time) (bool, error) {
	ticket, ok := r.store.tickets[id]
	if !ok || ticket.Status.IsTerminal() {
		return false, nil
	}
	ticket.Status = domain.TicketStatusEscalated
	ticket.EscalatedAt = &now
	ticket.EscalationCount++
	return true, nil
}

func (r *memTicketRepo) Close(_ context.Context, id string, status domain.TicketStatus, now time.Time) (bool, error) {
	ticket, ok := r.store.tickets[id]
	if !ok || ticket.Status.IsTerminal() {
		return false, nil
	}
	ticket.Status = status
	ticket.ResolvedAt = &now
	if status == domain.TicketStatusClosed {
		ticket.ClosedAt = &now
	}
	return true, nil
}

func (r *memTicketRepo) SetStatus(_ context.Context, id string, status domain.TicketStatus) (bool, error) {
	ticket, ok := r.store.tickets[id]
	if !ok || ticket.Status.IsTerminal() {
		return false, nil
	}
	ticket.Status = status
	return true, nil
}

// --- AgentRepository ---

type memAgentRepo struct{ store *memStore }

func (r *memAgentRepo) Create(_ context.Context, agent *domain.Agent) error {
	agent.ID = r.store.nextID("agent")
	agent.CreatedAt = time.Now()
	agent.UpdatedAt = agent.CreatedAt
	stored := *agent
	r.store.agents[agent.ID] = &stored
	return nil
}

func (r *memAgentRepo) Update(_ context.Context, agent *domain.Agent) error {
	stored, ok := r.store.agents[agent.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Name = agent.Name
	stored.Email = agent.Email
	stored.Role = agent.Role
	stored.Level = agent.Level
	stored.Categories = agent.Categories
	stored.Capacity = agent.Capacity
	return nil
}

func (r *memAgentRepo) GetByID(_ context.Context, id string) (*domain.Agent, error) {
	agent, ok := r.store.agents[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *agent
	return &copied, nil
}

func (r *memAgentRepo) List(_ context.Context, filter repository.AgentFilter) ([]domain.Agent, error) {
	var result []domain.Agent
	for _, agent := range r.store.agents {
		if filter.Role != nil && agent.Role != *filter.Role {
			continue
		}
		if filter.Status != nil && agent.Status != *filter.Status {
			continue
		}
		if filter.Level != nil && agent.Level != *filter.Level {
			continue
		}
		result = append(result, *agent)
	}
	return result, nil
}

func (r *memAgentRepo) ListCandidates(_ context.Context, filter repository.CandidateFilter) ([]domain.Agent, error) {
	var result []domain.Agent
	for _, agent := range r.store.agents {
		if agent.Role != domain.AgentRoleAgent {
			continue
		}
		if agent.Status != domain.AgentStatusActive && agent.Status != domain.AgentStatusBusy {
			continue
		}
		if agent.CurrentLoad >= agent.Capacity {
			continue
		}
		if filter.Category != nil && !agent.HandlesCategory(*filter.Category) {
			continue
		}
		if filter.Level != nil && agent.Level != *filter.Level {
			continue
		}
		if filter.ExcludeID != nil && agent.ID == *filter.ExcludeID {
			continue
		}
		result = append(result, *agent)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CurrentLoad != result[j].CurrentLoad {
			return result[i].CurrentLoad < result[j].CurrentLoad
		}
		a, b := result[i].LastAssignedAt, result[j].LastAssignedAt
		if a == nil {
			return b != nil
		}
		if b == nil {
			return false
		}
		return a.Before(*b)
	})
	return result, nil
}

func (r *memAgentRepo) FindManager(_ context.Context) (*domain.Agent, error) {
	var managers []*domain.Agent
	for _, agent := range r.store.agents {
		if agent.Role == domain.AgentRoleManager {
			managers = append(managers, agent)
		}
	}
	if len(managers) == 0 {
		return nil, pgx.ErrNoRows
	}
	sort.Slice(managers, func(i, j int) bool { return managers[i].CreatedAt.Before(managers[j].CreatedAt) })
	copied := *managers[0]
	return &copied, nil
}

func (r *memAgentRepo) ReleaseLoad(_ context.Context, id string) error {
	agent, ok := r.store.agents[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if agent.CurrentLoad > 0 {
		agent.CurrentLoad--
	}
	if agent.Status == domain.AgentStatusBusy && agent.CurrentLoad < agent.Capacity {
		agent.Status = domain.AgentStatusActive
	}
	return nil
}

func (r *memAgentRepo) UpdateCategories(_ context.Context, id string, categories []string) error {
	agent, ok := r.store.agents[id]
	if !ok {
		return pgx.ErrNoRows
	}
	agent.Categories = categories
	return nil
}

func (r *memAgentRepo) SetAvailability(_ context.Context, id string, available bool) error {
	agent, ok := r.store.agents[id]
	if !ok {
		return pgx.ErrNoRows
	}
	switch {
	case !available:
		agent.Status = domain.AgentStatusUnavailable
	case agent.CurrentLoad >= agent.Capacity:
		agent.Status = domain.AgentStatusBusy
	default:
		agent.Status = domain.AgentStatusActive
	}
	return nil
}

// --- AssignmentRepository ---

type memAssignmentRepo struct{ store *memStore }

func (r *memAssignmentRepo) Commit(_ context.Context, commit repository.AssignmentCommit) error {
	ticket, ok := r.store.tickets[commit.TicketID]
	if !ok || ticket.Status.IsTerminal() {
		return repository.ErrStale
	}
	if commit.RequireUnassigned && ticket.AssignedAgentID != nil {
		return repository.ErrStale
	}
	agentID := commit.AgentID
	ticket.AssignedAgentID = &agentID
	ticket.Status = commit.NewStatus

	if commit.BumpLoad {
		agent, ok := r.store.agents[commit.AgentID]
		if !ok {
			return repository.ErrStale
		}
		agent.CurrentLoad++
		now := commit.Now
		agent.LastAssignedAt = &now
		if agent.CurrentLoad >= agent.Capacity {
			agent.Status = domain.AgentStatusBusy
		}
	}
	if commit.ReleaseAgentID != nil && *commit.ReleaseAgentID != commit.AgentID {
		if prev, ok := r.store.agents[*commit.ReleaseAgentID]; ok {
			if prev.CurrentLoad > 0 {
				prev.CurrentLoad--
			}
			if prev.Status == domain.AgentStatusBusy && prev.CurrentLoad < prev.Capacity {
				prev.Status = domain.AgentStatusActive
			}
		}
	}
	return nil
}

// --- SLARuleRepository ---

type memRuleRepo struct{ store *memStore }

func (r *memRuleRepo) GetByUrgency(_ context.Context, urgency domain.Urgency) (*domain.SLARule, error) {
	rule, ok := r.store.rules[urgency]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *rule
	return &copied, nil
}

func (r *memRuleRepo) List(_ context.Context) ([]domain.SLARule, error) {
	var result []domain.SLARule
	for _, rule := range r.store.rules {
		result = append(result, *rule)
	}
	return result, nil
}

func (r *memRuleRepo) Upsert(_ context.Context, rule *domain.SLARule) error {
	if rule.ID == "" {
		rule.ID = r.store.nextID("rule")
	}
	stored := *rule
	r.store.rules[rule.Urgency] = &stored
	return nil
}

func (r *memRuleRepo) Delete(_ context.Context, urgency domain.Urgency) error {
	if _, ok := r.store.rules[urgency]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.store.rules, urgency)
	return nil
}

// --- NotificationRepository ---

type memNotificationRepo struct{ store *memStore }

func (r *memNotificationRepo) Create(_ context.Context, notification *domain.Notification) error {
	if notification.Type == domain.NotificationSLAWarning {
		// Mirrors the partial unique index: duplicate warnings are no-ops.
		if r.store.notificationCount(notification.AgentID, notification.TicketID, domain.NotificationSLAWarning) > 0 {
			return nil
		}
	}
	notification.ID = r.store.nextID("notification")
	notification.CreatedAt = time.Now()
	stored := *notification
	r.store.notifications = append(r.store.notifications, &stored)
	return nil
}

func (r *memNotificationRepo) Exists(_ context.Context, agentID, ticketID string, notifType domain.NotificationType) (bool, error) {
	if err, ok := r.store.failExistsFor[ticketID]; ok {
		return false, err
	}
	for _, n := range r.store.notifications {
		if n.AgentID == agentID && n.TicketID == ticketID && n.Type == notifType {
			return true, nil
		}
	}
	return false, nil
}

func (r *memNotificationRepo) ListByAgent(_ context.Context, agentID string, limit, offset int) ([]domain.Notification, error) {
	var result []domain.Notification
	for _, n := range r.store.notifications {
		if n.AgentID == agentID {
			result = append(result, *n)
		}
	}
	return result, nil
}

func (r *memNotificationRepo) MarkRead(_ context.Context, id string, now time.Time) error {
	for _, n := range r.store.notifications {
		if n.ID == id && n.ReadAt == nil {
			n.ReadAt = &now
			return nil
		}
	}
	return pgx.ErrNoRows
}

// --- TimelineRepository ---

type memTimelineRepo struct{ store *memStore }

func (r *memTimelineRepo) Append(_ context.Context, entry *domain.TimelineEntry) error {
	entry.ID = r.store.nextID("timeline")
	entry.CreatedAt = time.Now()
	stored := *entry
	r.store.timeline = append(r.store.timeline, &stored)
	return nil
}

func (r *memTimelineRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TimelineEntry, error) {
	var result []domain.TimelineEntry
	for _, entry := range r.store.timeline {
		if entry.TicketID == ticketID {
			result = append(result, *entry)
		}
	}
	return result, nil
}

// --- TicketLocker ---

type memLocker struct {
	held map[string]bool
}

func newMemLocker() *memLocker {
	return &memLocker{held: make(map[string]bool)}
}

func (l *memLocker) Acquire(_ context.Context, ticketID string) (bool, error) {
	if l.held[ticketID] {
		return false, nil
	}
	l.held[ticketID] = true
	return true, nil
}

func (l *memLocker) Release(_ context.Context, ticketID string) error {
	delete(l.held, ticketID)
	return nil
}
