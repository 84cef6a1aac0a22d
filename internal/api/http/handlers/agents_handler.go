package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-routing/internal/api/dto"
	"github.com/spec-kit/helpdesk-routing/internal/domain"
	"github.com/spec-kit/helpdesk-routing/internal/repository"
	"github.com/spec-kit/helpdesk-routing/internal/service"
	apperrors "github.com/spec-kit/helpdesk-routing/pkg/util"
)

// AgentsHandler manages agent directory endpoints.
type AgentsHandler struct {
	agents *service.AgentService
}

// NewAgentsHandler constructs handler.
func NewAgentsHandler(agents *service.AgentService) *AgentsHandler {
	return &AgentsHandler{agents: agents}
}

// CreateAgent POST /agents.
func (h *AgentsHandler) CreateAgent(c *fiber.Ctx) error {
	var req dto.CreateAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	agent, err := h.agents.CreateAgent(c.UserContext(), service.AgentCreateInput{
		Name:       req.Name,
		Email:      req.Email,
		Role:       domain.AgentRole(req.Role),
		Level:      domain.AgentLevel(req.Level),
		Categories: req.Categories,
		Capacity:   req.Capacity,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromAgent(agent)})
}

// ListAgents GET /agents.
func (h *AgentsHandler) ListAgents(c *fiber.Ctx) error {
	filter := repository.AgentFilter{
		Limit:  parseIntQuery(c, "limit", 50),
		Offset: parseIntQuery(c, "offset", 0),
	}
	if role := c.Query("role"); role != "" {
		agentRole := domain.AgentRole(role)
		filter.Role = &agentRole
	}
	if status := c.Query("status"); status != "" {
		agentStatus := domain.AgentStatus(status)
		filter.Status = &agentStatus
	}
	if level := parseIntQuery(c, "level", 0); level > 0 {
		agentLevel := domain.AgentLevel(level)
		filter.Level = &agentLevel
	}

	agents, err := h.agents.ListAgents(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.AgentResponse, 0, len(agents))
	for i := range agents {
		items = append(items, dto.FromAgent(&agents[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetAgent GET /agents/:id.
func (h *AgentsHandler) GetAgent(c *fiber.Ctx) error {
	agent, err := h.agents.GetAgent(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromAgent(agent)})
}

// UpdateSkills PUT /agents/:id/skills.
func (h *AgentsHandler) UpdateSkills(c *fiber.Ctx) error {
	var req dto.UpdateSkillsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.agents.UpdateSkills(c.UserContext(), c.Params("id"), req.Categories); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"updated": true}})
}

// SetAvailability PUT /agents/:id/availability.
func (h *AgentsHandler) SetAvailability(c *fiber.Ctx) error {
	var req dto.SetAvailabilityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.agents.SetAvailability(c.UserContext(), c.Params("id"), req.Available); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"available": req.Available}})
}
