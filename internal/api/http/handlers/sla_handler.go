package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-routing/internal/api/dto"
	"github.com/spec-kit/helpdesk-routing/internal/domain"
	"github.com/spec-kit/helpdesk-routing/internal/service"
	apperrors "github.com/spec-kit/helpdesk-routing/pkg/util"
)

// SLAHandler manages SLA rule administration and the manual sweep trigger.
type SLAHandler struct {
	rules *service.RuleService
	sla   *service.SLAService
}

// NewSLAHandler constructs handler.
func NewSLAHandler(rules *service.RuleService, sla *service.SLAService) *SLAHandler {
	return &SLAHandler{rules: rules, sla: sla}
}

// ListRules GET /sla/rules.
func (h *SLAHandler) ListRules(c *fiber.Ctx) error {
	rules, err := h.rules.List(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.SLARuleResponse, 0, len(rules))
	for i := range rules {
		items = append(items, dto.FromSLARule(&rules[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// SaveRule PUT /sla/rules.
func (h *SLAHandler) SaveRule(c *fiber.Ctx) error {
	var req dto.SaveSLARuleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ladder := make(domain.Ladder, 0, len(req.Ladder))
	for _, level := range req.Ladder {
		ladder = append(ladder, domain.AgentLevel(level))
	}
	rule := &domain.SLARule{
		Urgency:         domain.Urgency(req.Urgency),
		ResponseHours:   req.ResponseHours,
		ResolutionHours: req.ResolutionHours,
		WarningHours:    req.WarningHours,
		Ladder:          ladder,
	}
	if err := h.rules.Save(c.UserContext(), rule); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromSLARule(rule)})
}

// DeleteRule DELETE /sla/rules/:urgency.
func (h *SLAHandler) DeleteRule(c *fiber.Ctx) error {
	urgency, err := c.ParamsInt("urgency")
	if err != nil {
		return apperrors.NewValidationError("urgency must be numeric", nil)
	}
	if err := h.rules.Delete(c.UserContext(), domain.Urgency(urgency)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true}})
}

// Check POST /sla/check triggers one sweep immediately.
func (h *SLAHandler) Check(c *fiber.Ctx) error {
	if err := h.sla.Tick(c.UserContext(), time.Now().UTC()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "SLA check completed"}})
}
