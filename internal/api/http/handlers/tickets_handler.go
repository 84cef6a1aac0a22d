package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-routing/internal/api/dto"
	"github.com/spec-kit/helpdesk-routing/internal/domain"
	"github.com/spec-kit/helpdesk-routing/internal/repository"
	"github.com/spec-kit/helpdesk-routing/internal/service"
	apperrors "github.com/spec-kit/helpdesk-routing/pkg/util"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
	sla     *service.SLAService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, sla *service.SLAService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, sla: sla}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Title == "" || req.RequesterID == "" {
		return apperrors.NewValidationError("requester_id and title required", nil)
	}

	ticket, err := h.tickets.CreateTicket(c.UserContext(), service.TicketCreateInput{
		RequesterID:    req.RequesterID,
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		RequiredSkills: req.RequiredSkills,
		Urgency:        domain.Urgency(req.Urgency),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter := parseTicketQuery(c)
	tickets, err := h.tickets.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.FromTicket(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, timeline, err := h.tickets.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	detail := dto.TicketDetailResponse{
		TicketResponse: dto.FromTicket(ticket),
		Timeline:       dto.FromTimeline(timeline),
	}
	return c.JSON(fiber.Map{"data": detail})
}

// CloseTicket POST /tickets/:id/close.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	var req dto.CloseTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	status := domain.TicketStatus(strings.ToUpper(req.Status))
	if status == "" {
		status = domain.TicketStatusClosed
	}
	actorID := req.ActorID
	if actorID == "" {
		actorID = domain.SystemActorID
	}
	if err := h.tickets.CloseTicket(c.UserContext(), c.Params("id"), status, actorID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": string(status)}})
}

// EscalateTicket POST /tickets/:id/escalate.
func (h *TicketsHandler) EscalateTicket(c *fiber.Ctx) error {
	var req dto.EscalateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ActorID == "" {
		return apperrors.NewValidationError("actor_id required", nil)
	}
	escalated, err := h.sla.ManualEscalate(c.UserContext(), c.Params("id"), req.ActorID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"escalated": escalated}})
}

func parseTicketQuery(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{
		Limit:  parseIntQuery(c, "limit", 20),
		Offset: parseIntQuery(c, "offset", 0),
	}
	if requester := c.Query("requester_id"); requester != "" {
		filter.RequesterID = &requester
	}
	if assignee := c.Query("assignee_id"); assignee != "" {
		filter.AssigneeID = &assignee
	}
	if category := c.Query("category"); category != "" {
		filter.Category = &category
	}
	for _, raw := range strings.Split(c.Query("status"), ",") {
		if raw = strings.TrimSpace(raw); raw != "" {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.ToUpper(raw)))
		}
	}
	for _, raw := range strings.Split(c.Query("urgency"), ",") {
		if raw = strings.TrimSpace(raw); raw != "" {
			if urgency, err := strconv.Atoi(raw); err == nil {
				filter.Urgencies = append(filter.Urgencies, domain.Urgency(urgency))
			}
		}
	}
	return filter
}

func parseIntQuery(c *fiber.Ctx, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
