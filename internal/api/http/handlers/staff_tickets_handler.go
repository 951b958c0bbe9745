package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/itops/helpdesk-service/internal/api/dto"
	"github.com/itops/helpdesk-service/internal/auth"
	"github.com/itops/helpdesk-service/internal/service"
	"github.com/itops/helpdesk-service/pkg/apperrors"
)

// StaffTicketsHandler exposes the staff-only queue operations: full listing,
// sequence lookup, merging, deletion and the dashboard.
type StaffTicketsHandler struct {
	tickets *service.TicketService
	stats   *service.StatsService
}

// NewStaffTicketsHandler constructs handler.
func NewStaffTicketsHandler(tickets *service.TicketService, stats *service.StatsService) *StaffTicketsHandler {
	return &StaffTicketsHandler{tickets: tickets, stats: stats}
}

// List GET /api/v1/staff/tickets.
func (h *StaffTicketsHandler) List(c *fiber.Ctx) error {
	actor, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	tickets, err := h.tickets.ListForActor(c.UserContext(), actor, parseTicketListQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(h.tickets, &tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetBySeq GET /api/v1/staff/tickets/seq/:seq. Lookup by the human-facing
// ticket number.
func (h *StaffTicketsHandler) GetBySeq(c *fiber.Ctx) error {
	actor, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	seq, err := strconv.ParseInt(c.Params("seq"), 10, 64)
	if err != nil {
		return apperrors.NewValidationError("seq must be an integer", nil)
	}
	ticket, err := h.tickets.GetBySeqForActor(c.UserContext(), actor, seq)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(h.tickets, ticket)})
}

// Merge POST /api/v1/staff/tickets/:id/merge.
func (h *StaffTicketsHandler) Merge(c *fiber.Ctx) error {
	actor, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.MergeTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	source, err := h.tickets.Merge(c.UserContext(), actor, c.Params("id"), req.TargetID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(h.tickets, source)})
}

// Delete DELETE /api/v1/staff/tickets/:id.
func (h *StaffTicketsHandler) Delete(c *fiber.Ctx) error {
	actor, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.tickets.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Dashboard GET /api/v1/staff/stats/dashboard.
func (h *StaffTicketsHandler) Dashboard(c *fiber.Ctx) error {
	stats, err := h.stats.Dashboard(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}
