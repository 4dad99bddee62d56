package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/lifecycle"
	"github.com/spec-kit/grievance-service/internal/service"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

const maxEvidenceBytes = 10 << 20

// OfficerTicketsHandler exposes the scoped officer workflow.
type OfficerTicketsHandler struct {
	service *service.TicketService
}

// NewOfficerTicketsHandler constructs handler.
func NewOfficerTicketsHandler(ticketService *service.TicketService) *OfficerTicketsHandler {
	return &OfficerTicketsHandler{service: ticketService}
}

// List GET /officer/tickets.
func (h *OfficerTicketsHandler) List(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	query, err := parseListQuery(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.ListTickets(c.UserContext(), actor, query)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /officer/tickets/:code.
func (h *OfficerTicketsHandler) Get(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.service.GetTicket(c.UserContext(), actor, ticketCode(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Audit GET /officer/tickets/:code/audit.
func (h *OfficerTicketsHandler) Audit(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	trail, err := h.service.ListAudit(c.UserContext(), actor, ticketCode(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": auditTrailResponse(trail)})
}

// Action POST /officer/tickets/:code/actions.
func (h *OfficerTicketsHandler) Action(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ActionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.service.ApplyAction(c.UserContext(), ticketCode(c), actor, lifecycle.Command{
		Action:       req.Action,
		DepartmentID: req.DepartmentID,
		EvidenceKind: req.EvidenceKind,
		EvidenceURI:  req.EvidenceURI,
		Score:        req.Score,
		Reason:       req.Reason,
		Amount:       req.Amount,
	})
	if err != nil {
		return err
	}
	data := fiber.Map{"ticket": ticketResponse(&result.Ticket)}
	if result.Approval != nil {
		data["approval"] = result.Approval
	}
	return c.JSON(fiber.Map{"data": data})
}

// Evidence POST /officer/tickets/:code/evidence (multipart: kind, file).
func (h *OfficerTicketsHandler) Evidence(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	kind := domain.EvidenceKind(strings.ToLower(c.FormValue("kind")))
	header, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("file is required", map[string]any{"file": "required"})
	}
	if header.Size > maxEvidenceBytes {
		return apperrors.NewValidationError("file too large", map[string]any{"max_bytes": maxEvidenceBytes})
	}
	file, err := header.Open()
	if err != nil {
		return apperrors.NewValidationError("unreadable file", nil)
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	result, err := h.service.AttachEvidence(c.UserContext(), ticketCode(c), actor, service.EvidenceUpload{
		Kind:        kind,
		Body:        file,
		Size:        header.Size,
		ContentType: contentType,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketResponse(&result.Ticket)})
}

// ResolveApproval POST /officer/approvals/resolve.
func (h *OfficerTicketsHandler) ResolveApproval(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ApprovalRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if !req.Amount.IsPositive() {
		return apperrors.NewValidationError("amount must be positive", map[string]any{"amount": req.Amount.String()})
	}
	role := actor.Role
	if req.Role != "" {
		role = req.Role
	}
	return c.JSON(fiber.Map{"data": h.service.ResolveApproval(role, req.Amount)})
}

func parseListQuery(c *fiber.Ctx) (service.ListQuery, error) {
	query := service.ListQuery{}
	if v := c.Query("ward_id"); v != "" {
		ward, err := strconv.Atoi(v)
		if err != nil {
			return query, apperrors.NewValidationError("invalid ward_id", map[string]any{"ward_id": v})
		}
		query.Scope.WardID = &ward
	}
	if v := c.Query("zone_id"); v != "" {
		zone, err := strconv.Atoi(v)
		if err != nil {
			return query, apperrors.NewValidationError("invalid zone_id", map[string]any{"zone_id": v})
		}
		query.Scope.ZoneID = &zone
	}
	if v := c.Query("department_id"); v != "" {
		query.Scope.DepartmentID = &v
	}
	query.Scope.IncludeCandidates = c.QueryBool("include_candidates", false)
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			query.Statuses = append(query.Statuses, domain.TicketStatus(strings.ToUpper(strings.TrimSpace(part))))
		}
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	if pageSize > 200 {
		pageSize = 200
	}
	query.Offset = (page - 1) * pageSize
	query.Limit = pageSize
	return query, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
