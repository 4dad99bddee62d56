package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/service"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// ComplaintsHandler serves the public citizen endpoints.
type ComplaintsHandler struct {
	service *service.TicketService
}

// NewComplaintsHandler constructs handler.
func NewComplaintsHandler(ticketService *service.TicketService) *ComplaintsHandler {
	return &ComplaintsHandler{service: ticketService}
}

// Create POST /complaints.
func (h *ComplaintsHandler) Create(c *fiber.Ctx) error {
	var req dto.ComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.service.CreateTicket(c.UserContext(), service.ComplaintInput{
		Source:         req.Source,
		Description:    req.Description,
		WardID:         req.WardID,
		Location:       req.Location,
		LocationClass:  req.LocationType,
		ReporterName:   req.ReporterName,
		ReporterPhone:  req.ReporterPhone,
		ConsentGiven:   req.ConsentGiven,
		PhotoURI:       req.PhotoURI,
		SocialMentions: req.SocialMentions,
	})
	if err != nil {
		return err
	}
	if result.Clarification != nil {
		return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": fiber.Map{
			"clarification": dto.ClarificationResponse{
				Question:     result.Clarification.Question,
				Confidence:   result.Clarification.Confidence,
				DepartmentID: result.Clarification.DepartmentID,
			},
		}})
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": trackResponse(result.Ticket)})
}

// Track GET /track/:code.
func (h *ComplaintsHandler) Track(c *fiber.Ctx) error {
	ticket, err := h.service.Track(c.UserContext(), ticketCode(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": trackResponse(ticket)})
}

// Feedback POST /track/:code/feedback.
func (h *ComplaintsHandler) Feedback(c *fiber.Ctx) error {
	var req dto.FeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.service.SubmitFeedback(c.UserContext(), ticketCode(c), service.FeedbackInput{
		Phone:  req.Phone,
		Fixed:  req.Fixed,
		Rating: req.Rating,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": trackResponse(&result.Ticket)})
}

// Duplicate POST /complaints/:code/duplicate.
func (h *ComplaintsHandler) Duplicate(c *fiber.Ctx) error {
	var req dto.DuplicateReportRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	result, err := h.service.AddReport(c.UserContext(), ticketCode(c), req.Phone, req.SocialMentions)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": trackResponse(&result.Ticket)})
}

func ticketCode(c *fiber.Ctx) string {
	return strings.ToUpper(strings.TrimSpace(c.Params("code")))
}
