package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/service"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// OfficerHandler exposes officer login and account management.
type OfficerHandler struct {
	authService    *service.AuthService
	officerService *service.OfficerService
}

// NewOfficerHandler constructs handler.
func NewOfficerHandler(authService *service.AuthService, officerService *service.OfficerService) *OfficerHandler {
	return &OfficerHandler{authService: authService, officerService: officerService}
}

// Login handles POST /auth/officers/login.
func (h *OfficerHandler) Login(c *fiber.Ctx) error {
	var req dto.OfficerLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	officer, token, exp, err := h.authService.LoginOfficer(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"officer": officerResponse(officer),
			"auth":    dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}

// Create handles POST /admin/officers.
func (h *OfficerHandler) Create(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateOfficerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	officer, err := h.officerService.CreateOfficer(c.UserContext(), actor, service.OfficerInput{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Password:     req.Password,
		Role:         req.Role,
		WardID:       req.WardID,
		ZoneID:       req.ZoneID,
		DepartmentID: req.DepartmentID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": officerResponse(officer)})
}
