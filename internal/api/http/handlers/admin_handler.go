package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/sweeper"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// SweepRunner runs one sweep cycle.
type SweepRunner interface {
	RunCycle(ctx context.Context, now time.Time, mode sweeper.Mode) (sweeper.Report, error)
}

// AdminHandler exposes operational endpoints.
type AdminHandler struct {
	sweeper SweepRunner
	now     func() time.Time
}

// NewAdminHandler constructs handler. now may be nil.
func NewAdminHandler(runner SweepRunner, now func() time.Time) *AdminHandler {
	if now == nil {
		now = time.Now
	}
	return &AdminHandler{sweeper: runner, now: now}
}

// Sweep handles POST /admin/sweep?mode=full|rescore.
func (h *AdminHandler) Sweep(c *fiber.Ctx) error {
	mode := sweeper.Mode(c.Query("mode", string(sweeper.ModeFull)))
	if mode != sweeper.ModeFull && mode != sweeper.ModeRescore {
		return apperrors.NewValidationError("invalid mode", map[string]any{"mode": "must be full or rescore"})
	}
	report, err := h.sweeper.RunCycle(c.UserContext(), h.now().UTC(), mode)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": dto.SweepResponse{
		Mode:    string(report.Mode),
		At:      report.At,
		Tickets: report.Tickets,
		Changed: report.Changed,
		Failed:  report.Failed,
		Intents: len(report.Intents),
	}})
}
