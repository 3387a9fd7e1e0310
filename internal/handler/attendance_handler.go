package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/academy-reconcile-api/internal/dto"
	"github.com/noah-isme/academy-reconcile-api/internal/models"
	"github.com/noah-isme/academy-reconcile-api/internal/service"
	"github.com/noah-isme/academy-reconcile-api/internal/utils"
)

// AttendanceHandler records attendance and manages recovery sessions.
type AttendanceHandler struct {
	attendance service.AttendanceService
	recovery   service.RecoveryService
	logger     zerolog.Logger
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(attendance service.AttendanceService, recovery service.RecoveryService, logger zerolog.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		attendance: attendance,
		recovery:   recovery,
		logger:     logger.With().Str("component", "attendance_handler").Logger(),
	}
}

// Register attaches routes on the versioned API group.
func (h *AttendanceHandler) Register(router fiber.Router) {
	router.Post("/attendance", h.record)

	sessions := router.Group("/recovery-sessions")
	sessions.Get("", h.listPending)
	sessions.Post("/:id/complete", h.complete)
	sessions.Post("/:id/cancel", h.cancel)
}

func (h *AttendanceHandler) record(c *fiber.Ctx) error {
	var req dto.AttendanceCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	resp, err := h.attendance.Record(c.UserContext(), req)
	if err != nil {
		return respondError(c, h.logger, err, "attendance")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "attendance recorded", resp)
}

func (h *AttendanceHandler) listPending(c *fiber.Ctx) error {
	studentID, err := parseOptionalUintQuery(c, "student_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	resp, err := h.recovery.ListPending(c.UserContext(), studentID)
	if err != nil {
		return respondError(c, h.logger, err, "recovery sessions")
	}
	return utils.OK(c, resp.Items, "pending recovery sessions retrieved", fiber.Map{"total": resp.Total})
}

func (h *AttendanceHandler) complete(c *fiber.Ctx) error {
	return h.resolve(c, h.recovery.Complete, "recovery session completed")
}

func (h *AttendanceHandler) cancel(c *fiber.Ctx) error {
	return h.resolve(c, h.recovery.Cancel, "recovery session cancelled")
}

type resolveFunc func(ctx context.Context, id uint, req dto.RecoveryResolveRequest, actor service.ActivityActor) (models.RecoverySession, error)

func (h *AttendanceHandler) resolve(c *fiber.Ctx, fn resolveFunc, message string) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var req dto.RecoveryResolveRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	session, err := fn(c.UserContext(), id, req, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "recovery session")
	}
	return utils.SendSuccess(c, message, session)
}
