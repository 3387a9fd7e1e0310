package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/academy-reconcile-api/internal/dto"
	"github.com/noah-isme/academy-reconcile-api/internal/service"
	"github.com/noah-isme/academy-reconcile-api/internal/utils"
)

// RemediationHandler exposes the debt remediation workflow to operators.
type RemediationHandler struct {
	service   service.DebtRemediationService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewRemediationHandler constructs the handler.
func NewRemediationHandler(service service.DebtRemediationService, validate *validator.Validate, logger zerolog.Logger) *RemediationHandler {
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return &RemediationHandler{
		service:   service,
		validator: validate,
		logger:    logger.With().Str("component", "remediation_handler").Logger(),
	}
}

// Register attaches routes. Write routes go through the extra middlewares.
func (h *RemediationHandler) Register(router fiber.Router, writeGuards ...fiber.Handler) {
	guarded := func(next fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, writeGuards...), next)
	}

	router.Get("/students/:id", h.state)
	router.Post("/students/:id/suspend", guarded(h.suspend)...)
	router.Post("/students/:id/reinstate", guarded(h.reinstate)...)
	router.Post("/classes/:id/relieve", guarded(h.relieve)...)
}

func (h *RemediationHandler) state(c *fiber.Ctx) error {
	studentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	resp, err := h.service.State(c.UserContext(), studentID)
	if err != nil {
		return respondError(c, h.logger, err, "remediation state")
	}
	return utils.SendSuccess(c, "remediation state retrieved", resp)
}

func (h *RemediationHandler) suspend(c *fiber.Ctx) error {
	studentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	resp, err := h.service.Suspend(c.UserContext(), studentID, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "suspension")
	}
	message := "student suspended for debt"
	if !resp.Changed {
		message = "no seats to suspend"
	}
	return utils.SendSuccess(c, message, resp)
}

func (h *RemediationHandler) reinstate(c *fiber.Ctx) error {
	studentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	resp, err := h.service.Reinstate(c.UserContext(), studentID, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "reinstatement")
	}
	message := "student reinstated"
	if !resp.Changed {
		message = "no released seats to reinstate"
	}
	return utils.SendSuccess(c, message, resp)
}

func (h *RemediationHandler) relieve(c *fiber.Ctx) error {
	classID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var req dto.RelieveCapacityRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(req); err != nil {
		return respondError(c, h.logger, err, "capacity relief")
	}

	resp, err := h.service.RelieveOverCapacity(c.UserContext(), classID, req.StudentIDs, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "capacity relief")
	}
	return utils.SendSuccess(c, "class capacity relieved", resp)
}
