package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/academy-reconcile-api/internal/service"
	"github.com/noah-isme/academy-reconcile-api/internal/utils"
)

// ReconciliationHandler exposes the capacity, debt and recovery views.
type ReconciliationHandler struct {
	service service.ReconciliationService
	logger  zerolog.Logger
}

// NewReconciliationHandler constructs the handler.
func NewReconciliationHandler(service service.ReconciliationService, logger zerolog.Logger) *ReconciliationHandler {
	return &ReconciliationHandler{
		service: service,
		logger:  logger.With().Str("component", "reconciliation_handler").Logger(),
	}
}

// Register attaches routes.
func (h *ReconciliationHandler) Register(router fiber.Router) {
	router.Get("/dashboard", h.dashboard)
	router.Get("/debtors", h.debtors)
	router.Get("/capacity", h.capacity)
	router.Get("/recovery-slots", h.recoverySlots)
}

func (h *ReconciliationHandler) dashboard(c *fiber.Ctx) error {
	resp, err := h.service.Dashboard(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err, "dashboard")
	}
	cacheHeader(c, resp.CacheHit)

	message := "dashboard computed"
	if len(resp.IncompleteOccurrences) == 0 && len(resp.Debtors) == 0 {
		message = "nothing to reconcile"
	}
	return utils.SendSuccess(c, message, resp)
}

func (h *ReconciliationHandler) debtors(c *fiber.Ctx) error {
	resp, err := h.service.Debtors(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err, "debtors")
	}
	cacheHeader(c, resp.CacheHit)
	return utils.OK(c, resp, "debtors computed", fiber.Map{"count": len(resp.Debtors)})
}

func (h *ReconciliationHandler) capacity(c *fiber.Ctx) error {
	window, err := parseWindowQuery(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	resp, err := h.service.Capacity(c.UserContext(), window)
	if err != nil {
		return respondError(c, h.logger, err, "capacity")
	}
	return utils.SendSuccess(c, "capacity computed", resp)
}

func (h *ReconciliationHandler) recoverySlots(c *fiber.Ctx) error {
	window, err := parseWindowQuery(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	resp, err := h.service.RecoverySlots(c.UserContext(), window)
	if err != nil {
		return respondError(c, h.logger, err, "recovery slots")
	}
	return utils.OK(c, resp, "recovery slots computed", fiber.Map{"count": len(resp.Slots)})
}
