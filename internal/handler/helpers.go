package handler

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/academy-reconcile-api/internal/dto"
	"github.com/noah-isme/academy-reconcile-api/internal/middleware"
	"github.com/noah-isme/academy-reconcile-api/internal/reconcile"
	"github.com/noah-isme/academy-reconcile-api/internal/service"
	"github.com/noah-isme/academy-reconcile-api/internal/utils"
)

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	parsed, err := strconv.ParseUint(strings.TrimSpace(c.Params(name)), 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid identifier")
	}
	return uint(parsed), nil
}

func parseOptionalUintQuery(c *fiber.Ctx, key string) (*uint, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return nil, errors.New("invalid " + key)
	}
	id := uint(parsed)
	return &id, nil
}

// parseWindowQuery reads ?from=&to= calendar dates. Missing bounds stay zero.
func parseWindowQuery(c *fiber.Ctx) (reconcile.Window, error) {
	var window reconcile.Window
	for key, target := range map[string]*time.Time{"from": &window.From, "to": &window.To} {
		value := strings.TrimSpace(c.Query(key))
		if value == "" {
			continue
		}
		parsed, err := time.Parse(dto.DateLayout, value)
		if err != nil {
			return reconcile.Window{}, errors.New("invalid " + key + " date, expected YYYY-MM-DD")
		}
		*target = reconcile.Day(parsed)
	}
	return window, nil
}

func userIDFromContext(c *fiber.Ctx) uint {
	switch id := c.Locals(middleware.LocalUserID).(type) {
	case uint:
		return id
	case int:
		if id > 0 {
			return uint(id)
		}
	}
	return 0
}

func userRoleFromContext(c *fiber.Ctx) string {
	role, _ := c.Locals(middleware.LocalUserRole).(string)
	return role
}

func activityActorFromContext(c *fiber.Ctx) service.ActivityActor {
	return service.ActivityActor{
		ID:   userIDFromContext(c),
		Role: userRoleFromContext(c),
	}
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func validationDetails(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details[fieldErr.Field()] = fieldErr.Tag()
	}
	return details
}

// respondError maps service errors onto HTTP statuses. An unavailable store is
// reported as retryable, never as an empty result.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error, subject string) error {
	switch {
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", validationDetails(err))
	case errors.Is(err, service.ErrRecoveryReasonRequired),
		errors.Is(err, service.ErrStudentNotAssigned):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrStudentNotFound),
		errors.Is(err, service.ErrClassNotFound),
		errors.Is(err, service.ErrRecoveryNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrRecoveryNotPending),
		errors.Is(err, service.ErrRelieveExceedsExcess),
		errors.Is(err, service.ErrAttendanceDuplicate):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrLockTimeout):
		return utils.SendError(c, fiber.StatusConflict, "another change for this record is in progress, retry")
	case errors.Is(err, service.ErrStoreUnavailable):
		requestLogger(logger, c).Warn().Err(err).Str("subject", subject).Msg("store unavailable")
		c.Set(fiber.HeaderRetryAfter, "5")
		return utils.SendError(c, fiber.StatusServiceUnavailable, subject+" unavailable, retry")
	default:
		requestLogger(logger, c).Error().Err(err).Str("subject", subject).Msg("request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to process "+subject)
	}
}

func cacheHeader(c *fiber.Ctx, hit bool) {
	c.Set("X-Cache-Hit", strconv.FormatBool(hit))
}
