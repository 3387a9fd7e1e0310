package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-reconcile-api/internal/config"
	"github.com/noah-isme/academy-reconcile-api/internal/handler"
	"github.com/noah-isme/academy-reconcile-api/internal/models"
	"github.com/noah-isme/academy-reconcile-api/internal/service"
)

type stubActivityService struct {
	last service.ActivityQuery
}

var _ service.ActivityService = (*stubActivityService)(nil)

func (s *stubActivityService) Record(context.Context, service.ActivityEntry) (models.ActivityLog, error) {
	return models.ActivityLog{}, nil
}

func (s *stubActivityService) Recent(_ context.Context, query service.ActivityQuery) ([]models.ActivityLog, error) {
	s.last = query
	return []models.ActivityLog{{Action: query.Action}}, nil
}

func TestActivityHandlerRecent(t *testing.T) {
	svc := &stubActivityService{}
	app := fiber.New()
	handler.NewActivityHandler(svc, zerolog.Nop()).Register(app.Group("/api/v1/activity"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/activity?limit=10&action=remediation.suspend&entity_type=student&entity_id=4", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, 10, svc.last.Limit)
	require.Equal(t, "remediation.suspend", svc.last.Action)
	require.Equal(t, "student", svc.last.EntityType)
	require.NotNil(t, svc.last.EntityID)
	require.Equal(t, uint(4), *svc.last.EntityID)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/activity?entity_id=abc", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/activity?limit=-1", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHealthCheckReportsDependencies(t *testing.T) {
	cfg := config.Config{AppName: "academy", AppEnv: "test"}

	app := fiber.New()
	app.Get("/healthy", handler.HealthCheck(cfg, handler.HealthProbe{Name: "postgres", Check: func(context.Context) error { return nil }}))
	app.Get("/degraded", handler.HealthCheck(cfg,
		handler.HealthProbe{Name: "postgres", Check: func(context.Context) error { return nil }},
		handler.HealthProbe{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }},
	))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthy", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/degraded", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
