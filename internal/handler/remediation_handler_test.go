package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-reconcile-api/internal/dto"
	"github.com/noah-isme/academy-reconcile-api/internal/handler"
	"github.com/noah-isme/academy-reconcile-api/internal/middleware"
	"github.com/noah-isme/academy-reconcile-api/internal/service"
)

type stubRemediationService struct {
	err         error
	lastStudent uint
	lastClass   uint
	lastIDs     []uint
	lastActor   service.ActivityActor
	changed     bool
}

var _ service.DebtRemediationService = (*stubRemediationService)(nil)

func (s *stubRemediationService) Suspend(_ context.Context, studentID uint, actor service.ActivityActor) (dto.RemediationResponse, error) {
	s.lastStudent, s.lastActor = studentID, actor
	if s.err != nil {
		return dto.RemediationResponse{}, s.err
	}
	return dto.RemediationResponse{StudentID: studentID, Action: "suspend", State: dto.RemediationStateReleased, Changed: s.changed, ClassIDs: []uint{1}}, nil
}

func (s *stubRemediationService) Reinstate(_ context.Context, studentID uint, actor service.ActivityActor) (dto.RemediationResponse, error) {
	s.lastStudent, s.lastActor = studentID, actor
	if s.err != nil {
		return dto.RemediationResponse{}, s.err
	}
	return dto.RemediationResponse{StudentID: studentID, Action: "reinstate", State: dto.RemediationStateAssigned, Changed: s.changed, ClassIDs: []uint{}}, nil
}

func (s *stubRemediationService) State(_ context.Context, studentID uint) (dto.RemediationStateResponse, error) {
	s.lastStudent = studentID
	if s.err != nil {
		return dto.RemediationStateResponse{}, s.err
	}
	return dto.RemediationStateResponse{StudentID: studentID, State: dto.RemediationStateNone}, nil
}

func (s *stubRemediationService) RelieveOverCapacity(_ context.Context, classID uint, studentIDs []uint, actor service.ActivityActor) (dto.RelieveCapacityResponse, error) {
	s.lastClass, s.lastIDs, s.lastActor = classID, studentIDs, actor
	if s.err != nil {
		return dto.RelieveCapacityResponse{}, s.err
	}
	return dto.RelieveCapacityResponse{ClassID: classID, Removed: studentIDs, Assigned: 4, MaxSeats: 4}, nil
}

func remediationApp(svc service.DebtRemediationService, guards ...fiber.Handler) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1/remediation", func(c *fiber.Ctx) error {
		c.Locals(middleware.LocalUserID, uint(42))
		c.Locals(middleware.LocalUserRole, "operator")
		return c.Next()
	})
	handler.NewRemediationHandler(svc, nil, zerolog.Nop()).Register(group, guards...)
	return app
}

func decodeMessage(t *testing.T, resp *http.Response) string {
	t.Helper()
	var payload struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	resp.Body.Close()
	return payload.Message
}

func TestRemediationSuspendPassesActor(t *testing.T) {
	svc := &stubRemediationService{changed: true}
	app := remediationApp(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/remediation/students/7/suspend", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "student suspended for debt", decodeMessage(t, resp))
	require.Equal(t, uint(7), svc.lastStudent)
	require.Equal(t, service.ActivityActor{ID: 42, Role: "operator"}, svc.lastActor)

	svc.changed = false
	req = httptest.NewRequest(http.MethodPost, "/api/v1/remediation/students/7/reinstate", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "no released seats to reinstate", decodeMessage(t, resp))
}

func TestRemediationErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{service.ErrStudentNotFound, fiber.StatusNotFound},
		{fmt.Errorf("%w: class 1", service.ErrRelieveExceedsExcess), fiber.StatusConflict},
		{service.ErrLockTimeout, fiber.StatusConflict},
		{&service.FetchError{Source: "remediation", Err: context.DeadlineExceeded}, fiber.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		app := remediationApp(&stubRemediationService{err: tc.err})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/remediation/students/7/suspend", nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		require.Equal(t, tc.status, resp.StatusCode, tc.err.Error())
	}

	app := remediationApp(&stubRemediationService{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/remediation/students/abc", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestRemediationRelieveValidatesSelection(t *testing.T) {
	svc := &stubRemediationService{}
	app := remediationApp(svc)

	for _, body := range []string{`{"student_ids":[]}`, `{"student_ids":[0]}`, `not-json`} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/remediation/classes/3/relieve", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode, body)
	}
	require.Zero(t, svc.lastClass)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/remediation/classes/3/relieve", strings.NewReader(`{"student_ids":[5,6]}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(3), svc.lastClass)
	require.Equal(t, []uint{5, 6}, svc.lastIDs)
}

func TestRemediationWriteGuardsSkipReads(t *testing.T) {
	svc := &stubRemediationService{}
	blocked := func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusTooManyRequests)
	}
	app := remediationApp(svc, blocked)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/remediation/students/7/suspend", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	require.Zero(t, svc.lastStudent)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/remediation/students/7", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(7), svc.lastStudent)
}
