package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/access"
	"github.com/spec-kit/grievance-service/internal/adapters/stub"
	"github.com/spec-kit/grievance-service/internal/api/http/handlers"
	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/lifecycle"
	"github.com/spec-kit/grievance-service/internal/locking"
	"github.com/spec-kit/grievance-service/internal/observability"
	"github.com/spec-kit/grievance-service/internal/ratelimit"
	"github.com/spec-kit/grievance-service/internal/repository"
	"github.com/spec-kit/grievance-service/internal/service"
	"github.com/spec-kit/grievance-service/internal/sweeper"
	"github.com/spec-kit/grievance-service/internal/ticketcode"
	"github.com/spec-kit/grievance-service/internal/wards"
)

type testServer struct {
	app      *fiber.App
	tokens   *auth.TokenManager
	officers *service.OfficerService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir, err := wards.Default()
	require.NoError(t, err)

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	resolver := access.NewResolver(access.DefaultTable(), dir)
	machine := lifecycle.NewMachine(lifecycle.DefaultConfig(), domain.DefaultDepartments(), resolver)
	tickets := repository.NewMemoryTickets()
	officerRepo := repository.NewMemoryOfficers()
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	ticketSvc := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  tickets,
		AuditRepo:   tickets,
		Assignments: service.NewAssignmentService(officerRepo),
		Machine:     machine,
		Access:      resolver,
		Wards:       dir,
		Codes:       ticketcode.NewLocalGenerator("CIV"),
		Locker:      locking.NewLocalLocker(),
		Limiter:     ratelimit.NewLocalLimiter(nil),
		Classifier:  stub.NewKeywordClassifier(domain.DefaultDepartments()),
		Verifier:    stub.PhotoVerifier{},
		Evidence:    stub.NewMemoryEvidence(),
		Dispatcher:  events.NewInMemoryDispatcher(logger),
		Logger:      logger,
		Metrics:     metrics,
	})
	officerSvc := service.NewOfficerService(service.OfficerDependencies{
		OfficerRepo: officerRepo,
		Wards:       dir,
		Departments: domain.DefaultDepartments(),
		BcryptCost:  4,
	})
	authSvc := service.NewAuthService(config.AuthConfig{BcryptCost: 4}, officerRepo, tokens, logger)
	sw := sweeper.New(sweeper.Dependencies{Machine: machine, Tickets: ticketSvc, Officers: ticketSvc})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("grievance-service", "test", nil),
		Complaints:     handlers.NewComplaintsHandler(ticketSvc),
		Officers:       handlers.NewOfficerHandler(authSvc, officerSvc),
		OfficerTickets: handlers.NewOfficerTicketsHandler(ticketSvc),
		Admin:          handlers.NewAdminHandler(sw, nil),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, officerRepo),
	})
	return &testServer{app: app, tokens: tokens, officers: officerSvc}
}

func (s *testServer) officerToken(t *testing.T, in service.OfficerInput) string {
	t.Helper()
	in.Password = "longenough"
	officer, err := s.officers.CreateOfficer(context.Background(), domain.Actor{ID: "root", Role: domain.RoleSuperAdmin}, in)
	require.NoError(t, err)
	token, _, err := s.tokens.GenerateToken(*officer)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp.StatusCode, decoded
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

const complaint = `{"source":"WEB_PORTAL","description":"Large pothole on the main road near the bridge","ward_id":10,"reporter_phone":"+919800000001","consent_given":true}`

func TestComplaintIntakeAndTracking(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, fiber.MethodPost, "/complaints", "", complaint)
	require.Equal(t, fiber.StatusCreated, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, "CIV-"+time.Now().UTC().Format("2006")+"-00001", data["code"])
	assert.Equal(t, "OPEN", data["status"])
	assert.NotContains(t, data, "reporter_phone")

	code := data["code"].(string)
	status, body = s.do(t, fiber.MethodGet, "/track/"+strings.ToLower(code), "", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "D01", body["data"].(map[string]any)["department_id"])

	status, body = s.do(t, fiber.MethodPost, "/track/"+code+"/feedback", "", `{"phone":"+919800000001","fixed":true}`)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "ILLEGAL_TRANSITION", errorCode(body))
}

func TestComplaintResponses(t *testing.T) {
	cases := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "needs clarification",
			body:       `{"source":"WEB_PORTAL","description":"Please help","ward_id":10,"consent_given":true}`,
			wantStatus: fiber.StatusAccepted,
		},
		{
			name:       "consent missing",
			body:       `{"source":"WHATSAPP","description":"Overflowing garbage","ward_id":10}`,
			wantStatus: fiber.StatusBadRequest,
			wantCode:   "CONSENT_REQUIRED",
		},
		{
			name:       "unknown ward",
			body:       `{"source":"NEWS","description":"Overflowing garbage","ward_id":9999}`,
			wantStatus: fiber.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "malformed json",
			body:       `{"source":`,
			wantStatus: fiber.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t)
			status, body := s.do(t, fiber.MethodPost, "/complaints", "", tc.body)
			assert.Equal(t, tc.wantStatus, status)
			if tc.wantCode != "" {
				assert.Equal(t, tc.wantCode, errorCode(body))
			} else {
				assert.Contains(t, body["data"], "clarification")
			}
		})
	}
}

func TestOfficerRoutesEnforceAuthentication(t *testing.T) {
	s := newTestServer(t)
	ward := s.officerToken(t, service.OfficerInput{Name: "Asha", Email: "asha@city.gov", Role: domain.RoleWardOfficer, WardID: 10})
	admin := s.officerToken(t, service.OfficerInput{Name: "Root", Email: "root@city.gov", Role: domain.RoleSuperAdmin})

	status, _ := s.do(t, fiber.MethodPost, "/complaints", "", complaint)
	require.Equal(t, fiber.StatusCreated, status)

	cases := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
		wantCode   string
	}{
		{name: "no token", method: fiber.MethodGet, path: "/officer/tickets", wantStatus: fiber.StatusUnauthorized, wantCode: "UNAUTHORIZED"},
		{name: "bad token", method: fiber.MethodGet, path: "/officer/tickets", token: "nope", wantStatus: fiber.StatusUnauthorized, wantCode: "UNAUTHORIZED"},
		{name: "ward officer lists own ward", method: fiber.MethodGet, path: "/officer/tickets", token: ward, wantStatus: fiber.StatusOK},
		{name: "ward officer asks for another ward", method: fiber.MethodGet, path: "/officer/tickets?ward_id=11", token: ward, wantStatus: fiber.StatusForbidden, wantCode: "SCOPE_DENIED"},
		{name: "ward officer cannot sweep", method: fiber.MethodPost, path: "/admin/sweep", token: ward, wantStatus: fiber.StatusForbidden, wantCode: "SCOPE_DENIED"},
		{name: "super admin sweeps", method: fiber.MethodPost, path: "/admin/sweep?mode=rescore", token: admin, wantStatus: fiber.StatusOK},
		{name: "unknown route", method: fiber.MethodGet, path: "/nowhere", wantStatus: fiber.StatusNotFound, wantCode: "NOT_FOUND"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := s.do(t, tc.method, tc.path, tc.token, "")
			assert.Equal(t, tc.wantStatus, status)
			if tc.wantCode != "" {
				assert.Equal(t, tc.wantCode, errorCode(body))
			}
		})
	}
}

func TestOfficerActionFlow(t *testing.T) {
	s := newTestServer(t)
	ward := s.officerToken(t, service.OfficerInput{Name: "Asha", Email: "asha@city.gov", Role: domain.RoleWardOfficer, WardID: 10})

	_, body := s.do(t, fiber.MethodPost, "/complaints", "", complaint)
	code := body["data"].(map[string]any)["code"].(string)

	status, body := s.do(t, fiber.MethodPost, "/officer/tickets/"+code+"/actions", ward, `{"action":"accept"}`)
	require.Equal(t, fiber.StatusOK, status)
	ticket := body["data"].(map[string]any)["ticket"].(map[string]any)
	assert.Equal(t, "ASSIGNED", ticket["status"])

	status, body = s.do(t, fiber.MethodPost, "/officer/tickets/"+code+"/actions", ward, `{"action":"mark_complete"}`)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "ILLEGAL_TRANSITION", errorCode(body))

	status, body = s.do(t, fiber.MethodPost, "/officer/approvals/resolve", ward, `{"amount":"25000"}`)
	require.Equal(t, fiber.StatusOK, status)
	decision := body["data"].(map[string]any)
	assert.Equal(t, "manual", decision["outcome"])
	assert.Equal(t, "ZONAL_OFFICER", decision["escalate_to"])

	status, body = s.do(t, fiber.MethodGet, "/officer/tickets/"+code+"/audit", ward, "")
	require.Equal(t, fiber.StatusOK, status)
	trail := body["data"].(map[string]any)
	assert.Equal(t, true, trail["verified"])
	assert.Len(t, trail["events"], 2)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, fiber.MethodGet, "/health/ready", "", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ready", body["status"])
}
