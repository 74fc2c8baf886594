package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/repositories"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/services"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/utils"
)

const webhookSecret = "whsec-test"

// ===== STUBS =====

type fakeParser map[string]*casdoorsdk.Claims

func (f fakeParser) ParseJwtToken(token string) (*casdoorsdk.Claims, error) {
	if c, ok := f[token]; ok {
		return c, nil
	}
	return nil, errors.New("signature is invalid")
}

// missingUsers makes the middleware fall back to token claims
type missingUsers struct{ repositories.UserRepository }

func (missingUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	return nil, repositories.ErrNotFound
}

type stubTests struct {
	services.TestService
	gotOwner string
	gotReq   *models.TestCreateRequest
	err      error
}

func (s *stubTests) Create(ctx context.Context, req *models.TestCreateRequest, ownerID string) (*models.Test, error) {
	s.gotOwner, s.gotReq = ownerID, req
	if s.err != nil {
		return nil, s.err
	}
	return &models.Test{ID: 7, Name: req.Name, OwnerID: ownerID, Status: models.TestDraft}, nil
}

func (s *stubTests) GetByID(ctx context.Context, id uint, userID string) (*models.Test, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Test{ID: id, OwnerID: userID}, nil
}

func (s *stubTests) Publish(ctx context.Context, id uint, userID string) (*models.Test, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Test{ID: id, OwnerID: userID, Status: models.TestActive}, nil
}

func (s *stubTests) List(ctx context.Context, ownerID string, filters repositories.TestFilters) ([]*models.Test, int64, error) {
	return []*models.Test{{ID: 1, OwnerID: ownerID}}, 41, nil
}

type stubInvites struct {
	services.InviteService
	err error
}

func (s *stubInvites) IssueInvite(ctx context.Context, testID uint, email, issuerID string) (*models.TestInvite, error) {
	inv := &models.TestInvite{ID: 3, TestID: testID, Email: email, IssuedBy: issuerID}
	return inv, s.err
}

type stubAttempts struct {
	services.AttemptService
	submitErr error
}

func (s *stubAttempts) Redeem(ctx context.Context, req *models.RedeemRequest) (*models.TestAttempt, error) {
	return &models.TestAttempt{ID: 11, TestID: 1}, nil
}

func (s *stubAttempts) Submit(ctx context.Context, attemptID uint, req *models.SubmitRequest) (*models.SubmitResult, error) {
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	return &models.SubmitResult{Attempt: &models.TestAttempt{ID: attemptID}, MaxScore: 5}, nil
}

type stubSubscriptions struct {
	services.SubscriptionService
	events []models.BillingEvent
	tierOf map[string]models.Tier
}

func (s *stubSubscriptions) HandleBillingEvent(ctx context.Context, event *models.BillingEvent) error {
	s.events = append(s.events, *event)
	return nil
}

func (s *stubSubscriptions) SetTier(ctx context.Context, userID string, tier models.Tier) (*models.Subscription, error) {
	if s.tierOf == nil {
		s.tierOf = map[string]models.Tier{}
	}
	s.tierOf[userID] = tier
	return &models.Subscription{UserID: userID, Tier: tier}, nil
}

type stubManager struct {
	tests     *stubTests
	invites   *stubInvites
	attempts  *stubAttempts
	subs      *stubSubscriptions
	healthErr error
}

func (m *stubManager) Test() services.TestService                 { return m.tests }
func (m *stubManager) Question() services.QuestionService         { return nil }
func (m *stubManager) Invite() services.InviteService             { return m.invites }
func (m *stubManager) Attempt() services.AttemptService           { return m.attempts }
func (m *stubManager) Analytics() services.AnalyticsService       { return nil }
func (m *stubManager) Subscription() services.SubscriptionService { return m.subs }
func (m *stubManager) Initialize(ctx context.Context) error       { return nil }
func (m *stubManager) HealthCheck(ctx context.Context) error      { return m.healthErr }
func (m *stubManager) Shutdown(ctx context.Context) error         { return nil }

// ===== HARNESS =====

func claimsFor(id string, roles ...string) *casdoorsdk.Claims {
	c := &casdoorsdk.Claims{}
	c.User.Id = id
	c.User.Name = id
	c.User.Email = id + "@school.example"
	for _, r := range roles {
		c.User.Roles = append(c.User.Roles, &casdoorsdk.Role{Name: r})
	}
	return c
}

func newRouter(t *testing.T, sm *stubManager) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	auth := &CasdoorAuthMiddleware{
		parser: fakeParser{
			"teacher-token": claimsFor("teacher-1", "teacher"),
			"student-token": claimsFor("student-1"),
			"admin-token":   claimsFor("admin-1", "admin"),
		},
		userRepo: missingUsers{},
		logger:   logger,
	}

	router := gin.New()
	SetupMiddleware(router, logger, []string{"https://app.example.com"})
	newHandlerManager(sm, logger, auth, webhookSecret).SetupRoutes(router)
	return router
}

func newStubManager() *stubManager {
	return &stubManager{
		tests:    &stubTests{},
		invites:  &stubInvites{},
		attempts: &stubAttempts{},
		subs:     &stubSubscriptions{},
	}
}

func do(router *gin.Engine, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// ===== TESTS =====

func TestHealth(t *testing.T) {
	sm := newStubManager()
	router := newRouter(t, sm)

	w := do(router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	sm.healthErr = errors.New("database down")
	w = do(router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAuth(t *testing.T) {
	router := newRouter(t, newStubManager())

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"bad token", "forged", http.StatusUnauthorized},
		{"student cannot author", "student-token", http.StatusForbidden},
		{"teacher", "teacher-token", http.StatusOK},
		{"admin passes teacher routes", "admin-token", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, http.MethodGet, "/api/v1/tests/5", tt.token, nil)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestCreateTest_UsesCallerAsOwner(t *testing.T) {
	sm := newStubManager()
	router := newRouter(t, sm)

	w := do(router, http.MethodPost, "/api/v1/tests", "teacher-token", map[string]any{"name": "Algebra"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "teacher-1", sm.tests.gotOwner)
	assert.Equal(t, "Algebra", sm.tests.gotReq.Name)

	w = do(router, http.MethodPost, "/api/v1/tests", "teacher-token", "not an object")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListTests_Pagination(t *testing.T) {
	router := newRouter(t, newStubManager())

	w := do(router, http.MethodGet, "/api/v1/tests?page=3&size=10", "teacher-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 41, body["total"])
	assert.EqualValues(t, 3, body["page"])
	assert.EqualValues(t, 10, body["size"])
}

func TestInvalidIDParam(t *testing.T) {
	router := newRouter(t, newStubManager())
	w := do(router, http.MethodGet, "/api/v1/tests/abc", "teacher-token", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(router, http.MethodGet, "/api/v1/tests/0", "teacher-token", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", services.ErrTestNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("failed to load: %w", repositories.ErrNotFound), http.StatusNotFound},
		{"permission", services.NewPermissionError("teacher-1", 5, "test", "publish", "not the owner"), http.StatusForbidden},
		{"invalid token", services.ErrInvalidToken, http.StatusForbidden},
		{"locked", services.ErrTestLocked, http.StatusConflict},
		{"no questions", fmt.Errorf("publish: %w", services.ErrTestHasNoQuestions), http.StatusConflict},
		{"transition", services.ErrInvalidStatusTransition, http.StatusConflict},
		{"validation", services.NewValidationError("name", "is required", ""), http.StatusBadRequest},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := newStubManager()
			sm.tests.err = tt.err
			router := newRouter(t, sm)

			w := do(router, http.MethodPost, "/api/v1/tests/5/publish", "teacher-token", nil)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			if tt.want == http.StatusInternalServerError {
				assert.NotContains(t, w.Body.String(), "connection reset")
			}
		})
	}
}

func TestQuotaErrorCarriesRule(t *testing.T) {
	sm := newStubManager()
	sm.tests.err = services.NewBusinessRuleError(services.ErrQuotaExceeded, "test_limit",
		"free tier allows 5 tests per period", map[string]interface{}{"limit": 5})
	router := newRouter(t, sm)

	w := do(router, http.MethodPost, "/api/v1/tests", "teacher-token", map[string]any{"name": "Sixth"})
	require.Equal(t, http.StatusConflict, w.Code)

	details := decode(t, w)["details"].(map[string]any)
	assert.Equal(t, "test_limit", details["rule"])
	assert.EqualValues(t, 5, details["context"].(map[string]any)["limit"])
}

func TestIssueInvite_EmailFailureIsAccepted(t *testing.T) {
	sm := newStubManager()
	router := newRouter(t, sm)

	w := do(router, http.MethodPost, "/api/v1/tests/1/invites", "teacher-token", map[string]any{"email": "s@x.io"})
	assert.Equal(t, http.StatusCreated, w.Code)

	sm.invites.err = fmt.Errorf("%w: smtp timeout", services.ErrEmailDelivery)
	w = do(router, http.MethodPost, "/api/v1/tests/1/invites", "teacher-token", map[string]any{"email": "s@x.io"})
	assert.Equal(t, http.StatusAccepted, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	assert.EqualValues(t, 3, data["id"])
}

func TestTakeRoutesArePublic(t *testing.T) {
	sm := newStubManager()
	router := newRouter(t, sm)

	w := do(router, http.MethodPost, "/api/v1/take/redeem", "", map[string]any{
		"token": "abcdefghijklmnopqrstuvwxyz", "first_name": "Grace", "last_name": "Hopper",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = do(router, http.MethodGet, "/api/v1/take/attempts/11", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "token query is required")

	submit := map[string]any{"token": "abcdefghijklmnopqrstuvwxyz", "answers": []any{}}
	w = do(router, http.MethodPost, "/api/v1/take/attempts/11/submit", "", submit)
	assert.Equal(t, http.StatusOK, w.Code)

	sm.attempts.submitErr = services.ErrAttemptAlreadySubmitted
	w = do(router, http.MethodPost, "/api/v1/take/attempts/11/submit", "", submit)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBillingWebhook(t *testing.T) {
	sm := newStubManager()
	router := newRouter(t, sm)
	event := map[string]any{"type": "payment.succeeded", "subscription_id": "sub_1"}

	w := do(router, http.MethodPost, "/api/v1/billing/webhook", "", event)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(router, http.MethodPost, "/api/v1/billing/webhook", "", event, webhookTokenHeader, "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, sm.subs.events)

	w = do(router, http.MethodPost, "/api/v1/billing/webhook", "", event, webhookTokenHeader, webhookSecret)
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, sm.subs.events, 1)
	assert.Equal(t, models.BillingPaymentSucceeded, sm.subs.events[0].Type)
}

func TestBillingWebhook_DisabledWithoutSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewSubscriptionHandler(&stubSubscriptions{}, "", utils.NewSlogLogger(nil))

	router := gin.New()
	router.POST("/hook", h.RequireWebhookToken(), h.BillingWebhook)

	w := do(router, http.MethodPost, "/hook", "", map[string]any{"type": "payment.failed"}, webhookTokenHeader, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAdminSetTier(t *testing.T) {
	sm := newStubManager()
	router := newRouter(t, sm)
	body := map[string]any{"tier": "pro"}

	w := do(router, http.MethodPut, "/api/v1/admin/subscriptions/teacher-9/tier", "teacher-token", body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(router, http.MethodPut, "/api/v1/admin/subscriptions/teacher-9/tier", "admin-token", body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.TierPro, sm.subs.tierOf["teacher-9"])
}

func TestCORSPreflight(t *testing.T) {
	router := newRouter(t, newStubManager())

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/tests", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/tests", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
