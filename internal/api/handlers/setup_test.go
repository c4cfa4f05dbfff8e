package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/remlyo/remlyo/internal/api/middleware"
	"github.com/remlyo/remlyo/internal/config"
	"github.com/remlyo/remlyo/internal/domain/entitlement"
	"github.com/remlyo/remlyo/internal/domain/payment"
	"github.com/remlyo/remlyo/internal/domain/plan"
	"github.com/remlyo/remlyo/internal/domain/subscription"
	"github.com/remlyo/remlyo/internal/domain/user"
	"github.com/remlyo/remlyo/internal/pkg/lock"
	"github.com/remlyo/remlyo/internal/pkg/logger"
	"github.com/remlyo/remlyo/internal/pkg/validator"
	"github.com/remlyo/remlyo/internal/services"
	"github.com/remlyo/remlyo/internal/testutil"
)

// testEnv wires real services over the in-memory repositories
type testEnv struct {
	cfg      *config.Config
	log      *logger.Logger
	val      *validator.Validator
	users    *testutil.MockUserRepository
	plans    *testutil.MockPlanRepository
	subs     *testutil.MockSubscriptionRepository
	access   *testutil.MockAccessRepository
	provider *testutil.MockPaymentProvider
	catalog  map[plan.Name]*plan.Plan

	userService  user.Service
	planService  plan.Service
	subService   subscription.Service
	entitlements entitlement.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	e := &testEnv{
		cfg: &config.Config{
			Server: config.ServerConfig{Environment: "test"},
			Auth: config.AuthConfig{
				JWTSecret:          "handler-test-secret",
				AccessTokenExpiry:  time.Minute,
				RefreshTokenExpiry: time.Hour,
				BCryptCost:         4,
				AdminEmails:        []string{"admin@remlyo.io"},
			},
		},
		log:      logger.NewWithWriter(io.Discard, "error"),
		val:      validator.New(),
		users:    testutil.NewMockUserRepository(),
		plans:    testutil.NewMockPlanRepository(),
		subs:     testutil.NewMockSubscriptionRepository(),
		access:   testutil.NewMockAccessRepository(),
		provider: testutil.NewMockPaymentProvider(),
	}
	e.catalog = e.plans.Seed()

	e.userService = services.NewUserService(e.users, e.log, e.cfg.Auth)
	e.planService = services.NewPlanService(e.plans, e.log)
	e.subService = services.NewSubscriptionService(e.subs, e.access, e.plans, e.users, lock.NewMemoryLocker(0), time.Second, e.log)
	e.entitlements = services.NewAccessService(e.subService, e.access, e.log)
	return e
}

// payments returns a payment service; nil disables the provider
func (e *testEnv) payments(provider payment.Provider) payment.Service {
	return services.NewPaymentService(provider, e.subService, e.entitlements, e.access, "usd", e.log)
}

func (e *testEnv) newUser(t *testing.T, email string) int64 {
	t.Helper()
	u := &user.User{Email: email, Role: user.RoleUser}
	if err := e.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.ID
}

func (e *testEnv) subscribe(t *testing.T, userID int64, name plan.Name) {
	t.Helper()
	if _, err := e.subService.Subscribe(context.Background(), userID, e.catalog[name].ID); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
}

// newRequest builds a request carrying userID (when non-zero) and chi URL params
func newRequest(method, target string, body interface{}, userID int64, params map[string]string) *http.Request {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")

	ctx := req.Context()
	if userID != 0 {
		ctx = context.WithValue(ctx, middleware.UserIDKey, userID)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func remedyPath(ailmentID, remedyID string) map[string]string {
	return map[string]string{
		middleware.AilmentIDParam: ailmentID,
		middleware.RemedyIDParam:  remedyID,
	}
}

// envelope mirrors the success and error response shapes
type envelope struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data"`
	Message  string          `json:"message"`
	Required string          `json:"required"`
	Error    struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(rr.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return env
}

func decodeData(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
}
