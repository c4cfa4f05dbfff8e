package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/remlyo/remlyo/internal/api/dto"
	"github.com/remlyo/remlyo/internal/domain/plan"
	"github.com/remlyo/remlyo/internal/domain/subscription"
)

func newSubscriptionHandler(e *testEnv) *SubscriptionHandler {
	return NewSubscriptionHandler(e.planService, e.subService, e.entitlements, e.log, e.val)
}

func TestSubscriptionHandler_Initialize(t *testing.T) {
	e := newTestEnv(t)
	handler := newSubscriptionHandler(e)

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		handler.Initialize(rr, newRequest(http.MethodPost, "/api/subscriptions/initialize", nil, 1, nil))

		if rr.Code != http.StatusOK {
			t.Fatalf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
		}
		env := decodeEnvelope(t, rr)
		var resp dto.InitializeResponse
		decodeData(t, env, &resp)
		if resp.Written != len(plan.Names()) {
			t.Errorf("written = %d, want %d", resp.Written, len(plan.Names()))
		}
		if env.Message == "" {
			t.Error("expected a message")
		}
	}

	count, _ := e.plans.Count(context.Background())
	if count != int64(len(plan.Names())) {
		t.Errorf("plans stored = %d, want %d", count, len(plan.Names()))
	}
}

func TestSubscriptionHandler_ListPlans(t *testing.T) {
	e := newTestEnv(t)
	handler := newSubscriptionHandler(e)

	rr := httptest.NewRecorder()
	handler.ListPlans(rr, newRequest(http.MethodGet, "/api/subscriptions/plans", nil, 0, nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
	}
	var plans []plan.Plan
	decodeData(t, decodeEnvelope(t, rr), &plans)
	if len(plans) != len(plan.Names()) {
		t.Fatalf("got %d plans, want %d", len(plans), len(plan.Names()))
	}
	for i := 1; i < len(plans); i++ {
		if plans[i-1].Price > plans[i].Price {
			t.Errorf("plans not ordered by price: %v before %v", plans[i-1].Name, plans[i].Name)
		}
	}
}

func TestSubscriptionHandler_Subscribe(t *testing.T) {
	e := newTestEnv(t)
	handler := newSubscriptionHandler(e)
	userID := e.newUser(t, "sub@remlyo.io")

	tests := []struct {
		name           string
		userID         int64
		body           interface{}
		expectedStatus int
	}{
		{
			name:           "premium",
			userID:         userID,
			body:           dto.SubscribeRequest{PlanID: e.catalog[plan.NamePremium].ID},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing plan id",
			userID:         userID,
			body:           map[string]string{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown plan",
			userID:         userID,
			body:           dto.SubscribeRequest{PlanID: "does-not-exist"},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "by plan name",
			userID:         userID,
			body:           map[string]string{"plan": "pay-per-remedy"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "unknown plan name",
			userID:         userID,
			body:           map[string]string{"plan": "enterprise"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unauthenticated",
			body:           dto.SubscribeRequest{PlanID: e.catalog[plan.NameFree].ID},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handler.Subscribe(rr, newRequest(http.MethodPost, "/api/subscriptions/subscribe", tt.body, tt.userID, nil))

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, tt.expectedStatus)
			}
		})
	}

	t.Run("invalid json", func(t *testing.T) {
		req := newRequest(http.MethodPost, "/api/subscriptions/subscribe", "not-an-object", userID, nil)
		rr := httptest.NewRecorder()
		handler.Subscribe(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusBadRequest)
		}
	})
}

func TestSubscriptionHandler_CurrentAndCancel(t *testing.T) {
	e := newTestEnv(t)
	handler := newSubscriptionHandler(e)
	userID := e.newUser(t, "current@remlyo.io")

	rr := httptest.NewRecorder()
	handler.Current(rr, newRequest(http.MethodGet, "/api/subscriptions/current", nil, userID, nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("current without subscription: got %v want %v", rr.Code, http.StatusNotFound)
	}

	e.subscribe(t, userID, plan.NameFree)

	rr = httptest.NewRecorder()
	handler.Current(rr, newRequest(http.MethodGet, "/api/subscriptions/current", nil, userID, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("current: got %v want %v", rr.Code, http.StatusOK)
	}
	var sub subscription.Subscription
	decodeData(t, decodeEnvelope(t, rr), &sub)
	if sub.Plan == nil || sub.Plan.Name != plan.NameFree {
		t.Errorf("expected populated free plan, got %+v", sub.Plan)
	}
	if sub.RemedyAccess == nil {
		t.Error("expected remedyAccess to be an empty list, got null")
	}

	rr = httptest.NewRecorder()
	handler.Cancel(rr, newRequest(http.MethodPost, "/api/subscriptions/cancel", nil, userID, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("cancel: got %v want %v", rr.Code, http.StatusOK)
	}

	rr = httptest.NewRecorder()
	handler.Cancel(rr, newRequest(http.MethodPost, "/api/subscriptions/cancel", nil, userID, nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("second cancel: got %v want %v", rr.Code, http.StatusNotFound)
	}

	rr = httptest.NewRecorder()
	handler.History(rr, newRequest(http.MethodGet, "/api/subscriptions/history", nil, userID, nil))
	var history []subscription.Subscription
	decodeData(t, decodeEnvelope(t, rr), &history)
	if len(history) != 1 || history[0].Status != subscription.StatusCancelled {
		t.Errorf("history = %+v, want one cancelled subscription", history)
	}
}

func TestSubscriptionHandler_History_Empty(t *testing.T) {
	e := newTestEnv(t)
	handler := newSubscriptionHandler(e)

	rr := httptest.NewRecorder()
	handler.History(rr, newRequest(http.MethodGet, "/api/subscriptions/history", nil, e.newUser(t, "h@remlyo.io"), nil))

	env := decodeEnvelope(t, rr)
	if string(env.Data) != "[]" {
		t.Errorf("data = %s, want []", env.Data)
	}
}

func TestSubscriptionHandler_CheckAccess(t *testing.T) {
	e := newTestEnv(t)
	handler := newSubscriptionHandler(e)

	noSub := e.newUser(t, "nosub@remlyo.io")
	free := e.newUser(t, "free@remlyo.io")
	e.subscribe(t, free, plan.NameFree)
	ppr := e.newUser(t, "ppr@remlyo.io")
	e.subscribe(t, ppr, plan.NamePayPerRemedy)

	tests := []struct {
		name           string
		userID         int64
		ailmentID      string
		expectedStatus int
		wantAccess     bool
		wantRequired   string
		wantReason     string
	}{
		{name: "no subscription", userID: noSub, ailmentID: "a1", expectedStatus: http.StatusForbidden, wantRequired: "subscription"},
		{name: "free allowed", userID: free, ailmentID: "a1", expectedStatus: http.StatusOK, wantAccess: true},
		{name: "pay per remedy unpurchased", userID: ppr, ailmentID: "a1", expectedStatus: http.StatusOK, wantReason: "purchase"},
		{name: "invalid id", userID: free, ailmentID: "bad id!", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := newRequest(http.MethodGet, "/api/subscriptions/check-access", nil, tt.userID, remedyPath(tt.ailmentID, "r1"))
			handler.CheckAccess(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Fatalf("handler returned wrong status code: got %v want %v", rr.Code, tt.expectedStatus)
			}
			env := decodeEnvelope(t, rr)
			switch rr.Code {
			case http.StatusForbidden:
				if env.Required != tt.wantRequired {
					t.Errorf("required = %q, want %q", env.Required, tt.wantRequired)
				}
			case http.StatusOK:
				var resp dto.AccessResponse
				decodeData(t, env, &resp)
				if resp.HasAccess != tt.wantAccess {
					t.Errorf("hasAccess = %v, want %v", resp.HasAccess, tt.wantAccess)
				}
				if string(resp.Reason) != tt.wantReason {
					t.Errorf("reason = %q, want %q", resp.Reason, tt.wantReason)
				}
			}
		})
	}

	// Checking never consumes the free allowance.
	for i := 0; i < 5; i++ {
		rr := httptest.NewRecorder()
		handler.CheckAccess(rr, newRequest(http.MethodGet, "/", nil, free, remedyPath("a9", "r1")))
	}
	if a, _ := e.access.Get(context.Background(), free, "a9"); a != nil && a.AccessCount != 0 {
		t.Errorf("access count = %d after checks, want 0", a.AccessCount)
	}
}
