package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/remlyo/remlyo/internal/api/dto"
	"github.com/remlyo/remlyo/internal/domain/payment"
	"github.com/remlyo/remlyo/internal/domain/plan"
)

func webhookRequest(body, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewBufferString(body))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	return req
}

func TestPaymentHandler_Webhook(t *testing.T) {
	e := newTestEnv(t)
	handler := NewPaymentHandler(e.payments(e.provider), e.log)
	userID := e.newUser(t, "hook@remlyo.io")
	e.subscribe(t, userID, plan.NamePayPerRemedy)

	e.provider.Event = &payment.Event{
		ID:       "evt_1",
		Type:     payment.EventPaymentSucceeded,
		ObjectID: "pi_1",
		Metadata: map[string]string{
			payment.MetaUserID:    strconv.FormatInt(userID, 10),
			payment.MetaAilmentID: "a1",
			payment.MetaRemedyID:  "r1",
		},
	}

	tests := []struct {
		name           string
		signature      string
		expectedStatus int
	}{
		{name: "missing signature", expectedStatus: http.StatusBadRequest},
		{name: "forged signature", signature: "forged", expectedStatus: http.StatusBadRequest},
		{name: "valid", signature: "valid", expectedStatus: http.StatusOK},
		{name: "redelivery", signature: "valid", expectedStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handler.Webhook(rr, webhookRequest(`{"id":"evt_1"}`, tt.signature))

			if rr.Code != tt.expectedStatus {
				t.Fatalf("handler returned wrong status code: got %v want %v", rr.Code, tt.expectedStatus)
			}
			if rr.Code == http.StatusOK {
				var resp dto.WebhookResponse
				if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if !resp.Received || resp.Type != payment.EventPaymentSucceeded {
					t.Errorf("unexpected ack: %+v", resp)
				}
			}
		})
	}

	a, err := e.access.Get(t.Context(), userID, "a1")
	if err != nil || a == nil || !a.HasPurchased("r1") {
		t.Errorf("purchase not recorded: %+v, %v", a, err)
	}
}

func TestPaymentHandler_Webhook_Disabled(t *testing.T) {
	e := newTestEnv(t)
	handler := NewPaymentHandler(e.payments(nil), e.log)

	rr := httptest.NewRecorder()
	handler.Webhook(rr, webhookRequest(`{}`, "valid"))

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("got %v want %v", rr.Code, http.StatusServiceUnavailable)
	}
}

func TestPaymentHandler_Webhook_Oversized(t *testing.T) {
	e := newTestEnv(t)
	handler := NewPaymentHandler(e.payments(e.provider), e.log)

	rr := httptest.NewRecorder()
	handler.Webhook(rr, webhookRequest(string(bytes.Repeat([]byte("x"), maxWebhookBytes+1)), "valid"))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("got %v want %v", rr.Code, http.StatusBadRequest)
	}
}

func TestPaymentHandler_SetupIntent(t *testing.T) {
	tests := []struct {
		name           string
		withProvider   bool
		userID         int64
		expectedStatus int
	}{
		{name: "created", withProvider: true, userID: 1, expectedStatus: http.StatusCreated},
		{name: "disabled", userID: 1, expectedStatus: http.StatusServiceUnavailable},
		{name: "unauthenticated", withProvider: true, expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			var provider payment.Provider
			if tt.withProvider {
				provider = e.provider
			}
			handler := NewPaymentHandler(e.payments(provider), e.log)

			rr := httptest.NewRecorder()
			handler.SetupIntent(rr, newRequest(http.MethodPost, "/api/payments/setup-intent", nil, tt.userID, nil))

			if rr.Code != tt.expectedStatus {
				t.Fatalf("handler returned wrong status code: got %v want %v", rr.Code, tt.expectedStatus)
			}
			if rr.Code == http.StatusCreated {
				var intent payment.SetupIntent
				decodeData(t, decodeEnvelope(t, rr), &intent)
				if intent.ClientSecret == "" {
					t.Error("expected a client secret")
				}
			}
		})
	}
}
