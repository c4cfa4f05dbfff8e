package handlers

import (
	"io"
	"net/http"

	"github.com/remlyo/remlyo/internal/api/dto"
	"github.com/remlyo/remlyo/internal/domain/payment"
	"github.com/remlyo/remlyo/internal/pkg/errors"
	"github.com/remlyo/remlyo/internal/pkg/logger"
	"github.com/remlyo/remlyo/internal/pkg/utils"
)

// maxWebhookBytes bounds webhook payloads read from the provider
const maxWebhookBytes = 64 << 10

// PaymentHandler handles payment provider requests
type PaymentHandler struct {
	payments payment.Service
	logger   *logger.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(payments payment.Service, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		logger:   log,
	}
}

// SetupIntent starts payment method collection
// @Summary Create setup intent
// @Tags Payments
// @Produce json
// @Success 201 {object} payment.SetupIntent
// @Failure 503 {object} utils.ErrorResponse "Payments not configured"
// @Security BearerAuth
// @Router /payments/setup-intent [post]
func (h *PaymentHandler) SetupIntent(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	intent, err := h.payments.CreateSetupIntent(r.Context(), userID)
	if err != nil {
		utils.WriteAppError(w, err, "Failed to create setup intent")
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, intent)
}

// Webhook receives payment provider events
// @Summary Payment webhook
// @Description Verifies the Stripe-Signature header and applies the event
// @Tags Payments
// @Accept json
// @Produce json
// @Success 200 {object} dto.WebhookResponse
// @Failure 400 {object} utils.ErrorResponse "Invalid signature"
// @Router /payments/webhook [post]
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid webhook payload"))
		return
	}

	ev, err := h.payments.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger.WithFields(map[string]interface{}{
			"size": len(payload),
		}).ErrorWithErr(err, "Webhook rejected")
		utils.WriteAppError(w, err, "Failed to process webhook")
		return
	}

	utils.WriteJSON(w, http.StatusOK, dto.WebhookResponse{Received: true, Type: ev.Type})
}
