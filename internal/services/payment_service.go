package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/remlyo/remlyo/internal/domain/entitlement"
	"github.com/remlyo/remlyo/internal/domain/payment"
	"github.com/remlyo/remlyo/internal/domain/plan"
	"github.com/remlyo/remlyo/internal/domain/subscription"
	"github.com/remlyo/remlyo/internal/pkg/errors"
	"github.com/remlyo/remlyo/internal/pkg/logger"
	"github.com/remlyo/remlyo/internal/pkg/metrics"
)

// PaymentService implements payment.Service
type PaymentService struct {
	provider     payment.Provider
	subs         subscription.Service
	entitlements entitlement.Service
	access       subscription.AccessRepository
	currency     string
	logger       *logger.Logger
}

// NewPaymentService creates a new payment service. A nil provider disables
// Stripe: purchases are then recorded immediately.
func NewPaymentService(
	provider payment.Provider,
	subs subscription.Service,
	entitlements entitlement.Service,
	access subscription.AccessRepository,
	currency string,
	log *logger.Logger,
) payment.Service {
	if currency == "" {
		currency = plan.DefaultCurrency
	}
	return &PaymentService{
		provider:     provider,
		subs:         subs,
		entitlements: entitlements,
		access:       access,
		currency:     currency,
		logger:       log,
	}
}

// Enabled reports whether a provider is configured
func (s *PaymentService) Enabled() bool {
	return s.provider != nil
}

// CreateSetupIntent starts payment method collection for the user
func (s *PaymentService) CreateSetupIntent(ctx context.Context, userID int64) (*payment.SetupIntent, error) {
	if !s.Enabled() {
		return nil, errors.ServiceUnavailable("Payments are not configured")
	}

	intent, err := s.provider.CreateSetupIntent(ctx, map[string]string{
		payment.MetaUserID: strconv.FormatInt(userID, 10),
	})
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to create setup intent")
		return nil, errors.PaymentError("Failed to create setup intent", err)
	}
	return intent, nil
}

// StartPurchase begins buying a remedy under the pay-per-remedy plan
func (s *PaymentService) StartPurchase(ctx context.Context, userID int64, ailmentID, remedyID string) (*payment.Purchase, error) {
	sub, err := s.subs.GetCurrent(ctx, userID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, DeniedError(entitlement.Deny(entitlement.ReasonSubscription, ""))
		}
		return nil, err
	}
	if sub.Plan == nil || sub.Plan.Name != plan.NamePayPerRemedy {
		return nil, errors.ForbiddenWithDetails("Remedy purchases require the pay-per-remedy plan", map[string]interface{}{
			"required": entitlement.ReasonSubscription,
		})
	}

	purchase := &payment.Purchase{
		AilmentID: ailmentID,
		RemedyID:  remedyID,
		Amount:    sub.Plan.PriceCents(),
		Currency:  sub.Plan.Currency,
	}
	if purchase.Currency == "" {
		purchase.Currency = s.currency
	}

	existing, err := s.access.Get(ctx, userID, ailmentID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.HasPurchased(remedyID) {
		metrics.RecordRemedyPurchase(string(payment.PurchaseAlreadyOwned))
		purchase.Status = payment.PurchaseAlreadyOwned
		return purchase, nil
	}

	if !s.Enabled() {
		if _, err := s.entitlements.RecordPurchase(ctx, userID, ailmentID, remedyID); err != nil {
			return nil, err
		}
		purchase.Status = payment.PurchaseCompleted
		return purchase, nil
	}

	intent, err := s.provider.CreatePaymentIntent(ctx, payment.IntentRequest{
		Amount:      purchase.Amount,
		Currency:    purchase.Currency,
		Description: fmt.Sprintf("Remedy %s for ailment %s", remedyID, ailmentID),
		Metadata: map[string]string{
			payment.MetaUserID:    strconv.FormatInt(userID, 10),
			payment.MetaAilmentID: ailmentID,
			payment.MetaRemedyID:  remedyID,
		},
	})
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to create payment intent")
		return nil, errors.PaymentError("Failed to create payment intent", err)
	}

	metrics.RecordRemedyPurchase(string(payment.PurchasePending))
	s.logger.WithFields(map[string]interface{}{
		"user_id":           userID,
		"ailment_id":        ailmentID,
		"remedy_id":         remedyID,
		"payment_intent_id": intent.ID,
	}).Info("Remedy purchase started")

	purchase.Status = payment.PurchasePending
	purchase.PaymentIntentID = intent.ID
	purchase.ClientSecret = intent.ClientSecret
	return purchase, nil
}

// HandleWebhook verifies and applies a provider event.
// Unknown event types and events without purchase metadata are acknowledged.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*payment.Event, error) {
	if !s.Enabled() {
		return nil, errors.ServiceUnavailable("Payments are not configured")
	}

	ev, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		if stderrors.Is(err, payment.ErrInvalidSignature) {
			return nil, errors.BadRequest("Invalid webhook signature")
		}
		return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "Invalid webhook payload", http.StatusBadRequest)
	}

	log := s.logger.WithFields(map[string]interface{}{
		"event_id":   ev.ID,
		"event_type": ev.Type,
		"object_id":  ev.ObjectID,
	})

	switch ev.Type {
	case payment.EventPaymentSucceeded:
		userID, ailmentID, remedyID, err := purchaseFromMetadata(ev.Metadata)
		if err != nil {
			log.WithError(err).Warn("Ignoring payment without purchase metadata")
			return ev, nil
		}
		if _, err := s.entitlements.RecordPurchase(ctx, userID, ailmentID, remedyID); err != nil {
			return nil, err
		}
		log.Info("Payment succeeded")

	case payment.EventPaymentFailed:
		metrics.RecordRemedyPurchase("failed")
		log.Warn("Payment failed")

	default:
		log.Debug("Ignoring webhook event")
	}

	return ev, nil
}

func purchaseFromMetadata(meta map[string]string) (int64, string, string, error) {
	ailmentID := meta[payment.MetaAilmentID]
	remedyID := meta[payment.MetaRemedyID]
	userID, err := strconv.ParseInt(meta[payment.MetaUserID], 10, 64)
	if err != nil || userID <= 0 || ailmentID == "" || remedyID == "" {
		return 0, "", "", payment.ErrIncompleteMetadata
	}
	return userID, ailmentID, remedyID, nil
}
