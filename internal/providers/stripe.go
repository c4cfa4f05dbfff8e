package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/remlyo/remlyo/internal/config"
	"github.com/remlyo/remlyo/internal/domain/payment"
)

// StripeProvider implements payment.Provider on the Stripe API
type StripeProvider struct {
	sc            *client.API
	webhookSecret string
}

// NewStripeProvider creates a provider for cfg.SecretKey.
// Callers skip construction entirely when no key is configured.
func NewStripeProvider(cfg config.StripeConfig) *StripeProvider {
	sc := &client.API{}
	sc.Init(cfg.SecretKey, nil)
	return &StripeProvider{
		sc:            sc,
		webhookSecret: cfg.WebhookSecret,
	}
}

// CreateSetupIntent creates a SetupIntent for saving a card
func (p *StripeProvider) CreateSetupIntent(ctx context.Context, metadata map[string]string) (*payment.SetupIntent, error) {
	params := &stripe.SetupIntentParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Usage:              stripe.String(string(stripe.SetupIntentUsageOffSession)),
		Metadata:           metadata,
	}
	params.Context = ctx

	si, err := p.sc.SetupIntents.New(params)
	if err != nil {
		return nil, describe(err)
	}
	return &payment.SetupIntent{ID: si.ID, ClientSecret: si.ClientSecret}, nil
}

// CreatePaymentIntent creates a PaymentIntent for a one-off remedy purchase
func (p *StripeProvider) CreatePaymentIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(req.Amount),
		Currency:    stripe.String(req.Currency),
		Description: stripe.String(req.Description),
		Metadata:    req.Metadata,
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx

	pi, err := p.sc.PaymentIntents.New(params)
	if err != nil {
		return nil, describe(err)
	}
	return &payment.Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}, nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
// Without a webhook secret the payload is trusted as is, which config
// validation only permits outside production.
func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (*payment.Event, error) {
	var ev stripe.Event
	if p.webhookSecret != "" {
		// Only the signature decides; the account may pin another API version.
		verified, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
			Tolerance:                webhook.DefaultTolerance,
			IgnoreAPIVersionMismatch: true,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", payment.ErrInvalidSignature, err)
		}
		ev = verified
	} else if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("decode webhook event: %w", err)
	}

	out := &payment.Event{
		ID:   ev.ID,
		Type: string(ev.Type),
	}

	if ev.Data != nil && strings.HasPrefix(out.Type, "payment_intent.") {
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("decode payment intent: %w", err)
		}
		out.ObjectID = pi.ID
		out.Metadata = pi.Metadata
	}

	return out, nil
}

// describe keeps the Stripe message and drops the request details
func describe(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		return fmt.Errorf("stripe %s (status %d): %s", se.Type, se.HTTPStatusCode, se.Msg)
	}
	return err
}
