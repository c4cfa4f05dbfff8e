package payment

import (
	"context"
	"errors"
)

// PurchaseStatus represents where a remedy purchase stands
type PurchaseStatus string

const (
	PurchasePending      PurchaseStatus = "pending"
	PurchaseCompleted    PurchaseStatus = "completed"
	PurchaseAlreadyOwned PurchaseStatus = "already_owned"
)

// Event types handled from the payment provider
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

// Metadata keys attached to payment intents
const (
	MetaUserID    = "user_id"
	MetaAilmentID = "ailment_id"
	MetaRemedyID  = "remedy_id"
)

var (
	// ErrDisabled is returned when no payment provider is configured
	ErrDisabled = errors.New("payment provider not configured")
	// ErrInvalidSignature is returned when a webhook payload fails verification
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrIncompleteMetadata is returned when an event lacks purchase metadata
	ErrIncompleteMetadata = errors.New("incomplete payment metadata")
)

// Purchase is the result of starting a remedy purchase
type Purchase struct {
	AilmentID       string         `json:"ailmentId"`
	RemedyID        string         `json:"remedyId"`
	Status          PurchaseStatus `json:"status"`
	PaymentIntentID string         `json:"paymentIntentId,omitempty"`
	ClientSecret    string         `json:"clientSecret,omitempty"`
	Amount          int64          `json:"amount"`
	Currency        string         `json:"currency"`
}

// SetupIntent lets a client collect and save a payment method
type SetupIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
}

// IntentRequest describes a payment to create
type IntentRequest struct {
	Amount      int64
	Currency    string
	Description string
	Metadata    map[string]string
}

// Intent is a created payment intent
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
}

// Event is a verified provider webhook event
type Event struct {
	ID       string
	Type     string
	ObjectID string
	Metadata map[string]string
}

// Provider is a payment processor
type Provider interface {
	CreateSetupIntent(ctx context.Context, metadata map[string]string) (*SetupIntent, error)
	CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	ParseWebhook(payload []byte, signature string) (*Event, error)
}

// Service defines the interface for payment business logic
type Service interface {
	// Enabled reports whether a provider is configured
	Enabled() bool

	// CreateSetupIntent starts payment method collection for the user
	CreateSetupIntent(ctx context.Context, userID int64) (*SetupIntent, error)

	// StartPurchase begins buying a remedy under the pay-per-remedy plan
	StartPurchase(ctx context.Context, userID int64, ailmentID, remedyID string) (*Purchase, error)

	// HandleWebhook verifies and applies a provider event
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*Event, error)
}
