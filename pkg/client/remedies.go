package client

import (
	"context"
	"net/url"
)

// RemedyService views and buys remedies
type RemedyService struct {
	client *Client
}

func remedyPath(ailmentID, remedyID, action string) string {
	return "/api/remedies/" + url.PathEscape(ailmentID) + "/" + url.PathEscape(remedyID) + "/" + action
}

// View opens a remedy, counting it against the free-tier allowance.
// Denials are returned as *APIError with Required set.
func (s *RemedyService) View(ctx context.Context, ailmentID, remedyID string) (*RemedyView, error) {
	var view RemedyView
	if err := s.client.doRequest(ctx, "GET", remedyPath(ailmentID, remedyID, "access"), nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Purchase buys a remedy under the pay-per-remedy plan. A pending purchase
// carries a client secret to confirm with the payment provider.
func (s *RemedyService) Purchase(ctx context.Context, ailmentID, remedyID string) (*Purchase, error) {
	var p Purchase
	if err := s.client.doRequest(ctx, "POST", remedyPath(ailmentID, remedyID, "purchase"), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// PaymentService manages payment methods
type PaymentService struct {
	client *Client
}

// CreateSetupIntent starts saving a payment method
func (s *PaymentService) CreateSetupIntent(ctx context.Context) (*SetupIntent, error) {
	var intent SetupIntent
	if err := s.client.doRequest(ctx, "POST", "/api/payments/setup-intent", nil, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}
