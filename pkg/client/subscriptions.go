package client

import (
	"context"
	"net/url"
)

// PlanService reads the plan catalog
type PlanService struct {
	client *Client
}

// List returns the active plans ordered by price
func (s *PlanService) List(ctx context.Context) ([]Plan, error) {
	var plans []Plan
	if err := s.client.doRequest(ctx, "GET", "/api/subscriptions/plans", nil, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// Initialize seeds the default plans. Requires an admin token.
func (s *PlanService) Initialize(ctx context.Context) (*InitializeResult, error) {
	var result InitializeResult
	resp, err := s.client.do(ctx, "POST", "/api/subscriptions/initialize", nil, &result)
	if err != nil {
		return nil, err
	}
	result.Message = resp.Message
	return &result, nil
}

// SubscriptionService manages the caller's subscription
type SubscriptionService struct {
	client *Client
}

// Subscribe starts a subscription to planID, replacing any active one
func (s *SubscriptionService) Subscribe(ctx context.Context, planID string) (*Subscription, error) {
	var sub Subscription
	body := map[string]string{"planId": planID}
	if err := s.client.doRequest(ctx, "POST", "/api/subscriptions/subscribe", body, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// SubscribeByName starts a subscription to the catalog plan called name
func (s *SubscriptionService) SubscribeByName(ctx context.Context, name string) (*Subscription, error) {
	var sub Subscription
	body := map[string]string{"plan": name}
	if err := s.client.doRequest(ctx, "POST", "/api/subscriptions/subscribe", body, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// Current returns the active subscription with its plan and remedy access
func (s *SubscriptionService) Current(ctx context.Context) (*Subscription, error) {
	var sub Subscription
	if err := s.client.doRequest(ctx, "GET", "/api/subscriptions/current", nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// Cancel cancels the active subscription
func (s *SubscriptionService) Cancel(ctx context.Context) error {
	return s.client.doRequest(ctx, "POST", "/api/subscriptions/cancel", nil, nil)
}

// History returns every subscription the caller has held, newest first
func (s *SubscriptionService) History(ctx context.Context) ([]Subscription, error) {
	var subs []Subscription
	if err := s.client.doRequest(ctx, "GET", "/api/subscriptions/history", nil, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// CheckAccess evaluates access to a remedy without recording a view.
// Callers without an active subscription get an *APIError requiring "subscription".
func (s *SubscriptionService) CheckAccess(ctx context.Context, ailmentID, remedyID string) (*AccessResult, error) {
	var result AccessResult
	path := "/api/subscriptions/check-access/" + url.PathEscape(ailmentID) + "/" + url.PathEscape(remedyID)
	if err := s.client.doRequest(ctx, "GET", path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
