package subscription

import (
	"context"
	"time"
)

// Service defines the interface for subscription business logic
type Service interface {
	// Subscribe creates an active subscription to planID, superseding any current one
	Subscribe(ctx context.Context, userID int64, planID string) (*Subscription, error)

	// Cancel cancels the user's active subscription
	Cancel(ctx context.Context, userID int64) error

	// GetCurrent retrieves the active subscription with plan and remedy access populated
	GetCurrent(ctx context.Context, userID int64) (*Subscription, error)

	// History retrieves every subscription of the user
	History(ctx context.Context, userID int64) ([]*Subscription, error)

	// ExpireOverdue moves lapsed active subscriptions to expired
	ExpireOverdue(ctx context.Context, now time.Time) (int, error)
}
