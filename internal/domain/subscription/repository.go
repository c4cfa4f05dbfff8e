package subscription

import (
	"context"
	"time"
)

// Repository defines the interface for subscription data access
type Repository interface {
	// ReplaceActive cancels the user's active subscription, if any, and stores s
	// as the new active one atomically. A previous subscription that ended
	// before s.StartDate is expired instead. Returns true when one was cancelled.
	ReplaceActive(ctx context.Context, s *Subscription) (bool, error)

	// GetByID retrieves a subscription by ID
	GetByID(ctx context.Context, id string) (*Subscription, error)

	// GetActiveByUser retrieves the user's active subscription
	GetActiveByUser(ctx context.Context, userID int64) (*Subscription, error)

	// ListByUser retrieves the user's subscription history, newest first
	ListByUser(ctx context.Context, userID int64) ([]*Subscription, error)

	// CancelActive marks the user's active subscription cancelled. Returns
	// ErrNoActiveSubscription when it ended before at.
	CancelActive(ctx context.Context, userID int64, at time.Time) (*Subscription, error)

	// ExpireLapsed marks the user's active subscription expired if it ended
	// before now. Returns nil when nothing lapsed.
	ExpireLapsed(ctx context.Context, userID int64, now time.Time) (*Subscription, error)

	// ExpireOverdue marks active subscriptions ending before now as expired
	// and returns them
	ExpireOverdue(ctx context.Context, now time.Time) ([]*Subscription, error)
}

// AccessRepository defines the interface for per-ailment remedy access records
type AccessRepository interface {
	// ListByUser retrieves every access record of the user
	ListByUser(ctx context.Context, userID int64) ([]RemedyAccess, error)

	// Get retrieves one access record, or nil if the ailment was never touched
	Get(ctx context.Context, userID int64, ailmentID string) (*RemedyAccess, error)

	// IncrementView counts remedyID against the ailment allowance of max.
	// Returns false when the remedy was already counted and
	// ErrLimitReached when the allowance is exhausted.
	IncrementView(ctx context.Context, userID int64, ailmentID, remedyID string, max int) (bool, error)

	// AddPurchase records remedyID as bought. Returns false if it already was.
	AddPurchase(ctx context.Context, userID int64, ailmentID, remedyID string) (bool, error)
}
