package entitlement

import (
	"context"

	"github.com/remlyo/remlyo/internal/domain/subscription"
)

// Service defines the interface for remedy access checks and bookkeeping
type Service interface {
	// CheckAccess evaluates the user's current subscription without side effects
	CheckAccess(ctx context.Context, userID int64, ailmentID, remedyID string) (Decision, error)

	// RecordView evaluates access and, when allowed, counts the view against
	// the free-tier allowance
	RecordView(ctx context.Context, userID int64, ailmentID, remedyID string) (Decision, *subscription.RemedyAccess, error)

	// RecordPurchase adds remedyID to the user's purchase record
	RecordPurchase(ctx context.Context, userID int64, ailmentID, remedyID string) (*subscription.RemedyAccess, error)
}
