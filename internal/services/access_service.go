package services

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/remlyo/remlyo/internal/domain/entitlement"
	"github.com/remlyo/remlyo/internal/domain/plan"
	"github.com/remlyo/remlyo/internal/domain/subscription"
	"github.com/remlyo/remlyo/internal/pkg/errors"
	"github.com/remlyo/remlyo/internal/pkg/logger"
	"github.com/remlyo/remlyo/internal/pkg/metrics"
)

// Remedy view results recorded in metrics
const (
	viewCounted = "counted"
	viewRepeat  = "repeat"
	viewLimited = "limited"
)

// AccessService implements entitlement.Service
type AccessService struct {
	subs   subscription.Service
	access subscription.AccessRepository
	logger *logger.Logger
	now    func() time.Time
}

// NewAccessService creates a new access service
func NewAccessService(subs subscription.Service, access subscription.AccessRepository, log *logger.Logger) entitlement.Service {
	return &AccessService{
		subs:   subs,
		access: access,
		logger: log,
		now:    time.Now,
	}
}

// CheckAccess evaluates the user's current subscription without side effects.
// A failed lookup returns an error and never an allowing decision.
func (s *AccessService) CheckAccess(ctx context.Context, userID int64, ailmentID, remedyID string) (entitlement.Decision, error) {
	sub, err := s.current(ctx, userID)
	if err != nil {
		return entitlement.Deny(entitlement.ReasonSubscription, ""), err
	}

	d := entitlement.Evaluate(sub, ailmentID, remedyID, s.now())
	metrics.RecordAccessDecision(d.Allowed, reasonLabel(d.Reason), d.Plan.String())
	return d, nil
}

// RecordView evaluates access and counts the view against the free allowance.
// Denials come back as a Forbidden error carrying the required action.
func (s *AccessService) RecordView(ctx context.Context, userID int64, ailmentID, remedyID string) (entitlement.Decision, *subscription.RemedyAccess, error) {
	sub, err := s.current(ctx, userID)
	if err != nil {
		return entitlement.Deny(entitlement.ReasonSubscription, ""), nil, err
	}

	d := entitlement.Evaluate(sub, ailmentID, remedyID, s.now())
	metrics.RecordAccessDecision(d.Allowed, reasonLabel(d.Reason), d.Plan.String())
	if !d.Allowed {
		return d, nil, DeniedError(d)
	}

	if d.Plan == plan.NameFree {
		counted, err := s.access.IncrementView(ctx, userID, ailmentID, remedyID, sub.Plan.MaxRemediesPerAilment)
		if err != nil {
			if stderrors.Is(err, subscription.ErrLimitReached) {
				// Another request used up the allowance after evaluation.
				metrics.RecordRemedyView(viewLimited)
				d = entitlement.Deny(entitlement.ReasonUpgrade, plan.NameFree)
				return d, nil, DeniedError(d)
			}
			s.logger.ErrorWithErr(err, "Failed to record remedy view")
			return d, nil, err
		}
		if counted {
			metrics.RecordRemedyView(viewCounted)
		} else {
			metrics.RecordRemedyView(viewRepeat)
		}
	}

	a, err := s.access.Get(ctx, userID, ailmentID)
	if err != nil {
		return d, nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":    userID,
		"ailment_id": ailmentID,
		"remedy_id":  remedyID,
		"plan":       d.Plan,
	}).Debug("Remedy view recorded")

	return d, a, nil
}

// RecordPurchase adds remedyID to the user's purchase record
func (s *AccessService) RecordPurchase(ctx context.Context, userID int64, ailmentID, remedyID string) (*subscription.RemedyAccess, error) {
	added, err := s.access.AddPurchase(ctx, userID, ailmentID, remedyID)
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to record remedy purchase")
		return nil, err
	}

	if added {
		metrics.RecordRemedyPurchase("completed")
		s.logger.WithFields(map[string]interface{}{
			"user_id":    userID,
			"ailment_id": ailmentID,
			"remedy_id":  remedyID,
		}).Info("Remedy purchased")
	} else {
		metrics.RecordRemedyPurchase("already_owned")
	}

	return s.access.Get(ctx, userID, ailmentID)
}

// current loads the active subscription, or nil when the user has none
func (s *AccessService) current(ctx context.Context, userID int64) (*subscription.Subscription, error) {
	sub, err := s.subs.GetCurrent(ctx, userID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil
		}
		s.logger.WithFields(map[string]interface{}{
			"user_id": userID,
		}).ErrorWithErr(err, "Failed to load subscription for access check")
		return nil, err
	}
	return sub, nil
}

// DeniedError converts a denial into a Forbidden error naming the required action
func DeniedError(d entitlement.Decision) *errors.AppError {
	return errors.ForbiddenWithDetails(d.Message(), map[string]interface{}{
		"required": d.Reason,
	})
}

func reasonLabel(r entitlement.Reason) string {
	if r == entitlement.ReasonNone {
		return "none"
	}
	return string(r)
}
