package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/remlyo/remlyo/internal/domain/plan"
	"github.com/remlyo/remlyo/internal/domain/subscription"
	"github.com/remlyo/remlyo/internal/domain/user"
	"github.com/remlyo/remlyo/internal/pkg/errors"
	"github.com/remlyo/remlyo/internal/pkg/lock"
	"github.com/remlyo/remlyo/internal/pkg/logger"
	"github.com/remlyo/remlyo/internal/pkg/metrics"
)

// Subscription lifecycle events recorded in metrics
const (
	eventSubscribed = "subscribed"
	eventReplaced   = "replaced"
	eventCancelled  = "cancelled"
	eventExpired    = "expired"
)

// SubscriptionService implements subscription.Service
type SubscriptionService struct {
	subs    subscription.Repository
	access  subscription.AccessRepository
	plans   plan.Repository
	users   user.Repository
	locker  lock.Locker
	lockTTL time.Duration
	logger  *logger.Logger
	now     func() time.Time
}

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(
	subs subscription.Repository,
	access subscription.AccessRepository,
	plans plan.Repository,
	users user.Repository,
	locker lock.Locker,
	lockTTL time.Duration,
	log *logger.Logger,
) subscription.Service {
	if lockTTL <= 0 {
		lockTTL = 10 * time.Second
	}
	return &SubscriptionService{
		subs:    subs,
		access:  access,
		plans:   plans,
		users:   users,
		locker:  locker,
		lockTTL: lockTTL,
		logger:  log,
		now:     time.Now,
	}
}

// Subscribe creates an active subscription to planID, cancelling any current one
func (s *SubscriptionService) Subscribe(ctx context.Context, userID int64, planID string) (*subscription.Subscription, error) {
	p, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		if stderrors.Is(err, plan.ErrNotFound) {
			return nil, errors.NotFound("Plan")
		}
		return nil, err
	}

	release, err := s.acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now()
	if _, err := s.expireLapsed(ctx, userID, now); err != nil {
		return nil, err
	}

	sub := subscription.New(userID, p, now)
	replaced, err := s.subs.ReplaceActive(ctx, sub)
	if err != nil {
		if stderrors.Is(err, subscription.ErrAlreadyActive) {
			return nil, errors.Conflict("Another subscription change is in progress")
		}
		s.logger.ErrorWithErr(err, "Failed to create subscription")
		return nil, err
	}
	sub.Plan = p

	if err := s.users.UpdateSubscriptionState(ctx, userID, user.SubscriptionActive, &p.ID); err != nil {
		s.logger.WithFields(map[string]interface{}{
			"user_id": userID,
		}).ErrorWithErr(err, "Failed to update user subscription state")
	}

	access, err := s.access.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sub.RemedyAccess = access

	if replaced {
		metrics.RecordSubscriptionEvent(eventReplaced, p.Name.String())
	}
	metrics.RecordSubscriptionEvent(eventSubscribed, p.Name.String())

	s.logger.WithFields(map[string]interface{}{
		"user_id":         userID,
		"subscription_id": sub.ID,
		"plan":            p.Name,
		"replaced":        replaced,
	}).Info("Subscription created")

	return sub, nil
}

// Cancel cancels the user's active subscription
func (s *SubscriptionService) Cancel(ctx context.Context, userID int64) error {
	release, err := s.acquire(ctx, userID)
	if err != nil {
		return err
	}
	defer release()

	now := s.now()
	expired, err := s.expireLapsed(ctx, userID, now)
	if err != nil {
		return err
	}
	if expired {
		if err := s.users.UpdateSubscriptionState(ctx, userID, user.SubscriptionExpired, nil); err != nil {
			s.logger.WithFields(map[string]interface{}{
				"user_id": userID,
			}).ErrorWithErr(err, "Failed to update user subscription state")
		}
	}

	sub, err := s.subs.CancelActive(ctx, userID, now)
	if err != nil {
		if stderrors.Is(err, subscription.ErrNoActiveSubscription) {
			return errors.NotFound("Active subscription")
		}
		s.logger.ErrorWithErr(err, "Failed to cancel subscription")
		return err
	}

	if err := s.users.UpdateSubscriptionState(ctx, userID, user.SubscriptionCancelled, nil); err != nil {
		s.logger.WithFields(map[string]interface{}{
			"user_id": userID,
		}).ErrorWithErr(err, "Failed to update user subscription state")
	}

	metrics.RecordSubscriptionEvent(eventCancelled, s.planLabel(ctx, sub.PlanID))

	s.logger.WithFields(map[string]interface{}{
		"user_id":         userID,
		"subscription_id": sub.ID,
	}).Info("Subscription cancelled")

	return nil
}

// GetCurrent retrieves the active subscription with plan and remedy access populated.
// An active row past its end date is reported as not found.
func (s *SubscriptionService) GetCurrent(ctx context.Context, userID int64) (*subscription.Subscription, error) {
	sub, err := s.subs.GetActiveByUser(ctx, userID)
	if err != nil {
		if stderrors.Is(err, subscription.ErrNoActiveSubscription) {
			return nil, errors.NotFound("Active subscription")
		}
		return nil, err
	}
	if !sub.IsActiveAt(s.now()) {
		return nil, errors.NotFound("Active subscription")
	}

	p, err := s.plans.GetByID(ctx, sub.PlanID)
	switch {
	case err == nil:
		sub.Plan = p
	case stderrors.Is(err, plan.ErrNotFound):
		// Left nil; evaluation denies a subscription without a plan.
		s.logger.WithFields(map[string]interface{}{
			"subscription_id": sub.ID,
			"plan_id":         sub.PlanID,
		}).Warn("Subscription references a missing plan")
	default:
		return nil, err
	}

	access, err := s.access.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sub.RemedyAccess = access

	return sub, nil
}

// History retrieves every subscription of the user, newest first
func (s *SubscriptionService) History(ctx context.Context, userID int64) ([]*subscription.Subscription, error) {
	subs, err := s.subs.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	plans := make(map[string]*plan.Plan)
	for _, sub := range subs {
		p, ok := plans[sub.PlanID]
		if !ok {
			p, err = s.plans.GetByID(ctx, sub.PlanID)
			if err != nil && !stderrors.Is(err, plan.ErrNotFound) {
				return nil, err
			}
			plans[sub.PlanID] = p
		}
		sub.Plan = p
	}
	return subs, nil
}

// ExpireOverdue moves lapsed active subscriptions to expired and
// returns how many were moved
func (s *SubscriptionService) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.subs.ExpireOverdue(ctx, now)
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to expire subscriptions")
		return 0, err
	}

	labels := make(map[string]string)
	for _, sub := range expired {
		if err := s.users.UpdateSubscriptionState(ctx, sub.UserID, user.SubscriptionExpired, nil); err != nil {
			s.logger.WithFields(map[string]interface{}{
				"user_id": sub.UserID,
			}).ErrorWithErr(err, "Failed to update user subscription state")
		}

		label, ok := labels[sub.PlanID]
		if !ok {
			label = s.planLabel(ctx, sub.PlanID)
			labels[sub.PlanID] = label
		}
		metrics.RecordSubscriptionEvent(eventExpired, label)
	}

	if len(expired) > 0 {
		s.logger.WithFields(map[string]interface{}{
			"expired": len(expired),
		}).Info("Expired overdue subscriptions")
	}
	return len(expired), nil
}

// expireLapsed moves the user's active subscription to expired once its end
// date has passed, so cancel and subscribe never act on it
func (s *SubscriptionService) expireLapsed(ctx context.Context, userID int64, now time.Time) (bool, error) {
	sub, err := s.subs.ExpireLapsed(ctx, userID, now)
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to expire lapsed subscription")
		return false, err
	}
	if sub == nil {
		return false, nil
	}

	metrics.RecordSubscriptionEvent(eventExpired, s.planLabel(ctx, sub.PlanID))
	s.logger.WithFields(map[string]interface{}{
		"user_id":         userID,
		"subscription_id": sub.ID,
	}).Info("Lapsed subscription expired")

	return true, nil
}

func (s *SubscriptionService) acquire(ctx context.Context, userID int64) (func(), error) {
	release, err := s.locker.Acquire(ctx, subscriptionLockKey(userID), s.lockTTL)
	if err != nil {
		if stderrors.Is(err, lock.ErrLocked) {
			return nil, errors.Conflict("Another subscription change is in progress")
		}
		return nil, errors.Internal("Failed to acquire subscription lock", err)
	}
	return release, nil
}

func (s *SubscriptionService) planLabel(ctx context.Context, planID string) string {
	p, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return "unknown"
	}
	return p.Name.String()
}

func subscriptionLockKey(userID int64) string {
	return fmt.Sprintf("lock:subscription:%d", userID)
}
