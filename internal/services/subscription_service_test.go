package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/remlyo/remlyo/internal/domain/plan"
	"github.com/remlyo/remlyo/internal/domain/subscription"
	"github.com/remlyo/remlyo/internal/domain/user"
	"github.com/remlyo/remlyo/internal/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	appErr, ok := errors.As(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
}

func TestSubscriptionService_Subscribe(t *testing.T) {
	tests := []struct {
		name    string
		plan    plan.Name
		wantEnd func(start time.Time) time.Time
	}{
		{
			name:    "premium lasts thirty days",
			plan:    plan.NamePremium,
			wantEnd: func(start time.Time) time.Time { return start.AddDate(0, 0, 30) },
		},
		{
			name:    "free is lifetime",
			plan:    plan.NameFree,
			wantEnd: func(time.Time) time.Time { return subscription.LifetimeEnd },
		},
		{
			name:    "pay-per-remedy is lifetime",
			plan:    plan.NamePayPerRemedy,
			wantEnd: func(time.Time) time.Time { return subscription.LifetimeEnd },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			userID := f.newUser(t, "reader@remlyo.test")

			sub := f.subscribe(t, userID, tt.plan)

			assert.Equal(t, subscription.StatusActive, sub.Status)
			require.NotNil(t, sub.Plan)
			assert.Equal(t, tt.plan, sub.Plan.Name)
			assert.WithinDuration(t, tt.wantEnd(sub.StartDate), sub.EndDate, time.Second)
			assert.NotNil(t, sub.RemedyAccess)

			u, err := f.users.GetByID(context.Background(), userID)
			require.NoError(t, err)
			assert.Equal(t, user.SubscriptionActive, u.SubscriptionStatus)
			require.NotNil(t, u.CurrentPlanID)
			assert.Equal(t, sub.PlanID, *u.CurrentPlanID)
		})
	}
}

func TestSubscriptionService_Subscribe_UnknownPlan(t *testing.T) {
	f := newFixture(t)
	userID := f.newUser(t, "reader@remlyo.test")

	_, err := f.subscriptions.Subscribe(context.Background(), userID, "no-such-plan")
	requireCode(t, err, errors.ErrCodeNotFound)
	assert.Empty(t, f.subs.Subscriptions)
}

func TestSubscriptionService_Subscribe_ReplacesActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.newUser(t, "reader@remlyo.test")

	first := f.subscribe(t, userID, plan.NameFree)
	second := f.subscribe(t, userID, plan.NamePremium)

	history, err := f.subscriptions.History(ctx, userID)
	require.NoError(t, err)
	require.Len(t, history, 2)

	active := 0
	for _, s := range history {
		if s.Status == subscription.StatusActive {
			active++
			assert.Equal(t, second.ID, s.ID)
		}
		if s.ID == first.ID {
			assert.Equal(t, subscription.StatusCancelled, s.Status)
			assert.NotNil(t, s.CancelledAt)
		}
		assert.NotNil(t, s.Plan)
	}
	assert.Equal(t, 1, active)
}

func TestSubscriptionService_Subscribe_LockContention(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.newUser(t, "reader@remlyo.test")

	release, err := f.locker.Acquire(ctx, subscriptionLockKey(userID), time.Minute)
	require.NoError(t, err)

	_, err = f.subscriptions.Subscribe(ctx, userID, f.catalog[plan.NamePremium].ID)
	requireCode(t, err, errors.ErrCodeConflict)

	release()
	f.subscribe(t, userID, plan.NamePremium)
}

func TestSubscriptionService_Subscribe_RepositoryConflict(t *testing.T) {
	f := newFixture(t)
	userID := f.newUser(t, "reader@remlyo.test")
	f.subs.CreateError = subscription.ErrAlreadyActive

	_, err := f.subscriptions.Subscribe(context.Background(), userID, f.catalog[plan.NameFree].ID)
	requireCode(t, err, errors.ErrCodeConflict)
}

func TestSubscriptionService_Cancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.newUser(t, "reader@remlyo.test")

	f.subscribe(t, userID, plan.NameFree)
	_, err := f.access.IncrementView(ctx, userID, "a1", "r1", 3)
	require.NoError(t, err)

	require.NoError(t, f.subscriptions.Cancel(ctx, userID))

	_, err = f.subscriptions.GetCurrent(ctx, userID)
	requireCode(t, err, errors.ErrCodeNotFound)

	u, _ := f.users.GetByID(ctx, userID)
	assert.Equal(t, user.SubscriptionCancelled, u.SubscriptionStatus)

	// Cancelling leaves the ledger intact.
	a, err := f.access.Get(ctx, userID, "a1")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, 1, a.AccessCount)
}

func TestSubscriptionService_Cancel_NoActive(t *testing.T) {
	f := newFixture(t)
	userID := f.newUser(t, "reader@remlyo.test")

	err := f.subscriptions.Cancel(context.Background(), userID)
	requireCode(t, err, errors.ErrCodeNotFound)
}

func TestSubscriptionService_GetCurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.newUser(t, "reader@remlyo.test")

	f.subscribe(t, userID, plan.NamePayPerRemedy)
	_, err := f.access.AddPurchase(ctx, userID, "a1", "r1")
	require.NoError(t, err)

	sub, err := f.subscriptions.GetCurrent(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, sub.Plan)
	assert.Equal(t, plan.NamePayPerRemedy, sub.Plan.Name)
	require.Len(t, sub.RemedyAccess, 1)
	assert.Equal(t, []string{"r1"}, sub.RemedyAccess[0].AccessedRemedies)
}

func TestSubscriptionService_GetCurrent_Lapsed(t *testing.T) {
	f := newFixture(t)
	userID := f.newUser(t, "reader@remlyo.test")

	f.subscribe(t, userID, plan.NamePremium)
	f.lapse(userID)

	_, err := f.subscriptions.GetCurrent(context.Background(), userID)
	requireCode(t, err, errors.ErrCodeNotFound)
}

func TestSubscriptionService_Cancel_Lapsed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.newUser(t, "reader@remlyo.test")

	sub := f.subscribe(t, userID, plan.NamePremium)
	f.lapse(userID)

	err := f.subscriptions.Cancel(ctx, userID)
	requireCode(t, err, errors.ErrCodeNotFound)

	row := f.subs.Subscriptions[sub.ID]
	assert.Equal(t, subscription.StatusExpired, row.Status)
	assert.Nil(t, row.CancelledAt)

	u, err := f.users.GetByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, user.SubscriptionExpired, u.SubscriptionStatus)
}

func TestSubscriptionService_Subscribe_AfterLapse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.newUser(t, "reader@remlyo.test")

	old := f.subscribe(t, userID, plan.NamePremium)
	f.lapse(userID)

	sub := f.subscribe(t, userID, plan.NameFree)

	row := f.subs.Subscriptions[old.ID]
	assert.Equal(t, subscription.StatusExpired, row.Status)
	assert.Nil(t, row.CancelledAt)

	current, err := f.subscriptions.GetCurrent(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, current.ID)

	u, err := f.users.GetByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, user.SubscriptionActive, u.SubscriptionStatus)
}

func TestSubscriptionService_GetCurrent_MissingPlan(t *testing.T) {
	f := newFixture(t)
	userID := f.newUser(t, "reader@remlyo.test")

	sub := f.subscribe(t, userID, plan.NamePremium)
	delete(f.plans.Plans, sub.PlanID)

	got, err := f.subscriptions.GetCurrent(context.Background(), userID)
	require.NoError(t, err)
	assert.Nil(t, got.Plan)
}

func TestSubscriptionService_GetCurrent_StoreFailure(t *testing.T) {
	f := newFixture(t)
	userID := f.newUser(t, "reader@remlyo.test")
	f.subs.GetError = fmt.Errorf("connection reset")

	_, err := f.subscriptions.GetCurrent(context.Background(), userID)
	require.Error(t, err)
	assert.False(t, errors.IsNotFound(err))
}

func TestSubscriptionService_ExpireOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lapsed := f.newUser(t, "lapsed@remlyo.test")
	current := f.newUser(t, "current@remlyo.test")

	f.subscribe(t, lapsed, plan.NamePremium)
	f.subscribe(t, current, plan.NamePremium)
	f.lapse(lapsed)

	n, err := f.subscriptions.ExpireOverdue(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	u, _ := f.users.GetByID(ctx, lapsed)
	assert.Equal(t, user.SubscriptionExpired, u.SubscriptionStatus)
	u, _ = f.users.GetByID(ctx, current)
	assert.Equal(t, user.SubscriptionActive, u.SubscriptionStatus)

	n, err = f.subscriptions.ExpireOverdue(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
}

// subscriptionEvents reads the subscription event counter for event and plan
func subscriptionEvents(t *testing.T, event, planName string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "remlyo_subscription_events_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := make(map[string]string)
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["event"] == event && labels["plan"] == planName {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestSubscriptionService_ExpireOverdue_PlanLabel(t *testing.T) {
	f := newFixture(t)
	userID := f.newUser(t, "lapsed@remlyo.test")

	f.subscribe(t, userID, plan.NamePremium)
	f.lapse(userID)

	before := subscriptionEvents(t, eventExpired, plan.NamePremium.String())
	unknown := subscriptionEvents(t, eventExpired, "unknown")

	n, err := f.subscriptions.ExpireOverdue(context.Background(), time.Now())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	assert.Equal(t, before+1, subscriptionEvents(t, eventExpired, plan.NamePremium.String()))
	assert.Equal(t, unknown, subscriptionEvents(t, eventExpired, "unknown"))
}
