package services

import (
	"context"
	"testing"
	"time"

	"github.com/remlyo/remlyo/internal/domain/entitlement"
	"github.com/remlyo/remlyo/internal/domain/payment"
	"github.com/remlyo/remlyo/internal/domain/plan"
	"github.com/remlyo/remlyo/internal/domain/subscription"
	"github.com/remlyo/remlyo/internal/domain/user"
	"github.com/remlyo/remlyo/internal/pkg/lock"
	"github.com/remlyo/remlyo/internal/testutil"
	"github.com/stretchr/testify/require"
)

// fixture wires the entitlement services over map-backed repositories
type fixture struct {
	users    *testutil.MockUserRepository
	plans    *testutil.MockPlanRepository
	subs     *testutil.MockSubscriptionRepository
	access   *testutil.MockAccessRepository
	provider *testutil.MockPaymentProvider
	locker   *lock.MemoryLocker
	catalog  map[plan.Name]*plan.Plan

	subscriptions subscription.Service
	entitlements  entitlement.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:    testutil.NewMockUserRepository(),
		plans:    testutil.NewMockPlanRepository(),
		subs:     testutil.NewMockSubscriptionRepository(),
		access:   testutil.NewMockAccessRepository(),
		provider: testutil.NewMockPaymentProvider(),
		locker:   lock.NewMemoryLocker(0),
	}
	f.catalog = f.plans.Seed()

	log := testutil.NewTestLogger()
	f.subscriptions = NewSubscriptionService(f.subs, f.access, f.plans, f.users, f.locker, time.Second, log)
	f.entitlements = NewAccessService(f.subscriptions, f.access, log)
	return f
}

// payments builds a payment service; a nil provider disables Stripe
func (f *fixture) payments(provider payment.Provider) payment.Service {
	return NewPaymentService(provider, f.subscriptions, f.entitlements, f.access, "usd", testutil.NewTestLogger())
}

func (f *fixture) newUser(t *testing.T, email string) int64 {
	t.Helper()
	u := &user.User{Email: email, Role: user.RoleUser}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u.ID
}

func (f *fixture) subscribe(t *testing.T, userID int64, name plan.Name) *subscription.Subscription {
	t.Helper()
	sub, err := f.subscriptions.Subscribe(context.Background(), userID, f.catalog[name].ID)
	require.NoError(t, err)
	return sub
}

// lapse moves the end date of every active subscription of userID into the past
func (f *fixture) lapse(userID int64) {
	for _, s := range f.subs.Subscriptions {
		if s.UserID == userID && s.Status == subscription.StatusActive {
			s.EndDate = time.Now().Add(-time.Hour)
		}
	}
}
