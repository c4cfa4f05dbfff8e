package mongo

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remlyo/remlyo/internal/domain/plan"
	"github.com/remlyo/remlyo/internal/domain/subscription"
)

// testStore connects to REMLYO_TEST_MONGO_URI with a throwaway database,
// skipping when no server is configured.
func testStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("REMLYO_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("REMLYO_TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	store, err := Connect(ctx, uri, fmt.Sprintf("remlyo_test_%d", time.Now().UnixNano()))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = store.DB().Drop(ctx)
		_ = store.Close(ctx)
	})
	return store
}

func TestRemedyAccessRepository_IncrementView(t *testing.T) {
	store := testStore(t)
	repo := NewRemedyAccessRepository(store.DB())
	ctx := context.Background()

	for _, remedyID := range []string{"r1", "r2", "r3"} {
		counted, err := repo.IncrementView(ctx, 1, "a1", remedyID, 3)
		require.NoError(t, err)
		assert.True(t, counted, remedyID)
	}

	// Reopening a counted remedy is free even at the limit
	counted, err := repo.IncrementView(ctx, 1, "a1", "r2", 3)
	require.NoError(t, err)
	assert.False(t, counted)

	_, err = repo.IncrementView(ctx, 1, "a1", "r4", 3)
	assert.ErrorIs(t, err, subscription.ErrLimitReached)

	a, err := repo.Get(ctx, 1, "a1")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, 3, a.AccessCount)
	assert.ElementsMatch(t, []string{"r1", "r2", "r3"}, a.ViewedRemedies)

	// Other ailments keep their own allowance
	counted, err = repo.IncrementView(ctx, 1, "a2", "r4", 3)
	require.NoError(t, err)
	assert.True(t, counted)
}

func TestRemedyAccessRepository_IncrementView_Concurrent(t *testing.T) {
	store := testStore(t)
	repo := NewRemedyAccessRepository(store.DB())
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		counted int
		limited int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := repo.IncrementView(ctx, 2, "a1", fmt.Sprintf("r%d", i), 3)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && ok:
				counted++
			case err != nil:
				assert.ErrorIs(t, err, subscription.ErrLimitReached)
				limited++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 3, counted)
	assert.Equal(t, 7, limited)

	a, err := repo.Get(ctx, 2, "a1")
	require.NoError(t, err)
	assert.Equal(t, 3, a.AccessCount)
	assert.Len(t, a.ViewedRemedies, 3)
}

func TestRemedyAccessRepository_AddPurchase(t *testing.T) {
	store := testStore(t)
	repo := NewRemedyAccessRepository(store.DB())
	ctx := context.Background()

	added, err := repo.AddPurchase(ctx, 3, "a1", "r1")
	require.NoError(t, err)
	assert.True(t, added)

	// A repeat purchase misses the filter and collides on the unique index
	added, err = repo.AddPurchase(ctx, 3, "a1", "r1")
	require.NoError(t, err)
	assert.False(t, added)

	added, err = repo.AddPurchase(ctx, 3, "a1", "r2")
	require.NoError(t, err)
	assert.True(t, added)

	a, err := repo.Get(ctx, 3, "a1")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, []string{"r1", "r2"}, a.AccessedRemedies)
	assert.Zero(t, a.AccessCount)
}

func TestSubscriptionRepository_LapsedIsNotCancelled(t *testing.T) {
	store := testStore(t)
	repo := NewSubscriptionRepository(store.DB())
	ctx := context.Background()
	premium := plan.FromDefinition(plan.NamePremium, plan.Catalog[plan.NamePremium])
	premium.ID = "plan-premium"
	now := time.Now().UTC()

	old := subscription.New(5, premium, now.AddDate(0, 0, -40))
	_, err := repo.ReplaceActive(ctx, old)
	require.NoError(t, err)

	_, err = repo.CancelActive(ctx, 5, now)
	assert.ErrorIs(t, err, subscription.ErrNoActiveSubscription)

	next := subscription.New(5, premium, now)
	replaced, err := repo.ReplaceActive(ctx, next)
	require.NoError(t, err)
	assert.False(t, replaced)

	got, err := repo.GetByID(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusExpired, got.Status)
	assert.Nil(t, got.CancelledAt)

	active, err := repo.GetActiveByUser(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, next.ID, active.ID)
}

func TestSubscriptionRepository_ExpireOverdue(t *testing.T) {
	store := testStore(t)
	repo := NewSubscriptionRepository(store.DB())
	ctx := context.Background()
	premium := plan.FromDefinition(plan.NamePremium, plan.Catalog[plan.NamePremium])
	premium.ID = "plan-premium"
	now := time.Now().UTC()

	_, err := repo.ReplaceActive(ctx, subscription.New(6, premium, now.AddDate(0, 0, -40)))
	require.NoError(t, err)
	_, err = repo.ReplaceActive(ctx, subscription.New(7, premium, now))
	require.NoError(t, err)

	expired, err := repo.ExpireOverdue(ctx, now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, int64(6), expired[0].UserID)
	assert.Equal(t, premium.ID, expired[0].PlanID)
	assert.Equal(t, subscription.StatusExpired, expired[0].Status)

	expired, err = repo.ExpireOverdue(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, expired)
}
