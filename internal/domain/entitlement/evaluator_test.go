package entitlement

import (
	"fmt"
	"testing"
	"time"

	"github.com/remlyo/remlyo/internal/domain/plan"
	"github.com/remlyo/remlyo/internal/domain/subscription"
	"github.com/stretchr/testify/assert"
)

func newSub(name plan.Name, status subscription.Status, access ...subscription.RemedyAccess) *subscription.Subscription {
	p := plan.FromDefinition(name, plan.Catalog[name])
	if !name.IsValid() {
		p = &plan.Plan{Name: name}
	}
	return &subscription.Subscription{
		Plan:         p,
		Status:       status,
		EndDate:      subscription.LifetimeEnd,
		RemedyAccess: access,
	}
}

func TestEvaluate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		sub       *subscription.Subscription
		ailmentID string
		remedyID  string
		want      Decision
	}{
		{
			name:      "no subscription",
			sub:       nil,
			ailmentID: "a1",
			remedyID:  "r1",
			want:      Deny(ReasonSubscription, ""),
		},
		{
			name:      "premium allows unseen ailment",
			sub:       newSub(plan.NamePremium, subscription.StatusActive),
			ailmentID: "a1",
			remedyID:  "r1",
			want:      Allow(plan.NamePremium),
		},
		{
			name: "free with no entry",
			sub:  newSub(plan.NameFree, subscription.StatusActive),
			ailmentID: "a1",
			remedyID:  "r1",
			want:      Allow(plan.NameFree),
		},
		{
			name: "free below limit",
			sub: newSub(plan.NameFree, subscription.StatusActive,
				subscription.RemedyAccess{AilmentID: "a1", AccessCount: 2}),
			ailmentID: "a1",
			remedyID:  "r3",
			want:      Allow(plan.NameFree),
		},
		{
			name: "free at limit",
			sub: newSub(plan.NameFree, subscription.StatusActive,
				subscription.RemedyAccess{AilmentID: "a1", AccessCount: 3}),
			ailmentID: "a1",
			remedyID:  "r4",
			want:      Deny(ReasonUpgrade, plan.NameFree),
		},
		{
			name: "free limit is per ailment",
			sub: newSub(plan.NameFree, subscription.StatusActive,
				subscription.RemedyAccess{AilmentID: "a1", AccessCount: 3}),
			ailmentID: "a2",
			remedyID:  "r1",
			want:      Allow(plan.NameFree),
		},
		{
			name: "pay-per-remedy purchased",
			sub: newSub(plan.NamePayPerRemedy, subscription.StatusActive,
				subscription.RemedyAccess{AilmentID: "a1", AccessedRemedies: []string{"r1", "r2"}}),
			ailmentID: "a1",
			remedyID:  "r2",
			want:      Allow(plan.NamePayPerRemedy),
		},
		{
			name: "pay-per-remedy not purchased",
			sub: newSub(plan.NamePayPerRemedy, subscription.StatusActive,
				subscription.RemedyAccess{AilmentID: "a1", AccessedRemedies: []string{"r1"}}),
			ailmentID: "a1",
			remedyID:  "r2",
			want:      Deny(ReasonPurchase, plan.NamePayPerRemedy),
		},
		{
			name:      "pay-per-remedy ailment never touched",
			sub:       newSub(plan.NamePayPerRemedy, subscription.StatusActive),
			ailmentID: "a1",
			remedyID:  "r1",
			want:      Deny(ReasonPurchase, plan.NamePayPerRemedy),
		},
		{
			name: "pay-per-remedy purchase under another ailment",
			sub: newSub(plan.NamePayPerRemedy, subscription.StatusActive,
				subscription.RemedyAccess{AilmentID: "a2", AccessedRemedies: []string{"r1"}}),
			ailmentID: "a1",
			remedyID:  "r1",
			want:      Deny(ReasonPurchase, plan.NamePayPerRemedy),
		},
		{
			name:      "unknown plan name denies",
			sub:       newSub(plan.Name("enterprise"), subscription.StatusActive),
			ailmentID: "a1",
			remedyID:  "r1",
			want:      Deny(ReasonSubscription, plan.Name("enterprise")),
		},
		{
			name: "missing plan denies",
			sub: &subscription.Subscription{
				Status:  subscription.StatusActive,
				EndDate: subscription.LifetimeEnd,
			},
			ailmentID: "a1",
			remedyID:  "r1",
			want:      Deny(ReasonSubscription, ""),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.sub, tt.ailmentID, tt.remedyID, now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_InactiveAlwaysDenies(t *testing.T) {
	now := time.Now()
	statuses := []subscription.Status{subscription.StatusCancelled, subscription.StatusExpired}
	access := subscription.RemedyAccess{AilmentID: "a1", AccessedRemedies: []string{"r1"}}

	for _, status := range statuses {
		for _, name := range plan.Names() {
			t.Run(fmt.Sprintf("%s/%s", status, name), func(t *testing.T) {
				got := Evaluate(newSub(name, status, access), "a1", "r1", now)
				assert.Equal(t, Deny(ReasonSubscription, ""), got)
			})
		}
	}
}

func TestEvaluate_LapsedActiveDenies(t *testing.T) {
	now := time.Now()
	sub := newSub(plan.NamePremium, subscription.StatusActive)
	sub.EndDate = now.Add(-time.Minute)

	got := Evaluate(sub, "a1", "r1", now)
	assert.False(t, got.Allowed)
	assert.Equal(t, ReasonSubscription, got.Reason)
}

func TestDecision_Message(t *testing.T) {
	reasons := []Reason{ReasonSubscription, ReasonUpgrade, ReasonPurchase}
	seen := make(map[string]bool)
	for _, r := range reasons {
		msg := Deny(r, "").Message()
		assert.NotEmpty(t, msg)
		assert.False(t, seen[msg], "duplicate message for %s", r)
		seen[msg] = true
	}
}
