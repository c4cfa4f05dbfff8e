package entitlement

import (
	"time"

	"github.com/remlyo/remlyo/internal/domain/plan"
	"github.com/remlyo/remlyo/internal/domain/subscription"
)

// Reason explains why access was denied
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonSubscription Reason = "subscription"
	ReasonUpgrade      Reason = "upgrade"
	ReasonPurchase     Reason = "purchase"
)

// Decision is the outcome of an access evaluation
type Decision struct {
	Allowed bool      `json:"hasAccess"`
	Reason  Reason    `json:"reason,omitempty"`
	Plan    plan.Name `json:"plan,omitempty"`
}

// Allow grants access under the given plan
func Allow(p plan.Name) Decision {
	return Decision{Allowed: true, Plan: p}
}

// Deny refuses access for reason
func Deny(reason Reason, p plan.Name) Decision {
	return Decision{Allowed: false, Reason: reason, Plan: p}
}

// Message returns the user-facing explanation of a denial
func (d Decision) Message() string {
	switch d.Reason {
	case ReasonNone:
		return "Access granted"
	case ReasonUpgrade:
		return "You have reached the free remedy limit for this ailment. Upgrade to premium for unlimited access"
	case ReasonPurchase:
		return "Purchase this remedy to view it"
	default:
		return "An active subscription is required to view this remedy"
	}
}

// Evaluate decides whether the holder of sub may view remedyID of ailmentID at now.
// sub must have its plan and remedy access populated; it may be nil.
func Evaluate(sub *subscription.Subscription, ailmentID, remedyID string, now time.Time) Decision {
	if sub == nil || !sub.IsActiveAt(now) || sub.Plan == nil {
		return Deny(ReasonSubscription, "")
	}

	p := sub.Plan
	switch p.Name {
	case plan.NamePremium:
		return Allow(p.Name)

	case plan.NameFree:
		access := sub.AccessFor(ailmentID)
		if access == nil || access.AccessCount < p.MaxRemediesPerAilment {
			return Allow(p.Name)
		}
		return Deny(ReasonUpgrade, p.Name)

	case plan.NamePayPerRemedy:
		access := sub.AccessFor(ailmentID)
		if access != nil && access.HasPurchased(remedyID) {
			return Allow(p.Name)
		}
		return Deny(ReasonPurchase, p.Name)
	}

	// Unknown plan kinds never grant access.
	return Deny(ReasonSubscription, p.Name)
}
