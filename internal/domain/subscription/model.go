package subscription

import (
	"errors"
	"time"

	"github.com/remlyo/remlyo/internal/domain/plan"
)

// Status represents the lifecycle state of a subscription
type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// IsValid checks if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

var (
	// ErrNotFound is returned when a subscription id does not resolve
	ErrNotFound = errors.New("subscription not found")
	// ErrNoActiveSubscription is returned when the user has no active subscription
	ErrNoActiveSubscription = errors.New("no active subscription")
	// ErrAlreadyActive is returned when a concurrent writer created an active subscription first
	ErrAlreadyActive = errors.New("user already has an active subscription")
	// ErrLimitReached is returned when a free-tier ailment allowance is exhausted
	ErrLimitReached = errors.New("remedy limit reached for ailment")
)

// LifetimeEnd is the end date given to subscriptions whose plan has no duration
var LifetimeEnd = time.Date(2100, time.December, 31, 0, 0, 0, 0, time.UTC)

// RemedyAccess tracks what a user has opened or bought for one ailment
type RemedyAccess struct {
	AilmentID        string    `json:"ailmentId"`
	AccessedRemedies []string  `json:"accessedRemedies"`
	AccessCount      int       `json:"accessCount"`
	ViewedRemedies   []string  `json:"-"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// HasPurchased reports whether remedyID is in the purchase record
func (a *RemedyAccess) HasPurchased(remedyID string) bool {
	return contains(a.AccessedRemedies, remedyID)
}

// HasViewed reports whether remedyID was already counted against the allowance
func (a *RemedyAccess) HasViewed(remedyID string) bool {
	return contains(a.ViewedRemedies, remedyID)
}

// Subscription binds a user to a plan
type Subscription struct {
	ID           string         `json:"id"`
	UserID       int64          `json:"userId"`
	PlanID       string         `json:"planId"`
	Plan         *plan.Plan     `json:"plan,omitempty"`
	StartDate    time.Time      `json:"startDate"`
	EndDate      time.Time      `json:"endDate"`
	Status       Status         `json:"status"`
	RemedyAccess []RemedyAccess `json:"remedyAccess"`
	CancelledAt  *time.Time     `json:"cancelledAt,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// New creates an active subscription to p starting at now
func New(userID int64, p *plan.Plan, now time.Time) *Subscription {
	return &Subscription{
		UserID:       userID,
		PlanID:       p.ID,
		Plan:         p,
		StartDate:    now,
		EndDate:      EndDate(p, now),
		Status:       StatusActive,
		RemedyAccess: []RemedyAccess{},
	}
}

// EndDate computes when a subscription to p started at start lapses
func EndDate(p *plan.Plan, start time.Time) time.Time {
	if p.IsLifetime() {
		return LifetimeEnd
	}
	return start.AddDate(0, 0, p.Duration)
}

// IsActiveAt reports whether the subscription grants anything at now.
// An active row past its end date counts as lapsed.
func (s *Subscription) IsActiveAt(now time.Time) bool {
	return s.Status == StatusActive && !now.After(s.EndDate)
}

// AccessFor returns the entry for ailmentID, or nil if the user never touched it
func (s *Subscription) AccessFor(ailmentID string) *RemedyAccess {
	for i := range s.RemedyAccess {
		if s.RemedyAccess[i].AilmentID == ailmentID {
			return &s.RemedyAccess[i]
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
