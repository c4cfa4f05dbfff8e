package client

import "time"

// User represents a user account
type User struct {
	ID                 int64   `json:"id"`
	Email              string  `json:"email"`
	Username           string  `json:"username,omitempty"`
	FullName           *string `json:"fullName,omitempty"`
	Role               string  `json:"role"`
	SubscriptionStatus string  `json:"subscriptionStatus"`
	CurrentPlan        *string `json:"currentPlan,omitempty"`
}

// Catalog plan names accepted by SubscribeByName
const (
	PlanFree         = "free"
	PlanPremium      = "premium"
	PlanPayPerRemedy = "pay-per-remedy"
)

// IsPlanName reports whether name is a catalog plan name
func IsPlanName(name string) bool {
	switch name {
	case PlanFree, PlanPremium, PlanPayPerRemedy:
		return true
	}
	return false
}

// Plan is a subscription plan
type Plan struct {
	ID                    string    `json:"id"`
	Name                  string    `json:"name"`
	Description           string    `json:"description,omitempty"`
	Price                 float64   `json:"price"`
	Currency              string    `json:"currency"`
	Duration              int       `json:"duration"` // days, 0 is lifetime
	MaxRemediesPerAilment int       `json:"maxRemediesPerAilment"`
	Features              []string  `json:"features"`
	IsActive              bool      `json:"isActive"`
	Version               int       `json:"version"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

// RemedyAccess tracks remedies opened or bought for one ailment
type RemedyAccess struct {
	AilmentID        string    `json:"ailmentId"`
	AccessedRemedies []string  `json:"accessedRemedies"`
	AccessCount      int       `json:"accessCount"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Subscription binds a user to a plan
type Subscription struct {
	ID           string         `json:"id"`
	UserID       int64          `json:"userId"`
	PlanID       string         `json:"planId"`
	Plan         *Plan          `json:"plan,omitempty"`
	StartDate    time.Time      `json:"startDate"`
	EndDate      time.Time      `json:"endDate"`
	Status       string         `json:"status"` // active, cancelled, expired
	RemedyAccess []RemedyAccess `json:"remedyAccess"`
	CancelledAt  *time.Time     `json:"cancelledAt,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// AccessResult is the outcome of a side-effect free access check
type AccessResult struct {
	HasAccess bool   `json:"hasAccess"`
	Reason    string `json:"reason,omitempty"`
	Plan      string `json:"plan,omitempty"`
}

// RemedyView is returned after a remedy view is recorded
type RemedyView struct {
	AilmentID        string   `json:"ailmentId"`
	RemedyID         string   `json:"remedyId"`
	HasAccess        bool     `json:"hasAccess"`
	Plan             string   `json:"plan"`
	AccessCount      int      `json:"accessCount"`
	AccessedRemedies []string `json:"accessedRemedies"`
}

// Purchase is the state of a remedy purchase
type Purchase struct {
	AilmentID       string `json:"ailmentId"`
	RemedyID        string `json:"remedyId"`
	Status          string `json:"status"` // pending, completed, already_owned
	PaymentIntentID string `json:"paymentIntentId,omitempty"`
	ClientSecret    string `json:"clientSecret,omitempty"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

// SetupIntent lets a client save a payment method
type SetupIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
}

// InitializeResult reports how many default plans were written
type InitializeResult struct {
	Written int    `json:"written"`
	Version int    `json:"version"`
	Message string `json:"-"`
}

// HealthResponse is the body of the health endpoints
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}
