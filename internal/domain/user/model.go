package user

import "time"

// User represents a user in the system
type User struct {
	ID                 int64     `json:"id"`
	Email              string    `json:"email"`
	Username           string    `json:"username,omitempty"`
	FullName           *string   `json:"full_name,omitempty"`
	PasswordHash       string    `json:"-"` // Not exposed in JSON
	Role               string    `json:"role"`
	SubscriptionStatus string    `json:"subscription_status"`
	CurrentPlanID      *string   `json:"current_plan_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// User roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Denormalized subscription states kept on the user row
const (
	SubscriptionNone      = "none"
	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"
	SubscriptionExpired   = "expired"
)

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
