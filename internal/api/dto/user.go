package dto

import "github.com/remlyo/remlyo/internal/domain/user"

// UserDTO represents a user in API responses
type UserDTO struct {
	ID                 int64   `json:"id"`
	Email              string  `json:"email"`
	Username           string  `json:"username,omitempty"`
	FullName           *string `json:"fullName,omitempty"`
	Role               string  `json:"role"`
	SubscriptionStatus string  `json:"subscriptionStatus"`
	CurrentPlanID      *string `json:"currentPlan,omitempty"`
}

// FromUser converts a domain user to its API shape
func FromUser(u *user.User) *UserDTO {
	return &UserDTO{
		ID:                 u.ID,
		Email:              u.Email,
		Username:           u.Username,
		FullName:           u.FullName,
		Role:               u.Role,
		SubscriptionStatus: u.SubscriptionStatus,
		CurrentPlanID:      u.CurrentPlanID,
	}
}
