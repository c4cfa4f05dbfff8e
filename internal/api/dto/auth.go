package dto

import "github.com/remlyo/remlyo/internal/domain/plan"

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// RegisterRequest creates an account. Plan optionally names a catalog plan
// the new account is subscribed to straight away.
type RegisterRequest struct {
	Email    string    `json:"email" validate:"required,email"`
	Password string    `json:"password" validate:"required,min=8"`
	Username string    `json:"username,omitempty" validate:"omitempty,min=3,max=50"`
	FullName string    `json:"fullName,omitempty" validate:"omitempty,max=100"`
	Plan     plan.Name `json:"plan,omitempty" validate:"omitempty,planname"`
}

// AuthResponse carries the token pair and the account's subscription state
type AuthResponse struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	User         *UserDTO `json:"user"`
}

// RefreshTokenRequest represents a refresh token request
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}
