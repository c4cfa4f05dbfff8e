package user

import "context"

// Service defines the interface for user business logic
type Service interface {
	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Register creates a new user with a hashed password
	Register(ctx context.Context, email, password, username string, fullName *string) (*User, error)

	// Authenticate checks credentials and returns the matching user
	Authenticate(ctx context.Context, email, password string) (*User, error)

	// Update updates a user
	Update(ctx context.Context, user *User) error
}
