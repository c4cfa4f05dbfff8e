package plan

import "context"

// Service defines the interface for plan business logic
type Service interface {
	// List returns active plans
	List(ctx context.Context) ([]*Plan, error)

	// Get retrieves a plan by ID
	Get(ctx context.Context, id string) (*Plan, error)

	// GetByName retrieves a plan by catalog name
	GetByName(ctx context.Context, name Name) (*Plan, error)

	// EnsureDefaults upserts every catalog plan. Failures are logged, not returned.
	EnsureDefaults(ctx context.Context) int
}
