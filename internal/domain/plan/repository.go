package plan

import "context"

// Repository defines the interface for plan data access
type Repository interface {
	// Upsert inserts the plan or overwrites the row with the same name.
	// On return p.ID holds the stored id.
	Upsert(ctx context.Context, p *Plan) error

	// GetByID retrieves a plan by ID
	GetByID(ctx context.Context, id string) (*Plan, error)

	// GetByName retrieves a plan by name
	GetByName(ctx context.Context, name Name) (*Plan, error)

	// ListActive retrieves active plans ordered by price
	ListActive(ctx context.Context) ([]*Plan, error)

	// Count returns the number of stored plans
	Count(ctx context.Context) (int64, error)
}
