package vitals

import "context"

type Repository interface {
	Create(ctx context.Context, r *Reading) error
	GetByID(ctx context.Context, id int64) (*Reading, error)
	// List returns readings newest first.
	List(ctx context.Context, f Filter) ([]*Reading, error)
}
