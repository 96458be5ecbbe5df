package emergency

import "context"

// Repository returns apierr.NotFoundError for unknown emergency ids.
type Repository interface {
	TransitionStore
	Create(ctx context.Context, e *Emergency) error
	GetByID(ctx context.Context, id int64) (*Emergency, error)
	GetView(ctx context.Context, id int64) (*View, error)
	List(ctx context.Context, f ListFilter) ([]*View, int, error)
	ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*View, int, error)
	// ListTransitions returns the history newest first with actor names.
	ListTransitions(ctx context.Context, emergencyID int64) ([]*Transition, error)
}
