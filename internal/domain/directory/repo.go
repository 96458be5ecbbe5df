package directory

import (
	"context"

	"github.com/nestorcamelo12/hospitales/internal/platform/auth"
)

// Repository returns apierr.NotFoundError for unknown ids. Inactive rows are
// returned as is; callers decide what inactive means for them.
type Repository interface {
	GetPatient(ctx context.Context, id int64) (*Patient, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	GetHospital(ctx context.Context, id int64) (*Hospital, error)
	// ListActiveUsersByHospital returns the enabled users of hospitalID
	// holding any of roles, ordered by id.
	ListActiveUsersByHospital(ctx context.Context, hospitalID int64, roles ...auth.Role) ([]*User, error)
}
