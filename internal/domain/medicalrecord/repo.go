package medicalrecord

import "context"

type Repository interface {
	Create(ctx context.Context, r *Record) error
	// GetByID joins patient and physician; unknown ids are apierr.NotFoundError.
	GetByID(ctx context.Context, id int64) (*Record, error)
	// ListByPatient returns a page of the patient's records, newest first,
	// and the total count.
	ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*Record, int, error)
}
