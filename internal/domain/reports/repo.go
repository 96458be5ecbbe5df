package reports

import (
	"context"
	"time"
)

type Repository interface {
	CountActivePatients(ctx context.Context, s Scope) (int, error)
	// CountEmergencies counts emergencies dated at or after since. Zero since
	// counts all; activeOnly drops discharged and closed ones.
	CountEmergencies(ctx context.Context, s Scope, since time.Time, activeOnly bool) (int, error)
	LatestEmergencies(ctx context.Context, s Scope, limit int) ([]*EmergencySummary, error)
	EmergenciesPerDay(ctx context.Context, s Scope, since time.Time) ([]DayCount, error)
	// VitalsSince returns readings taken at or after since, newest first.
	VitalsSince(ctx context.Context, s Scope, since time.Time) ([]*VitalAlert, error)
}
