// Package reports computes the dashboard statistics.
package reports

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nestorcamelo12/hospitales/internal/domain/vitalsign"
	"github.com/nestorcamelo12/hospitales/internal/platform/auth"
)

const (
	latestEmergencies = 5
	criticalAlerts    = 10
	criticalWindow    = 24 * time.Hour
	perDayWindow      = 7 * 24 * time.Hour
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// ScopeFor limits non-admin users assigned to a hospital to that hospital.
func ScopeFor(p auth.Principal) Scope {
	if id, ok := p.ScopedHospital(); ok {
		return Scope{HospitalID: &id}
	}
	return Scope{}
}

// Dashboard runs the independent queries concurrently. The first failure
// cancels the rest.
func (s *Service) Dashboard(ctx context.Context, actor auth.Principal) (*Dashboard, error) {
	scope := ScopeFor(actor)
	now := s.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var (
		d      Dashboard
		recent []*VitalAlert
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.Totals.Patients, err = s.repo.CountActivePatients(ctx, scope)
		return err
	})
	g.Go(func() (err error) {
		d.Totals.ActiveEmergencies, err = s.repo.CountEmergencies(ctx, scope, time.Time{}, true)
		return err
	})
	g.Go(func() (err error) {
		d.Totals.EmergenciesToday, err = s.repo.CountEmergencies(ctx, scope, startOfDay, false)
		return err
	})
	g.Go(func() (err error) {
		d.LatestEmergencies, err = s.repo.LatestEmergencies(ctx, scope, latestEmergencies)
		return err
	})
	g.Go(func() (err error) {
		d.PerDay, err = s.repo.EmergenciesPerDay(ctx, scope, now.Add(-perDayWindow))
		return err
	})
	g.Go(func() (err error) {
		recent, err = s.repo.VitalsSince(ctx, scope, now.Add(-criticalWindow))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d.Totals.CriticalPatients, d.CriticalAlerts = summarizeCritical(recent, criticalAlerts)
	if d.LatestEmergencies == nil {
		d.LatestEmergencies = []*EmergencySummary{}
	}
	if d.PerDay == nil {
		d.PerDay = []DayCount{}
	}
	return &d, nil
}

// summarizeCritical counts distinct patients with a critical reading and
// keeps the first limit critical readings in input order.
func summarizeCritical(readings []*VitalAlert, limit int) (int, []*VitalAlert) {
	patients := make(map[int64]bool)
	alerts := []*VitalAlert{}
	for _, r := range readings {
		if !vitalsign.IsCritical(r.Type, r.Value) {
			continue
		}
		patients[r.PatientID] = true
		if len(alerts) < limit {
			alerts = append(alerts, r)
		}
	}
	return len(patients), alerts
}
