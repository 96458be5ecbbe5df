package vitals

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nestorcamelo12/hospitales/internal/domain/directory"
	"github.com/nestorcamelo12/hospitales/internal/domain/notification"
	"github.com/nestorcamelo12/hospitales/internal/domain/vitalsign"
	"github.com/nestorcamelo12/hospitales/internal/platform/apierr"
	"github.com/nestorcamelo12/hospitales/internal/platform/auth"
	"github.com/nestorcamelo12/hospitales/internal/platform/metrics"
)

const (
	DefaultListLimit    = 100
	DefaultPatientLimit = 50
	maxListLimit        = 500
)

// PatientLookup resolves the patient a reading belongs to.
type PatientLookup interface {
	GetPatient(ctx context.Context, id int64) (*directory.Patient, error)
}

// Notifier raises alerts for critical readings.
type Notifier interface {
	NotifyVitalCritical(ctx context.Context, patientID int64, t vitalsign.Type, value string) notification.DispatchResult
}

// CreateInput is the body of a standalone vital registration.
type CreateInput struct {
	PatientID   int64           `json:"paciente_id"`
	EmergencyID *int64          `json:"emergencia_id"`
	Type        string          `json:"tipo"`
	Value       vitalsign.Value `json:"valor"`
	Unit        *string         `json:"unidad"`
	Notes       *string         `json:"notas"`
}

type Service struct {
	repo     Repository
	patients PatientLookup
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, patients PatientLookup, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{repo: repo, patients: patients, notifier: notifier, logger: logger, now: time.Now}
}

// Record validates and stores one reading, then alerts the patient's
// hospital when it is critical. Alert failures are logged, not returned.
func (s *Service) Record(ctx context.Context, in CreateInput, actor auth.Principal) (*Reading, error) {
	if in.PatientID <= 0 {
		return nil, apierr.Required("paciente_id")
	}
	if strings.TrimSpace(in.Type) == "" {
		return nil, apierr.Required("tipo")
	}
	if !in.Value.Present() {
		return nil, apierr.Required("valor")
	}
	t, ok := vitalsign.ParseType(in.Type)
	if !ok {
		return nil, apierr.Invalid("tipo", "debe ser BP, HR, SPO2 o TEMP")
	}
	value := strings.TrimSpace(string(in.Value))
	if !vitalsign.ValidValue(t, value) {
		return nil, apierr.Invalid("valor", "no tiene un formato válido para "+string(t))
	}

	patient, err := s.patients.GetPatient(ctx, in.PatientID)
	if err != nil {
		return nil, err
	}
	if !patient.IsActive {
		return nil, apierr.NotFound("Paciente", in.PatientID)
	}

	unit := t.Unit()
	if in.Unit != nil && strings.TrimSpace(*in.Unit) != "" {
		unit = strings.TrimSpace(*in.Unit)
	}
	recordedBy := actor.UserID
	r := &Reading{
		PatientID:   in.PatientID,
		EmergencyID: in.EmergencyID,
		Fecha:       s.now(),
		Type:        t,
		Value:       value,
		Unit:        &unit,
		RecordedBy:  &recordedBy,
		Notes:       in.Notes,
	}
	r.Classify()
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}
	metrics.RecordVital(string(t), vitalsign.Classify(t, value).String())

	if r.Critical && s.notifier != nil {
		res := s.notifier.NotifyVitalCritical(ctx, r.PatientID, t, value)
		if err := res.Err(); err != nil {
			s.logger.Error().Err(err).
				Int64("patient_id", r.PatientID).
				Int64("vital_id", r.ID).
				Int("sent", res.Sent).
				Msg("critical vital alert incomplete")
		}
	}
	return r, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Reading, error) {
	return s.repo.GetByID(ctx, id)
}

// List applies DefaultListLimit when f.Limit is unset.
func (s *Service) List(ctx context.Context, f Filter) ([]*Reading, error) {
	f.Limit = clampLimit(f.Limit, DefaultListLimit)
	items, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Reading{}
	}
	return items, nil
}

// ListByPatient returns the patient's most recent readings.
func (s *Service) ListByPatient(ctx context.Context, patientID int64, limit int) ([]*Reading, error) {
	if _, err := s.patients.GetPatient(ctx, patientID); err != nil {
		return nil, err
	}
	return s.List(ctx, Filter{PatientID: patientID, Limit: clampLimit(limit, DefaultPatientLimit)})
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
