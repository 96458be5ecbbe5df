package emergency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nestorcamelo12/hospitales/internal/domain/directory"
	"github.com/nestorcamelo12/hospitales/internal/domain/notification"
	"github.com/nestorcamelo12/hospitales/internal/domain/vitals"
	"github.com/nestorcamelo12/hospitales/internal/domain/vitalsign"
	"github.com/nestorcamelo12/hospitales/internal/platform/apierr"
	"github.com/nestorcamelo12/hospitales/internal/platform/auth"
	"github.com/nestorcamelo12/hospitales/internal/platform/db"
	"github.com/nestorcamelo12/hospitales/internal/platform/metrics"
	"github.com/nestorcamelo12/hospitales/pkg/pagination"
)

const historyVitalsLimit = 500

// VitalStore persists and lists the readings tied to an emergency.
type VitalStore interface {
	Create(ctx context.Context, r *vitals.Reading) error
	List(ctx context.Context, f vitals.Filter) ([]*vitals.Reading, error)
}

// Directory resolves patients and users.
type Directory interface {
	GetPatient(ctx context.Context, id int64) (*directory.Patient, error)
	GetUser(ctx context.Context, id int64) (*directory.User, error)
}

// Dispatcher alerts the destination hospital about a new emergency.
type Dispatcher interface {
	NotifyEmergencyCreated(ctx context.Context, emergencyID int64, patientName string, hospitalID *int64, vitals vitalsign.Snapshot) notification.DispatchResult
}

// CreateInput is the body of an emergency registration.
type CreateInput struct {
	PatientID   int64               `json:"paciente_id"`
	Vitals      *vitalsign.Snapshot `json:"signos_vitales"`
	Unit        string              `json:"unidad"`
	Description string              `json:"descripcion"`
	Location    *string             `json:"ubicacion"`
	GeoLat      *float64            `json:"geo_lat"`
	GeoLong     *float64            `json:"geo_long"`
	HospitalID  *int64              `json:"hospital_destino_id"`
	Fecha       *string             `json:"fecha"`
}

// UpdateInput is the body of an emergency update. Absent fields are left alone.
type UpdateInput struct {
	State      *string             `json:"estado"`
	Notes      *string             `json:"observaciones"`
	AttendedBy *int64              `json:"atendido_por"`
	Vitals     *vitalsign.Snapshot `json:"signos_vitales"`
}

type Service struct {
	repo       Repository
	vitals     VitalStore
	directory  Directory
	dispatcher Dispatcher
	tx         db.TxRunner
	sm         *StateMachine
	logger     zerolog.Logger
	now        func() time.Time
}

func NewService(repo Repository, vitalStore VitalStore, dir Directory, dispatcher Dispatcher, tx db.TxRunner, logger zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		vitals:     vitalStore,
		directory:  dir,
		dispatcher: dispatcher,
		tx:         tx,
		sm:         NewStateMachine(repo),
		logger:     logger,
		now:        time.Now,
	}
}

// Create registers an emergency and its readings in one transaction, then
// alerts the destination hospital. Alert failures are logged, not returned.
func (s *Service) Create(ctx context.Context, in CreateInput, actor auth.Principal) (*View, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}
	fecha := s.now()
	if in.Fecha != nil && strings.TrimSpace(*in.Fecha) != "" {
		t, ok := parseFecha(*in.Fecha)
		if !ok {
			return nil, apierr.Invalid("fecha", "no tiene un formato de fecha válido")
		}
		fecha = t
	}

	patient, err := s.directory.GetPatient(ctx, in.PatientID)
	if err != nil {
		return nil, err
	}
	if !patient.IsActive {
		return nil, apierr.NotFound("Paciente", in.PatientID)
	}

	hospitalID := in.HospitalID
	if hospitalID == nil || *hospitalID <= 0 {
		hospitalID = patient.HospitalID
	}

	em := &Emergency{
		PatientID:    in.PatientID,
		Fecha:        fecha,
		Vitals:       *in.Vitals,
		Unit:         strings.TrimSpace(in.Unit),
		Description:  strings.TrimSpace(in.Description),
		Location:     trimmed(in.Location),
		GeoLat:       in.GeoLat,
		GeoLong:      in.GeoLong,
		State:        InitialState,
		HospitalID:   hospitalID,
		RegisteredBy: actor.UserID,
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, em); err != nil {
			return err
		}
		return s.recordVitals(ctx, em, actor.UserID, fecha, em.Vitals)
	})
	if err != nil {
		return nil, err
	}

	critical := vitalsign.IsAnyCritical(em.Vitals)
	metrics.RecordEmergencyCreated(critical)

	res := s.dispatcher.NotifyEmergencyCreated(ctx, em.ID, patient.Nombre, em.HospitalID, em.Vitals)
	s.logDispatch(em.ID, res)

	view, err := s.repo.GetView(ctx, em.ID)
	if err != nil {
		// The emergency is committed; answer with what we already know.
		s.logger.Error().Err(err).Int64("emergency_id", em.ID).Msg("failed to reload created emergency")
		view = fallbackView(em, patient)
	}
	view.CriticalAlert = critical
	return view, nil
}

func fallbackView(em *Emergency, patient *directory.Patient) *View {
	v := &View{
		Emergency:        *em,
		PatientName:      patient.Nombre,
		PatientBloodType: patient.TipoSangre,
		PatientAllergies: patient.Alergias,
	}
	if patient.Documento != "" {
		doc := patient.Documento
		v.PatientDocument = &doc
	}
	return v
}

func validateCreate(in CreateInput) error {
	if in.PatientID <= 0 {
		return apierr.Required("paciente_id")
	}
	if in.Vitals == nil || in.Vitals.IsEmpty() {
		return apierr.Required("signos_vitales")
	}
	if strings.TrimSpace(in.Unit) == "" {
		return apierr.Required("unidad")
	}
	if strings.TrimSpace(in.Description) == "" {
		return apierr.Required("descripcion")
	}
	if key := in.Vitals.Invalid(); key != "" {
		return apierr.Invalid("signos_vitales."+key, "no tiene un formato válido")
	}
	return nil
}

var fechaLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"}

func parseFecha(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range fechaLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

func (s *Service) recordVitals(ctx context.Context, em *Emergency, actorID int64, at time.Time, snap vitalsign.Snapshot) error {
	emergencyID := em.ID
	for _, r := range vitals.FromSnapshot(em.PatientID, &emergencyID, actorID, at, snap) {
		if err := s.vitals.Create(ctx, r); err != nil {
			return err
		}
		metrics.RecordVital(string(r.Type), vitalsign.Classify(r.Type, r.Value).String())
	}
	return nil
}

func (s *Service) logDispatch(emergencyID int64, res notification.DispatchResult) {
	if err := res.Err(); err != nil {
		s.logger.Error().Err(err).
			Int64("emergency_id", emergencyID).
			Int("recipients", res.Recipients).
			Int("sent", res.Sent).
			Msg("emergency notification dispatch incomplete")
		return
	}
	s.logger.Info().
		Int64("emergency_id", emergencyID).
		Str("category", string(res.Category)).
		Int("sent", res.Sent).
		Msg("emergency notifications dispatched")
}

// Update applies a state change, attending physician override and vitals
// refresh atomically. Every check runs before the first write.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput, actor auth.Principal) error {
	em, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	var decision Decision
	if in.State != nil {
		decision, err = Decide(em.State, *in.State, actor.Role, em.AttendedBy != nil)
		if err != nil {
			metrics.RecordTransitionRejected(rejectionReason(err))
			return err
		}
	}

	var attendedBy *int64
	if in.AttendedBy != nil && actor.Role == auth.RolePhysician {
		if err := s.checkPhysician(ctx, *in.AttendedBy); err != nil {
			return err
		}
		attendedBy = in.AttendedBy
	}

	if in.Vitals != nil {
		if key := in.Vitals.Invalid(); key != "" {
			return apierr.Invalid("signos_vitales."+key, "no tiene un formato válido")
		}
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if in.State != nil {
			if err := s.sm.Apply(ctx, em, decision, actor.UserID, in.Notes); err != nil {
				return err
			}
		}
		if attendedBy != nil {
			if err := s.repo.Update(ctx, id, Patch{AttendedBy: attendedBy}); err != nil {
				return err
			}
		}
		if in.Vitals != nil {
			if err := s.recordVitals(ctx, em, actor.UserID, s.now(), *in.Vitals); err != nil {
				return err
			}
			if err := s.repo.Update(ctx, id, Patch{Vitals: in.Vitals}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if decision.Changed {
		metrics.RecordTransition(string(decision.From), string(decision.To))
		s.logger.Info().
			Int64("emergency_id", id).
			Str("from", string(decision.From)).
			Str("to", string(decision.To)).
			Int64("user_id", actor.UserID).
			Msg("emergency state changed")
	}
	return nil
}

func (s *Service) checkPhysician(ctx context.Context, userID int64) error {
	u, err := s.directory.GetUser(ctx, userID)
	var nf *apierr.NotFoundError
	if errors.As(err, &nf) {
		return apierr.NotFound("Médico", userID)
	}
	if err != nil {
		return err
	}
	if !u.IsActive || u.Role != auth.RolePhysician {
		return apierr.NotFound("Médico", userID)
	}
	return nil
}

func rejectionReason(err error) string {
	var ft *apierr.ForbiddenTransitionError
	if errors.As(err, &ft) {
		return "forbidden"
	}
	return "invalid_state"
}

// Get returns the emergency with its readings and state history.
func (s *Service) Get(ctx context.Context, id int64) (*Detail, error) {
	view, err := s.repo.GetView(ctx, id)
	if err != nil {
		return nil, err
	}
	readings, err := s.vitals.List(ctx, vitals.Filter{EmergencyID: id, Limit: historyVitalsLimit})
	if err != nil {
		return nil, err
	}
	history, err := s.repo.ListTransitions(ctx, id)
	if err != nil {
		return nil, err
	}
	if readings == nil {
		readings = []*vitals.Reading{}
	}
	if history == nil {
		history = []*Transition{}
	}
	return &Detail{View: *view, VitalsHistory: readings, History: history}, nil
}

// List returns one page of emergencies. Non-admin users assigned to a
// hospital only see emergencies headed there.
func (s *Service) List(ctx context.Context, state string, hospitalID int64, p pagination.Params, actor auth.Principal) ([]*View, int, error) {
	f := ListFilter{HospitalID: hospitalID, Limit: p.Limit(), Offset: p.Offset()}
	if state != "" {
		st, ok := ParseState(state)
		if !ok {
			return nil, 0, &apierr.InvalidStateError{Value: state}
		}
		f.State = st
	}
	if scope, ok := actor.ScopedHospital(); ok {
		f.ScopeHospitalID = scope
	}
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []*View{}
	}
	return items, total, nil
}

// ListByPatient returns one page of the patient's emergencies.
func (s *Service) ListByPatient(ctx context.Context, patientID int64, p pagination.Params) ([]*View, int, error) {
	if _, err := s.directory.GetPatient(ctx, patientID); err != nil {
		return nil, 0, err
	}
	items, total, err := s.repo.ListByPatient(ctx, patientID, p.Limit(), p.Offset())
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []*View{}
	}
	return items, total, nil
}
